// Package juniper implements the JunOS driver over NETCONF. Unlike the CLI
// drivers there is no prompt protocol; the driver composes the transactional
// client into the common driver surface and owns the lock lifecycle.
package juniper

import (
	"context"
	"errors"
	"fmt"

	"github.com/charlesren/ylog"

	"github.com/nocware/netexec/netconf"
	"github.com/nocware/netexec/types"
)

const logModule = "juniper"

// transactor is the NETCONF surface this driver needs; satisfied by
// *netconf.Client and by test fakes.
type transactor interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context)
	Lock() bool
	Unlock() bool
	Edit(ctx context.Context, command string) (*types.Result, error)
	View(ctx context.Context, command string) (*types.Result, error)
	Compare(ctx context.Context, version int) (string, error)
	Commit(ctx context.Context) bool
	Validate(ctx context.Context) bool
}

// Driver drives one Juniper JunOS device. The configuration lock is taken
// for the whole session: held from Connect to Disconnect.
type Driver struct {
	cfg       types.DeviceConfig
	newClient func(netconf.Config) transactor
	cli       transactor
	ignore    []string
}

// SetIgnoreErrors overrides the remote error texts treated as no-op
// successes. Must be called before Connect.
func (d *Driver) SetIgnoreErrors(patterns []string) {
	d.ignore = patterns
}

// NewDriver creates a JunOS driver. Only the NETCONF protocol is accepted.
func NewDriver(cfg types.DeviceConfig) (*Driver, error) {
	if cfg.Protocol == "" {
		cfg.Protocol = types.ProtocolNETCONF
	}
	if cfg.Protocol != types.ProtocolNETCONF {
		return nil, &types.VendorError{Vendor: types.VendorJuniperJunOS, Device: cfg.Address,
			Err: fmt.Errorf("protocol %q is not supported, supported: [%s]", cfg.Protocol, types.ProtocolNETCONF)}
	}
	if cfg.Port == 0 {
		cfg.Port = 830
	}
	return &Driver{
		cfg: cfg,
		newClient: func(nc netconf.Config) transactor {
			return netconf.NewClient(nc)
		},
	}, nil
}

// Connect opens the NETCONF session and takes the configuration lock.
// A lock that cannot be acquired is fatal: the session is torn down and
// Connect fails, so a connected driver always holds the lock.
func (d *Driver) Connect(ctx context.Context) error {
	cli := d.newClient(netconf.Config{
		Device:   d.cfg.Address,
		Port:     d.cfg.Port,
		Username: d.cfg.Username,
		Password: d.cfg.Password,
		Timeout:  d.cfg.Timeout,

		IgnoreErrors: d.ignore,
	})
	if err := cli.Connect(ctx); err != nil {
		return &types.VendorError{Vendor: types.VendorJuniperJunOS, Device: d.cfg.Address, Err: err}
	}
	if !cli.Lock() {
		cli.Disconnect(ctx)
		return &types.VendorError{Vendor: types.VendorJuniperJunOS, Device: d.cfg.Address,
			Err: errors.New("configuration lock error")}
	}
	d.cli = cli
	return nil
}

// Edit submits one set-style configuration statement to the candidate.
func (d *Driver) Edit(ctx context.Context, command string) (*types.Result, error) {
	if d.cli == nil {
		return nil, &types.VendorError{Vendor: types.VendorJuniperJunOS, Device: d.cfg.Address, Err: types.ErrNoConnection}
	}
	res, err := d.cli.Edit(ctx, command)
	if err != nil {
		return nil, &types.VendorError{Vendor: types.VendorJuniperJunOS, Device: d.cfg.Address, Err: err}
	}
	return res, nil
}

// View runs an operational command and returns the parsed reply tree.
func (d *Driver) View(ctx context.Context, command string) (*types.Result, error) {
	if d.cli == nil {
		return nil, &types.VendorError{Vendor: types.VendorJuniperJunOS, Device: d.cfg.Address, Err: types.ErrNoConnection}
	}
	res, err := d.cli.View(ctx, command)
	if err != nil {
		return nil, &types.VendorError{Vendor: types.VendorJuniperJunOS, Device: d.cfg.Address, Err: err}
	}
	return res, nil
}

// Save validates the candidate, checks whether it differs from the running
// configuration and commits only when it does. An unchanged candidate is a
// successful save with no commit. Failures are logged, never raised.
func (d *Driver) Save(ctx context.Context) bool {
	if d.cli == nil {
		return false
	}
	if !d.cli.Validate(ctx) {
		ylog.Errorf(logModule, "error in device %s configuration", d.cfg.Address)
		return false
	}
	diff, err := d.cli.Compare(ctx, 0)
	if err != nil {
		ylog.Errorf(logModule, "compare configuration on %s error: %v", d.cfg.Address, err)
		return false
	}
	if diff == "" {
		return true
	}
	if !d.cli.Commit(ctx) {
		ylog.Errorf(logModule, "commit configuration on %s failed", d.cfg.Address)
		return false
	}
	return true
}

// Disconnect releases the lock (best effort) and closes the session.
func (d *Driver) Disconnect(ctx context.Context) error {
	if d.cli == nil {
		return nil
	}
	d.cli.Unlock()
	d.cli.Disconnect(ctx)
	d.cli = nil
	return nil
}

var _ types.Driver = (*Driver)(nil)
