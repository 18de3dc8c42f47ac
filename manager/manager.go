// Package manager answers vendor-independent questions about a device. It
// resolves the vendor to a driver via a registry, runs the vendor's command
// for each intent and normalizes the output into typed records.
package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesren/ylog"

	"github.com/nocware/netexec/types"
	"github.com/nocware/netexec/vendors/common"
)

const logModule = "manager"

// DefaultViewTimeout bounds the enumeration commands. Full forwarding
// tables on access switches routinely exceed the interactive default.
const DefaultViewTimeout = 60 * time.Second

// PortInspector is an optional out-of-band port source (SNMP). Used when
// only port state is wanted and a full session would be wasteful.
type PortInspector interface {
	Ports(ctx context.Context) ([]types.Port, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithViewTimeout overrides the enumeration command timeout.
func WithViewTimeout(d time.Duration) Option {
	return func(m *Manager) { m.viewTimeout = d }
}

// WithPortInspector attaches an out-of-band port source.
func WithPortInspector(pi PortInspector) Option {
	return func(m *Manager) { m.inspector = pi }
}

// Manager wraps one device behind the intent API. Single-owner, like the
// drivers beneath it.
type Manager struct {
	vendor      types.Vendor
	cfg         types.DeviceConfig
	spec        DriverSpec
	driver      types.Driver
	inspector   PortInspector
	viewTimeout time.Duration
}

// New resolves the vendor in the registry and prepares a manager. Vendor
// defaults fill any zero connection fields. The device is not contacted
// until Connect.
func New(registry *Registry, vendor types.Vendor, cfg types.DeviceConfig, opts ...Option) (*Manager, error) {
	spec, ok := registry.Lookup(vendor)
	if !ok {
		return nil, &types.ManagerError{Vendor: vendor, Device: cfg.Address,
			Err: fmt.Errorf("unknown vendor, registered: %v", registry.Vendors())}
	}
	if cfg.Protocol == "" {
		cfg.Protocol = spec.Defaults.Protocol
	}
	if cfg.Port == 0 {
		cfg.Port = spec.Defaults.Port
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = spec.Defaults.Timeout
	}
	m := &Manager{
		vendor:      vendor,
		cfg:         cfg,
		spec:        spec,
		viewTimeout: DefaultViewTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Connect builds the vendor driver and opens the device session.
func (m *Manager) Connect(ctx context.Context) error {
	driver, err := m.spec.New(m.cfg)
	if err != nil {
		return &types.ManagerError{Vendor: m.vendor, Device: m.cfg.Address, Err: err}
	}
	if err := driver.Connect(ctx); err != nil {
		return &types.ManagerError{Vendor: m.vendor, Device: m.cfg.Address, Err: err}
	}
	m.driver = driver
	return nil
}

// Disconnect closes the device session. Safe to call without Connect.
func (m *Manager) Disconnect(ctx context.Context) error {
	if m.driver == nil {
		return nil
	}
	err := m.driver.Disconnect(ctx)
	m.driver = nil
	return err
}

// Driver exposes the underlying vendor driver for operations outside the
// intent API (raw Edit, Save).
func (m *Manager) Driver() types.Driver { return m.driver }

// ForwardingTable returns the device's MAC forwarding table. Entries whose
// MAC does not parse or that miss a field are dropped, not kept partial.
func (m *Manager) ForwardingTable(ctx context.Context) ([]types.FDBEntry, error) {
	recs, err := m.collect(ctx, IntentForwardingTable)
	if err != nil {
		return nil, err
	}
	out := make([]types.FDBEntry, 0, len(recs))
	for _, rec := range recs {
		mac, ok := common.UnixMAC(rec["mac"])
		if !ok {
			ylog.Warnf(logModule, "dropping forwarding entry with bad mac %q on %s", rec["mac"], m.cfg.Address)
			continue
		}
		if rec["vlan"] == "" || rec["port"] == "" {
			continue
		}
		out = append(out, types.FDBEntry{MAC: mac, VLAN: rec["vlan"], Port: rec["port"]})
	}
	return out, nil
}

// VLANs returns the configured VLANs.
func (m *Manager) VLANs(ctx context.Context) ([]types.VLAN, error) {
	recs, err := m.collect(ctx, IntentVLANs)
	if err != nil {
		return nil, err
	}
	out := make([]types.VLAN, 0, len(recs))
	for _, rec := range recs {
		if rec["name"] == "" || rec["tag"] == "" {
			continue
		}
		out = append(out, types.VLAN{Name: rec["name"], Tag: rec["tag"]})
	}
	return out, nil
}

// Ports returns the device ports with normalized admin and link state.
func (m *Manager) Ports(ctx context.Context) ([]types.Port, error) {
	recs, err := m.collect(ctx, IntentPorts)
	if err != nil {
		return nil, err
	}
	out := make([]types.Port, 0, len(recs))
	for _, rec := range recs {
		if rec["name"] == "" {
			continue
		}
		out = append(out, types.Port{
			Name:        rec["name"],
			Description: rec["description"],
			AdminUp:     common.StatusUp(rec["admin_status"]),
			OperUp:      common.StatusUp(rec["oper_status"]),
		})
	}
	return out, nil
}

// PortsViaSNMP answers the ports intent from the attached inspector
// instead of the device session.
func (m *Manager) PortsViaSNMP(ctx context.Context) ([]types.Port, error) {
	if m.inspector == nil {
		return nil, &types.ManagerError{Vendor: m.vendor, Device: m.cfg.Address,
			Err: fmt.Errorf("no port inspector attached")}
	}
	ports, err := m.inspector.Ports(ctx)
	if err != nil {
		return nil, &types.ManagerError{Vendor: m.vendor, Device: m.cfg.Address, Err: err}
	}
	return ports, nil
}

// collect runs the vendor command bound to the intent and extracts raw
// field maps from its result.
func (m *Manager) collect(ctx context.Context, intent Intent) ([]map[string]string, error) {
	if m.driver == nil {
		return nil, &types.ManagerError{Vendor: m.vendor, Device: m.cfg.Address, Err: types.ErrNoConnection}
	}
	cmd, ok := m.spec.Commands[intent]
	if !ok {
		return nil, &types.ManagerError{Vendor: m.vendor, Device: m.cfg.Address,
			Err: fmt.Errorf("no command bound for intent %s", intent)}
	}
	vctx, cancel := context.WithTimeout(ctx, m.viewTimeout)
	defer cancel()
	res, err := m.driver.View(vctx, cmd.Cmd)
	if err != nil {
		return nil, &types.ManagerError{Vendor: m.vendor, Device: m.cfg.Address, Err: err}
	}
	return cmd.Extract.Records(res), nil
}
