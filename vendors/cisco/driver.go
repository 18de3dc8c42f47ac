// Package cisco implements the IOS driver: a three-mode CLI state machine
// (unprivileged, privileged, configuration) over an interactive session.
package cisco

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/charlesren/ylog"

	"github.com/nocware/netexec/session"
	"github.com/nocware/netexec/types"
)

// Mode is the driver's CLI access level. Exactly one mode is active at a
// time; transitions are driver-initiated, never implicit.
type Mode int

const (
	ModeUnprivileged Mode = iota
	ModePrivileged
	ModeConfiguration
)

func (m Mode) String() string {
	switch m {
	case ModePrivileged:
		return "privileged"
	case ModeConfiguration:
		return "configuration"
	default:
		return "unprivileged"
	}
}

const logModule = "cisco"

var supportedProtocols = []types.Protocol{types.ProtocolSSH, types.ProtocolTelnet}

var (
	unprivEnd = regexp.MustCompile(`>`)
	privEnd   = regexp.MustCompile(`#`)
	saveOK    = regexp.MustCompile(`\[OK\]`)
)

// shell is the session surface this driver needs; satisfied by
// *session.Client and by test fakes.
type shell interface {
	Connect(ctx context.Context) error
	Disconnect()
	Execute(command string, wait []*regexp.Regexp, timeout time.Duration) ([]string, error)
	ExecuteMatch(command string, wait []*regexp.Regexp, timeout time.Duration) ([]string, int, error)
	Send(command string)
}

// Driver drives one Cisco IOS device. Single-owner, single-session.
type Driver struct {
	cfg      types.DeviceConfig
	newShell func(session.Config) shell
	cli      shell

	hostname     string
	shellPrompt  *regexp.Regexp
	configPrompt *regexp.Regexp
	privileged   bool
	configMode   bool
}

// NewDriver creates an IOS driver. Construction fails immediately when the
// requested protocol is not supported by this vendor.
func NewDriver(cfg types.DeviceConfig) (*Driver, error) {
	if cfg.Protocol == "" {
		cfg.Protocol = types.ProtocolSSH
	}
	if !protocolSupported(cfg.Protocol) {
		return nil, &types.VendorError{Vendor: types.VendorCiscoIOS, Device: cfg.Address,
			Err: fmt.Errorf("protocol %q is not supported, supported: %v", cfg.Protocol, supportedProtocols)}
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = session.DefaultTimeout
	}
	return &Driver{
		cfg: cfg,
		newShell: func(sc session.Config) shell {
			return session.NewClient(sc)
		},
	}, nil
}

// Connect opens the session, disables output paging, captures the device
// hostname from the prompt line and derives the prompt patterns from it.
func (d *Driver) Connect(ctx context.Context) error {
	cli := d.newShell(session.Config{
		Device:   d.cfg.Address,
		Port:     d.cfg.Port,
		Username: d.cfg.Username,
		Password: d.cfg.Password,
		Timeout:  d.cfg.Timeout,
		Protocol: d.cfg.Protocol,
	})
	if err := cli.Connect(ctx); err != nil {
		return &types.VendorError{Vendor: types.VendorCiscoIOS, Device: d.cfg.Address, Err: err}
	}
	d.cli = cli
	if err := d.prepareShell(); err != nil {
		d.Disconnect(ctx)
		return &types.VendorError{Vendor: types.VendorCiscoIOS, Device: d.cfg.Address, Err: err}
	}
	return nil
}

// prepareShell disables paging, fills the hostname from the echoed prompt
// and seeds the privilege state from which prompt character appeared.
func (d *Driver) prepareShell() error {
	lines, idx, err := d.cli.ExecuteMatch("terminal length 0",
		[]*regexp.Regexp{unprivEnd, privEnd}, d.cfg.Timeout)
	if err != nil {
		return err
	}
	if host := lastLine(lines); host != "" {
		d.hostname = host
	} else {
		d.hostname = d.cfg.Address
	}
	d.privileged = idx == 1
	d.configMode = false
	d.recomputePrompts()
	return nil
}

// recomputePrompts rebuilds the expected prompt patterns for the current
// hostname and privilege level. Must run before the next command whenever
// the hostname is learned or the mode changes.
func (d *Driver) recomputePrompts() {
	host := regexp.QuoteMeta(d.hostname)
	if d.privileged {
		d.shellPrompt = regexp.MustCompile(host + "#")
	} else {
		d.shellPrompt = regexp.MustCompile(host + ">")
	}
	d.configPrompt = regexp.MustCompile(host + `\(config[^)]*\)#`)
}

// Mode returns the currently active CLI mode.
func (d *Driver) Mode() Mode {
	switch {
	case d.configMode:
		return ModeConfiguration
	case d.privileged:
		return ModePrivileged
	default:
		return ModeUnprivileged
	}
}

// enablePrivileged attempts privilege escalation once.
func (d *Driver) enablePrivileged(timeout time.Duration) bool {
	wait := []*regexp.Regexp{regexp.MustCompile(regexp.QuoteMeta(d.hostname) + "#")}
	if _, err := d.cli.Execute("enable", wait, timeout); err != nil {
		return false
	}
	d.privileged = true
	d.recomputePrompts()
	return true
}

// DropPrivileges leaves privileged mode. Exits configuration mode first
// when needed; reports false when either step fails.
func (d *Driver) DropPrivileges(ctx context.Context) bool {
	if d.cli == nil || !d.privileged {
		return d.cli != nil
	}
	timeout := execTimeout(ctx)
	if !d.exitConfig(timeout) {
		return false
	}
	wait := []*regexp.Regexp{regexp.MustCompile(regexp.QuoteMeta(d.hostname) + ">")}
	if _, err := d.cli.Execute("disable", wait, timeout); err != nil {
		return false
	}
	d.privileged = false
	d.recomputePrompts()
	return true
}

// enterConfig reaches configuration mode: escalate privilege when needed
// (one attempt), then enter configuration (one attempt).
func (d *Driver) enterConfig(timeout time.Duration) bool {
	if !d.privileged && !d.enablePrivileged(timeout) {
		ylog.Errorf(logModule, "privilege escalation failed on %s", d.cfg.Address)
		return false
	}
	if d.configMode {
		return true
	}
	if _, err := d.cli.Execute("configure terminal", []*regexp.Regexp{d.configPrompt}, timeout); err != nil {
		ylog.Errorf(logModule, "enter config mode on %s error: %v", d.cfg.Address, err)
		return false
	}
	d.configMode = true
	return true
}

// exitConfig leaves configuration mode (one attempt).
func (d *Driver) exitConfig(timeout time.Duration) bool {
	if !d.configMode {
		return true
	}
	if _, err := d.cli.Execute("end", []*regexp.Regexp{d.shellPrompt}, timeout); err != nil {
		ylog.Errorf(logModule, "exit config mode on %s error: %v", d.cfg.Address, err)
		return false
	}
	d.configMode = false
	return true
}

// Edit runs a command in configuration mode, reaching it first when
// necessary. A failed transition aborts with a mode error; the command is
// never sent under a stale prompt pattern.
func (d *Driver) Edit(ctx context.Context, command string) (*types.Result, error) {
	if d.cli == nil {
		return nil, &types.VendorError{Vendor: types.VendorCiscoIOS, Device: d.cfg.Address, Err: types.ErrNoConnection}
	}
	timeout := execTimeout(ctx)
	if !d.enterConfig(timeout) {
		return nil, &types.ModeError{Device: d.cfg.Address, Mode: "configuration", Enter: true}
	}
	lines, err := d.cli.Execute(command, []*regexp.Regexp{d.configPrompt}, timeout)
	if err != nil {
		return nil, &types.VendorError{Vendor: types.VendorCiscoIOS, Device: d.cfg.Address, Err: err}
	}
	return &types.Result{Lines: lines}, nil
}

// View runs a read-only command, leaving configuration mode first when
// active.
func (d *Driver) View(ctx context.Context, command string) (*types.Result, error) {
	if d.cli == nil {
		return nil, &types.VendorError{Vendor: types.VendorCiscoIOS, Device: d.cfg.Address, Err: types.ErrNoConnection}
	}
	timeout := execTimeout(ctx)
	if !d.exitConfig(timeout) {
		return nil, &types.ModeError{Device: d.cfg.Address, Mode: "configuration", Enter: false}
	}
	lines, err := d.cli.Execute(command, []*regexp.Regexp{d.shellPrompt}, timeout)
	if err != nil {
		return nil, &types.VendorError{Vendor: types.VendorCiscoIOS, Device: d.cfg.Address, Err: err}
	}
	return &types.Result{Lines: lines}, nil
}

// Save exits configuration mode and persists the running configuration.
// Any failure, including a failed mode exit, reports false rather than an
// error: "configuration not saved" is a recoverable outcome.
func (d *Driver) Save(ctx context.Context) bool {
	if d.cli == nil {
		return false
	}
	timeout := execTimeout(ctx)
	if !d.exitConfig(timeout) {
		return false
	}
	if _, err := d.cli.Execute("write memory", []*regexp.Regexp{saveOK}, timeout); err != nil {
		ylog.Errorf(logModule, "save configuration on %s error: %v", d.cfg.Address, err)
		return false
	}
	return true
}

// Disconnect closes the session. Safe to call after a failed Connect.
func (d *Driver) Disconnect(ctx context.Context) error {
	if d.cli == nil {
		return nil
	}
	d.cli.Send("exit")
	d.cli.Disconnect()
	d.cli = nil
	d.privileged = false
	d.configMode = false
	return nil
}

func protocolSupported(p types.Protocol) bool {
	for _, sp := range supportedProtocols {
		if p == sp {
			return true
		}
	}
	return false
}

func lastLine(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] != "" {
			return lines[i]
		}
	}
	return ""
}

// execTimeout derives the per-command timeout from the context deadline,
// falling back to the session default. The manager stretches it for large
// enumeration commands.
func execTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if t := time.Until(dl); t > 0 {
			return t
		}
	}
	return session.DefaultExecTimeout
}

var _ types.Driver = (*Driver)(nil)
