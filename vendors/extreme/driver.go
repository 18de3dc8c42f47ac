// Package extreme implements the XOS driver. XOS has no configuration
// mode; every command runs at the same shell. The prompt carries a counter
// that only advances when the command text changes, so the driver mirrors
// that counter to predict the next prompt exactly.
package extreme

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charlesren/ylog"

	"github.com/nocware/netexec/session"
	"github.com/nocware/netexec/types"
)

const logModule = "extreme"

var supportedProtocols = []types.Protocol{types.ProtocolSSH, types.ProtocolTelnet}

// XOS reports command failures inline in the output instead of via exit
// status. Matching one of these anywhere in the output fails the command.
var errSignatures = []*regexp.Regexp{
	regexp.MustCompile(`Invalid .* detected.*[.]`),
	regexp.MustCompile(`Error:.*[.]`),
}

var (
	savePrompt = regexp.MustCompile(
		regexp.QuoteMeta("Do you want to save configuration to primary.cfg and overwrite it?"))
	saveDone = regexp.MustCompile(
		regexp.QuoteMeta("Configuration saved to primary.cfg successfully."))
)

// shell is the session surface this driver needs; satisfied by
// *session.Client and by test fakes.
type shell interface {
	Connect(ctx context.Context) error
	Disconnect()
	Execute(command string, wait []*regexp.Regexp, timeout time.Duration) ([]string, error)
	Send(command string)
}

// Driver drives one Extreme XOS device. Single-owner, single-session.
type Driver struct {
	cfg      types.DeviceConfig
	newShell func(session.Config) shell
	cli      shell

	hostname string

	// cmdNum mirrors the device-side prompt counter. The login banner
	// consumes 1, so the first command of a session sees counter 2. The
	// device advances it only when the submitted command text differs
	// from the previous one; lastCmd tracks that.
	cmdNum  int
	lastCmd string
}

// NewDriver creates an XOS driver. Construction fails immediately when the
// requested protocol is not supported by this vendor.
func NewDriver(cfg types.DeviceConfig) (*Driver, error) {
	if cfg.Protocol == "" {
		cfg.Protocol = types.ProtocolSSH
	}
	if !protocolSupported(cfg.Protocol) {
		return nil, &types.VendorError{Vendor: types.VendorExtremeXOS, Device: cfg.Address,
			Err: fmt.Errorf("protocol %q is not supported, supported: %v", cfg.Protocol, supportedProtocols)}
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = session.DefaultTimeout
	}
	return &Driver{
		cfg:    cfg,
		cmdNum: 2,
		newShell: func(sc session.Config) shell {
			return session.NewClient(sc)
		},
	}, nil
}

// Connect opens the session, disables output paging and captures the
// hostname from the prompt line preceding the counter.
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
		return &types.VendorError{Vendor: types.VendorExtremeXOS, Device: d.cfg.Address, Err: err}
	}
	d.cli = cli
	if err := d.prepareShell(); err != nil {
		d.Disconnect(ctx)
		return &types.VendorError{Vendor: types.VendorExtremeXOS, Device: d.cfg.Address, Err: err}
	}
	return nil
}

// prepareShell disables paging. The hostname is unknown until the first
// prompt is seen, so the first wait matches on the counter suffix alone.
func (d *Driver) prepareShell() error {
	wait := []*regexp.Regexp{regexp.MustCompile(fmt.Sprintf(`.%d #`, d.cmdNum))}
	lines, err := d.cli.Execute("disable clipaging", wait, d.cfg.Timeout)
	if err != nil {
		return err
	}
	if host := lastLine(lines); host != "" {
		d.hostname = host
	} else {
		d.hostname = d.cfg.Address
	}
	d.lastCmd = "disable clipaging"
	return nil
}

// prompt builds the exact prompt pattern the device will print after the
// command numbered n.
func (d *Driver) prompt(n int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`%s\.%d #`, regexp.QuoteMeta(d.hostname), n))
}

// run executes one command at the shell, advancing the mirrored counter
// only when the command text changed, and scans the output for the inline
// error signatures.
func (d *Driver) run(ctx context.Context, command string) (*types.Result, error) {
	if d.cli == nil {
		return nil, &types.VendorError{Vendor: types.VendorExtremeXOS, Device: d.cfg.Address, Err: types.ErrNoConnection}
	}
	if command != d.lastCmd {
		d.cmdNum++
		d.lastCmd = command
	}
	lines, err := d.cli.Execute(command, []*regexp.Regexp{d.prompt(d.cmdNum)}, execTimeout(ctx))
	if err != nil {
		return nil, &types.VendorError{Vendor: types.VendorExtremeXOS, Device: d.cfg.Address, Err: err}
	}
	if msg, found := scanErrors(lines); found {
		ylog.Errorf(logModule, "command %q on %s rejected: %s", command, d.cfg.Address, msg)
		return nil, &types.DeviceError{Device: d.cfg.Address, Command: command,
			Output: strings.Join(lines, "\n")}
	}
	return &types.Result{Lines: lines}, nil
}

// Edit runs a configuration-changing command. XOS draws no mode
// distinction, so Edit and View share one execution path.
func (d *Driver) Edit(ctx context.Context, command string) (*types.Result, error) {
	return d.run(ctx, command)
}

// View runs a read-only command.
func (d *Driver) View(ctx context.Context, command string) (*types.Result, error) {
	return d.run(ctx, command)
}

// Save persists the configuration to the primary slot. The device asks for
// confirmation; both steps use literal wait patterns outside the counter
// protocol. Failures are logged and reported as false.
func (d *Driver) Save(ctx context.Context) bool {
	if d.cli == nil {
		return false
	}
	timeout := execTimeout(ctx)
	if _, err := d.cli.Execute("save configuration primary", []*regexp.Regexp{savePrompt}, timeout); err != nil {
		ylog.Errorf(logModule, "save configuration on %s error: %v", d.cfg.Address, err)
		return false
	}
	if _, err := d.cli.Execute("Yes", []*regexp.Regexp{saveDone}, timeout); err != nil {
		ylog.Errorf(logModule, "save configuration on %s not confirmed: %v", d.cfg.Address, err)
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
	return nil
}

// scanErrors returns the first inline error message found in the output.
func scanErrors(lines []string) (string, bool) {
	for _, line := range lines {
		for _, re := range errSignatures {
			if m := re.FindString(line); m != "" {
				return m, true
			}
		}
	}
	return "", false
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

func execTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if t := time.Until(dl); t > 0 {
			return t
		}
	}
	return session.DefaultExecTimeout
}

var _ types.Driver = (*Driver)(nil)
