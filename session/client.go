// Package session implements the interactive shell client used by the CLI
// vendor drivers. It wraps an expect-style session (google/goexpect) over
// SSH or a spawned telnet process and exposes pattern-bounded command
// execution. All vendor-specific reasoning (which pattern ends a command's
// output) belongs to the driver layer; this client only detects patterns.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/charlesren/ylog"
	expect "github.com/google/goexpect"
	"golang.org/x/crypto/ssh"

	"github.com/nocware/netexec/types"
	"github.com/nocware/netexec/vendors/common"
)

const logModule = "session"

const (
	// DefaultTimeout bounds connection setup when the caller does not
	// supply one.
	DefaultTimeout = 5 * time.Second

	// DefaultExecTimeout bounds a single Execute call.
	DefaultExecTimeout = 10 * time.Second
)

// Login handshake patterns. The password prompt pattern tolerates both
// "Password:" and "password for user@host:" spellings.
var (
	loginPrompt    = regexp.MustCompile(`(?i)(login|username)\s*:`)
	passwordPrompt = regexp.MustCompile(`.?assword.*:`)
	deniedPattern  = regexp.MustCompile(`Permission denied|Login incorrect|Authentication failed`)
	unprivPrompt   = regexp.MustCompile(`>`)
	privPrompt     = regexp.MustCompile(`#`)
)

// Config holds the connection parameters for one interactive session.
type Config struct {
	Device   string
	Port     int
	Username string
	Password string
	Timeout  time.Duration

	// Protocol selects the transport: ProtocolSSH (in-process transport,
	// like the rest of this module) or ProtocolTelnet (spawned system
	// telnet client driven interactively).
	Protocol types.Protocol
}

// Client is an interactive session to one device. Single-owner: issuing
// two commands concurrently is undefined because the pattern-wait protocol
// assumes strict request/response alternation.
type Client struct {
	cfg Config

	sshClient *ssh.Client
	exp       *expect.GExpect

	authenticated bool
	privileged    bool
}

// NewClient creates a session client. The connection is not opened until
// Connect is called.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Port == 0 {
		if cfg.Protocol == types.ProtocolTelnet {
			cfg.Port = 23
		} else {
			cfg.Port = 22
		}
	}
	if cfg.Protocol == "" {
		cfg.Protocol = types.ProtocolSSH
	}
	return &Client{cfg: cfg}
}

// Connect opens the transport, authenticates, and classifies the shell the
// device lands in. Any outcome other than "authenticated at unprivileged
// prompt" or "authenticated at privileged prompt" fails with a
// *types.ConnectionError naming the device and the specific cause.
func (c *Client) Connect(ctx context.Context) error {
	var err error
	switch c.cfg.Protocol {
	case types.ProtocolTelnet:
		err = c.connectTelnet()
	default:
		err = c.connectSSH()
	}
	if err != nil {
		c.Disconnect()
		return err
	}
	c.authenticated = true
	ylog.Debugf(logModule, "connect and login successful on %s", c.cfg.Device)
	return nil
}

func (c *Client) connectSSH() error {
	// Some devices require keyboard-interactive instead of password auth.
	keyboardInteractive := ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = c.cfg.Password
		}
		return answers, nil
	})

	sshConfig := &ssh.ClientConfig{
		User: c.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.cfg.Password),
			keyboardInteractive,
		},
		Timeout:         c.cfg.Timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // network gear rarely has stable host keys
	}

	target := fmt.Sprintf("%s:%d", c.cfg.Device, c.cfg.Port)
	client, err := ssh.Dial("tcp", target, sshConfig)
	if err != nil {
		cause := types.CauseSpawn
		if strings.Contains(err.Error(), "unable to authenticate") {
			cause = types.CauseAuth
			ylog.Errorf(logModule, "permission denied on %s", c.cfg.Device)
		}
		return &types.ConnectionError{Device: c.cfg.Device, Cause: cause, Err: err}
	}
	c.sshClient = client

	exp, _, err := expect.SpawnSSH(client, c.cfg.Timeout,
		expect.Verbose(false),
		expect.CheckDuration(500*time.Millisecond),
	)
	if err != nil {
		return &types.ConnectionError{Device: c.cfg.Device, Cause: types.CauseSpawn, Err: err}
	}
	c.exp = exp

	return c.classifyShell()
}

func (c *Client) connectTelnet() error {
	cmd := fmt.Sprintf("telnet %s %d", c.cfg.Device, c.cfg.Port)
	exp, _, err := expect.Spawn(cmd, c.cfg.Timeout,
		expect.Verbose(false),
		expect.CheckDuration(500*time.Millisecond),
	)
	if err != nil {
		ylog.Errorf(logModule, "telnet spawn error to host %s: %v", c.cfg.Device, err)
		return &types.ConnectionError{Device: c.cfg.Device, Cause: types.CauseSpawn, Err: err}
	}
	c.exp = exp

	if _, _, err := exp.Expect(loginPrompt, c.cfg.Timeout); err != nil {
		return &types.ConnectionError{Device: c.cfg.Device, Cause: failureCause(err), Err: err}
	}
	if err := exp.Send(c.cfg.Username + "\n"); err != nil {
		return &types.ConnectionError{Device: c.cfg.Device, Cause: types.CauseEOF, Err: err}
	}
	if _, _, err := exp.Expect(passwordPrompt, c.cfg.Timeout); err != nil {
		ylog.Errorf(logModule, "timeout or EOF waiting password request on %s", c.cfg.Device)
		return &types.ConnectionError{Device: c.cfg.Device, Cause: failureCause(err), Err: err}
	}
	if err := exp.Send(c.cfg.Password + "\n"); err != nil {
		return &types.ConnectionError{Device: c.cfg.Device, Cause: types.CauseEOF, Err: err}
	}

	return c.classifyShell()
}

// classifyShell waits for the first shell prompt and records whether the
// session landed in a privileged shell. A denial banner instead of a
// prompt classifies as permission denied.
func (c *Client) classifyShell() error {
	cases := []expect.Caser{
		&expect.Case{R: deniedPattern, T: expect.OK()},
		&expect.Case{R: unprivPrompt, T: expect.OK()},
		&expect.Case{R: privPrompt, T: expect.OK()},
	}
	_, _, idx, err := c.exp.ExpectSwitchCase(cases, c.cfg.Timeout)
	if err != nil {
		cause := failureCause(err)
		if cause == types.CauseTimeout {
			ylog.Errorf(logModule, "timeout waiting welcome shell on %s", c.cfg.Device)
		}
		return &types.ConnectionError{Device: c.cfg.Device, Cause: cause, Err: err}
	}
	switch idx {
	case 0:
		ylog.Errorf(logModule, "permission denied on %s", c.cfg.Device)
		return &types.ConnectionError{Device: c.cfg.Device, Cause: types.CauseAuth}
	case 2:
		c.privileged = true
	}
	return nil
}

// Privileged reports whether authentication landed in a privileged shell.
// The vendor driver seeds its mode state machine from this.
func (c *Client) Privileged() bool { return c.privileged }

// Authenticated reports whether Connect completed successfully.
func (c *Client) Authenticated() bool { return c.authenticated }

// Execute sends command and blocks until the output matches one of the
// caller-supplied wait patterns, returning all output lines received
// before the match. Timeout and EOF surface as *types.CommandError with
// distinct causes. A zero timeout uses DefaultExecTimeout.
func (c *Client) Execute(command string, wait []*regexp.Regexp, timeout time.Duration) ([]string, error) {
	lines, _, err := c.ExecuteMatch(command, wait, timeout)
	return lines, err
}

// ExecuteMatch is Execute plus the index of the pattern that matched,
// for drivers that branch on which prompt appeared.
func (c *Client) ExecuteMatch(command string, wait []*regexp.Regexp, timeout time.Duration) ([]string, int, error) {
	if c.exp == nil {
		return nil, -1, &types.CommandError{Device: c.cfg.Device, Command: command, Cause: types.CauseEOF, Err: types.ErrNoConnection}
	}
	if timeout == 0 {
		timeout = DefaultExecTimeout
	}

	ylog.Debugf(logModule, "execute command %q on %s", command, c.cfg.Device)
	if err := c.exp.Send(command + "\n"); err != nil {
		return nil, -1, &types.CommandError{Device: c.cfg.Device, Command: command, Cause: types.CauseEOF, Err: err}
	}

	cases := make([]expect.Caser, 0, len(wait))
	for _, re := range wait {
		cases = append(cases, &expect.Case{R: re, T: expect.OK()})
	}
	out, match, idx, err := c.exp.ExpectSwitchCase(cases, timeout)
	if err != nil {
		cause := failureCause(err)
		ylog.Errorf(logModule, "execute command %q on %s: %s", command, c.cfg.Device, cause)
		return nil, -1, &types.CommandError{Device: c.cfg.Device, Command: command, Cause: cause, Err: err}
	}

	return outputLines(out, match), idx, nil
}

// Send writes a command without waiting for a result. It never fails on
// the application side; a broken transport is observed by the next
// Execute, not here.
func (c *Client) Send(command string) {
	if c.exp == nil {
		return
	}
	ylog.Debugf(logModule, "send command %q on %s", command, c.cfg.Device)
	if err := c.exp.Send(command + "\n"); err != nil {
		ylog.Debugf(logModule, "send %q on %s: %v", command, c.cfg.Device, err)
	}
}

// Disconnect closes the session. Safe to call repeatedly and after a
// partially failed Connect; it never fails.
func (c *Client) Disconnect() {
	if c.exp != nil {
		_ = c.exp.Close()
		c.exp = nil
	}
	if c.sshClient != nil {
		_ = c.sshClient.Close()
		c.sshClient = nil
	}
	c.authenticated = false
	c.privileged = false
}

// outputLines strips the matched pattern from the raw expect buffer and
// splits the remainder into clean lines.
func outputLines(out string, match []string) []string {
	if len(match) > 0 && match[0] != "" {
		if i := strings.LastIndex(out, match[0]); i >= 0 {
			out = out[:i]
		}
	}
	out = common.StripANSI(out)
	raw := strings.Split(out, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimRight(l, "\r"))
	}
	// Drop a trailing empty line left by the final newline before the prompt.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// failureCause distinguishes timer expiry from transport EOF.
func failureCause(err error) types.Cause {
	var te expect.TimeoutError
	if errors.As(err, &te) {
		return types.CauseTimeout
	}
	if errors.Is(err, io.EOF) {
		return types.CauseEOF
	}
	// goexpect reports a dead process/channel as a plain error; treat
	// anything that is not a timeout as end of stream.
	return types.CauseEOF
}
