package cisco

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/nocware/netexec/session"
	"github.com/nocware/netexec/types"
)

type step struct {
	cmd   string
	lines []string
	idx   int
	err   error
}

type fakeShell struct {
	t          *testing.T
	steps      []step
	pos        int
	sent       []string
	connectErr error
	closed     bool
}

func (f *fakeShell) Connect(ctx context.Context) error { return f.connectErr }
func (f *fakeShell) Disconnect()                       { f.closed = true }
func (f *fakeShell) Send(cmd string)                   { f.sent = append(f.sent, cmd) }

func (f *fakeShell) Execute(cmd string, wait []*regexp.Regexp, timeout time.Duration) ([]string, error) {
	lines, _, err := f.ExecuteMatch(cmd, wait, timeout)
	return lines, err
}

func (f *fakeShell) ExecuteMatch(cmd string, wait []*regexp.Regexp, timeout time.Duration) ([]string, int, error) {
	if f.pos >= len(f.steps) {
		f.t.Fatalf("unexpected command %q", cmd)
	}
	s := f.steps[f.pos]
	f.pos++
	if cmd != s.cmd {
		f.t.Fatalf("command %d = %q, want %q", f.pos, cmd, s.cmd)
	}
	return s.lines, s.idx, s.err
}

func newTestDriver(t *testing.T, steps []step) (*Driver, *fakeShell) {
	t.Helper()
	d, err := NewDriver(types.DeviceConfig{Address: "192.0.2.1", Username: "admin", Password: "pw"})
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	fake := &fakeShell{t: t, steps: steps}
	d.newShell = func(session.Config) shell { return fake }
	return d, fake
}

func TestNewDriverRejectsProtocol(t *testing.T) {
	_, err := NewDriver(types.DeviceConfig{Address: "192.0.2.1", Protocol: types.ProtocolNETCONF})
	var ve *types.VendorError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *types.VendorError", err)
	}
}

func TestEditBeforeConnect(t *testing.T) {
	d, _ := newTestDriver(t, nil)
	if _, err := d.Edit(context.Background(), "hostname sw2"); !errors.Is(err, types.ErrNoConnection) {
		t.Fatalf("err = %v, want ErrNoConnection", err)
	}
	if _, err := d.View(context.Background(), "show version"); !errors.Is(err, types.ErrNoConnection) {
		t.Fatalf("err = %v, want ErrNoConnection", err)
	}
	if d.Save(context.Background()) {
		t.Error("Save before connect succeeded")
	}
}

func TestConnectLearnsHostnameAndMode(t *testing.T) {
	d, _ := newTestDriver(t, []step{
		{cmd: "terminal length 0", lines: []string{"terminal length 0", "switch"}, idx: 1},
	})
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if d.hostname != "switch" {
		t.Errorf("hostname = %q, want switch", d.hostname)
	}
	if d.Mode() != ModePrivileged {
		t.Errorf("mode = %s, want privileged", d.Mode())
	}
}

func TestEditEscalatesThenConfigures(t *testing.T) {
	d, fake := newTestDriver(t, []step{
		{cmd: "terminal length 0", lines: []string{"terminal length 0", "switch"}, idx: 0},
		{cmd: "enable", lines: []string{"enable"}},
		{cmd: "configure terminal", lines: []string{"Enter configuration commands, one per line."}},
		{cmd: "hostname sw2", lines: []string{"hostname sw2"}},
	})
	ctx := context.Background()
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if d.Mode() != ModeUnprivileged {
		t.Fatalf("mode after connect = %s, want unprivileged", d.Mode())
	}

	res, err := d.Edit(ctx, "hostname sw2")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if len(res.Lines) != 1 || res.Lines[0] != "hostname sw2" {
		t.Errorf("result lines = %q", res.Lines)
	}
	if d.Mode() != ModeConfiguration {
		t.Errorf("mode = %s, want configuration", d.Mode())
	}
	if fake.pos != len(fake.steps) {
		t.Errorf("only %d of %d commands issued", fake.pos, len(fake.steps))
	}
}

func TestEditFailedEscalation(t *testing.T) {
	d, _ := newTestDriver(t, []step{
		{cmd: "terminal length 0", lines: []string{"terminal length 0", "switch"}, idx: 0},
		{cmd: "enable", err: &types.CommandError{Device: "192.0.2.1", Command: "enable", Cause: types.CauseTimeout}},
	})
	ctx := context.Background()
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_, err := d.Edit(ctx, "hostname sw2")
	var me *types.ModeError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want *types.ModeError", err)
	}
	if !me.Enter {
		t.Error("mode error should be an enter failure")
	}
	if d.Mode() != ModeUnprivileged {
		t.Errorf("mode = %s, want unprivileged after failed escalation", d.Mode())
	}
}

func TestViewLeavesConfigMode(t *testing.T) {
	d, _ := newTestDriver(t, []step{
		{cmd: "terminal length 0", lines: []string{"terminal length 0", "switch"}, idx: 1},
		{cmd: "configure terminal", lines: nil},
		{cmd: "vlan 10", lines: nil},
		{cmd: "end", lines: nil},
		{cmd: "show vlan brief", lines: []string{"10   test   active"}},
	})
	ctx := context.Background()
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := d.Edit(ctx, "vlan 10"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	res, err := d.View(ctx, "show vlan brief")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(res.Lines) != 1 {
		t.Errorf("result lines = %q", res.Lines)
	}
	if d.Mode() != ModePrivileged {
		t.Errorf("mode = %s, want privileged after view", d.Mode())
	}
}

func TestSaveWritesMemory(t *testing.T) {
	d, _ := newTestDriver(t, []step{
		{cmd: "terminal length 0", lines: []string{"terminal length 0", "switch"}, idx: 1},
		{cmd: "write memory", lines: []string{"Building configuration...", "[OK]"}},
	})
	ctx := context.Background()
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !d.Save(ctx) {
		t.Error("Save reported false")
	}
}

func TestSaveFailure(t *testing.T) {
	d, _ := newTestDriver(t, []step{
		{cmd: "terminal length 0", lines: []string{"terminal length 0", "switch"}, idx: 1},
		{cmd: "write memory", err: &types.CommandError{Device: "192.0.2.1", Command: "write memory", Cause: types.CauseTimeout}},
	})
	ctx := context.Background()
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if d.Save(ctx) {
		t.Error("Save reported true on timeout")
	}
}

func TestDisconnectSendsExit(t *testing.T) {
	d, fake := newTestDriver(t, []step{
		{cmd: "terminal length 0", lines: []string{"terminal length 0", "switch"}, idx: 1},
	})
	ctx := context.Background()
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := d.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if len(fake.sent) != 1 || fake.sent[0] != "exit" {
		t.Errorf("sent = %q, want exit", fake.sent)
	}
	if !fake.closed {
		t.Error("session not closed")
	}
	// Second disconnect is a no-op.
	if err := d.Disconnect(ctx); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}
