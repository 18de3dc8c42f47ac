package types

import (
	"errors"
	"fmt"
)

// ErrNoConnection is returned by driver operations invoked before Connect
// or after Disconnect. No network operation is attempted in that case.
var ErrNoConnection = errors.New("no connection to the device")

// Cause classifies why a transport-level operation failed.
type Cause string

const (
	CauseSpawn     Cause = "spawn error"
	CauseAuth      Cause = "permission denied"
	CauseTimeout   Cause = "timeout"
	CauseEOF       Cause = "eof"
	CauseTransport Cause = "transport error"
)

// ConnectionError reports a failed connection handshake: spawn/open
// failure, authentication denial, or timeout/EOF during login.
type ConnectionError struct {
	Device string
	Cause  Cause
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect to %q: %s: %v", e.Device, e.Cause, e.Err)
	}
	return fmt.Sprintf("connect to %q: %s", e.Device, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandError reports a timeout or EOF while waiting for an expected
// pattern after a command was sent.
type CommandError struct {
	Device  string
	Command string
	Cause   Cause
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("execute %q on %q: %s", e.Command, e.Device, e.Cause)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ModeError reports a failed privilege escalation or configuration mode
// entry/exit. Distinct from CommandError because the cause is session
// state, not transport.
type ModeError struct {
	Device string
	Mode   string
	Enter  bool
}

func (e *ModeError) Error() string {
	verb := "exit"
	if e.Enter {
		verb = "enter"
	}
	return fmt.Sprintf("can not %s %s mode on %q", verb, e.Mode, e.Device)
}

// RPCOperationError reports a remote RPC error from the NETCONF transport
// that was not matched by the client's ignore list.
type RPCOperationError struct {
	Device  string
	Command string
	Err     error
}

func (e *RPCOperationError) Error() string {
	return fmt.Sprintf("rpc %q on %q: %v", e.Command, e.Device, e.Err)
}

func (e *RPCOperationError) Unwrap() error { return e.Err }

// DeviceError reports a command that succeeded at the transport level but
// failed according to the device's own inline error output.
type DeviceError struct {
	Device  string
	Command string
	Output  string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %q rejected %q: %s", e.Device, e.Command, e.Output)
}

// VendorError scopes a lower-layer failure to a vendor driver.
type VendorError struct {
	Vendor Vendor
	Device string
	Err    error
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s driver on %q: %v", e.Vendor, e.Device, e.Err)
}

func (e *VendorError) Unwrap() error { return e.Err }

// ManagerError reports an unknown vendor identifier or wraps a driver
// failure surfaced through the manager.
type ManagerError struct {
	Vendor Vendor
	Device string
	Err    error
}

func (e *ManagerError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("manager (%s): %v", e.Vendor, e.Err)
	}
	return fmt.Sprintf("manager (%s, %q): %v", e.Vendor, e.Device, e.Err)
}

func (e *ManagerError) Unwrap() error { return e.Err }
