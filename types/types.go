package types

import (
	"context"
	"time"
)

// Protocol represents the transport used to reach a device.
type Protocol string

const (
	ProtocolSSH     Protocol = "ssh"
	ProtocolTelnet  Protocol = "telnet"
	ProtocolNETCONF Protocol = "netconf"
)

// Vendor identifies a supported device family.
type Vendor string

const (
	VendorCiscoIOS     Vendor = "CiscoIOS"
	VendorExtremeXOS   Vendor = "ExtremeXOS"
	VendorJuniperJunOS Vendor = "JuniperJunOS"
)

// DeviceConfig contains the connection parameters for one device.
type DeviceConfig struct {
	// Address is the management IP or hostname.
	Address string

	// Port is the management port. Zero means the vendor default.
	Port int

	// Protocol is the transport to use. Empty means the vendor default.
	Protocol Protocol

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// Timeout for connection setup and command execution.
	// Zero means the vendor default.
	Timeout time.Duration
}

// Result is the outcome of one command execution. CLI drivers fill Lines
// with the output received before the expected prompt; the NETCONF driver
// fills Tree with the parsed rpc-reply body. Immutable once returned.
type Result struct {
	Lines []string
	Tree  *Node
}

// Driver is the interface every vendor state machine implements.
// A driver instance manages exactly one session to one device and is not
// safe for concurrent use; run one driver per device instead.
type Driver interface {
	// Connect opens the session and prepares the vendor shell.
	Connect(ctx context.Context) error

	// Disconnect closes the session. Safe to call after a failed Connect.
	Disconnect(ctx context.Context) error

	// Edit runs a configuration-changing command.
	Edit(ctx context.Context, command string) (*Result, error)

	// View runs a read-only command.
	View(ctx context.Context, command string) (*Result, error)

	// Save persists the configuration. A false return means the
	// configuration was not saved; Save never returns an error because
	// "not saved" is a reportable outcome, not a fatal one.
	Save(ctx context.Context) bool
}

// FDBEntry is one normalized forwarding-database record.
type FDBEntry struct {
	// MAC in canonical lowercase colon-separated form.
	MAC string

	// VLAN tag as reported by the device.
	VLAN string

	// Port the address was learned on.
	Port string
}

// VLAN is one normalized VLAN record.
type VLAN struct {
	Name string
	Tag  string
}

// Port is one normalized port/interface record.
type Port struct {
	Name        string
	Description string
	AdminUp     bool
	OperUp      bool
}
