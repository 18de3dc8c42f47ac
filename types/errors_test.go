package types

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorChainUnwrapsToSentinel(t *testing.T) {
	inner := &CommandError{Device: "sw1", Command: "enable", Cause: CauseEOF, Err: ErrNoConnection}
	outer := &ManagerError{Vendor: VendorCiscoIOS, Device: "sw1",
		Err: &VendorError{Vendor: VendorCiscoIOS, Device: "sw1", Err: inner}}

	if !errors.Is(outer, ErrNoConnection) {
		t.Error("chain does not unwrap to ErrNoConnection")
	}

	var ce *CommandError
	if !errors.As(outer, &ce) {
		t.Fatal("chain does not expose *CommandError")
	}
	if ce.Cause != CauseEOF {
		t.Errorf("cause = %s, want %s", ce.Cause, CauseEOF)
	}
}

func TestModeErrorMessage(t *testing.T) {
	tests := []struct {
		err  *ModeError
		want string
	}{
		{&ModeError{Device: "sw1", Mode: "configuration", Enter: true}, `can not enter configuration mode on "sw1"`},
		{&ModeError{Device: "sw1", Mode: "configuration", Enter: false}, `can not exit configuration mode on "sw1"`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestConnectionErrorWithoutInner(t *testing.T) {
	err := &ConnectionError{Device: "sw1", Cause: CauseAuth}
	if !strings.Contains(err.Error(), string(CauseAuth)) {
		t.Errorf("message %q misses cause", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("Unwrap of bare connection error should be nil")
	}
}

func TestDeviceErrorCarriesOutput(t *testing.T) {
	err := &DeviceError{Device: "x460", Command: "create vlan test tag 11",
		Output: "Error: 802.1Q Tag 11 is assigned to VLAN test."}
	if !strings.Contains(err.Error(), "802.1Q Tag 11") {
		t.Errorf("message %q misses device output", err.Error())
	}
}
