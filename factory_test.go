package netexec

import (
	"testing"
	"time"

	"github.com/nocware/netexec/config"
	"github.com/nocware/netexec/manager"
	"github.com/nocware/netexec/types"
)

func TestDefaultRegistryVendors(t *testing.T) {
	r := DefaultRegistry()
	want := []types.Vendor{types.VendorCiscoIOS, types.VendorExtremeXOS, types.VendorJuniperJunOS}
	got := r.Vendors()
	if len(got) != len(want) {
		t.Fatalf("vendors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vendors[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegistrySpecsComplete(t *testing.T) {
	r := DefaultRegistry()
	intents := []manager.Intent{manager.IntentForwardingTable, manager.IntentVLANs, manager.IntentPorts}
	for _, vendor := range r.Vendors() {
		spec, ok := r.Lookup(vendor)
		if !ok {
			t.Fatalf("vendor %s not found", vendor)
		}
		if spec.New == nil {
			t.Errorf("vendor %s: nil factory", vendor)
		}
		if spec.Defaults.Port == 0 || spec.Defaults.Protocol == "" {
			t.Errorf("vendor %s: incomplete defaults %+v", vendor, spec.Defaults)
		}
		for _, intent := range intents {
			if _, ok := spec.Commands[intent]; !ok {
				t.Errorf("vendor %s: no command for %s", vendor, intent)
			}
		}
	}
}

func TestCiscoFdbPattern(t *testing.T) {
	cmd := ciscoCommands[manager.IntentForwardingTable]
	recs := cmd.Extract.Records(&types.Result{Lines: []string{
		"          Mac Address Table",
		"Vlan    Mac Address       Type        Ports",
		"  10    aabb.ccdd.eeff    DYNAMIC     Gi1/0/1",
	}})
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1: %v", len(recs), recs)
	}
	if recs[0]["vlan"] != "10" || recs[0]["mac"] != "aabb.ccdd.eeff" || recs[0]["port"] != "Gi1/0/1" {
		t.Errorf("record = %v", recs[0])
	}
}

func TestExtremeFdbPattern(t *testing.T) {
	cmd := extremeCommands[manager.IntentForwardingTable]
	recs := cmd.Extract.Records(&types.Result{Lines: []string{
		"Mac                     Vlan       Age  Flags         Port / Virtual Port List",
		"00:11:22:33:44:55       v10(0010)  0020 d m           1",
	}})
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1: %v", len(recs), recs)
	}
	if recs[0]["mac"] != "00:11:22:33:44:55" || recs[0]["port"] != "1" {
		t.Errorf("record = %v", recs[0])
	}
}

func TestJuniperFdbPaths(t *testing.T) {
	tree, err := types.ParseTree(`
<ethernet-switching-table-information>
  <ethernet-switching-table>
    <mac-table-entry>
      <mac-address>00:11:22:33:44:55</mac-address>
      <mac-vlan>v10</mac-vlan>
      <mac-interfaces-list>
        <mac-interfaces>ge-0/0/1.0</mac-interfaces>
      </mac-interfaces-list>
    </mac-table-entry>
  </ethernet-switching-table>
</ethernet-switching-table-information>`)
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	cmd := juniperCommands[manager.IntentForwardingTable]
	recs := cmd.Extract.Records(&types.Result{Tree: tree})
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0]["mac"] != "00:11:22:33:44:55" || recs[0]["vlan"] != "v10" || recs[0]["port"] != "ge-0/0/1.0" {
		t.Errorf("record = %v", recs[0])
	}
}

func TestNewManagerAppliesConfig(t *testing.T) {
	cfg := &config.Config{
		Vendors: map[string]config.VendorDefaults{
			"cisco_ios": {Protocol: "telnet", Port: 2323, Timeout: 10 * time.Second},
		},
	}
	m, err := NewManager(types.VendorCiscoIOS, types.DeviceConfig{Address: "192.0.2.1"}, cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m == nil {
		t.Fatal("nil manager")
	}
}

func TestNewManagerNilConfig(t *testing.T) {
	if _, err := NewManager(types.VendorJuniperJunOS, types.DeviceConfig{Address: "192.0.2.3"}, nil); err != nil {
		t.Fatalf("NewManager: %v", err)
	}
}

func TestNewManagerUnknownVendor(t *testing.T) {
	if _, err := NewManager(types.Vendor("NoSuch"), types.DeviceConfig{Address: "192.0.2.1"}, nil); err == nil {
		t.Error("expected error for unknown vendor")
	}
}
