// Package netexec ties the vendor drivers together: a default registry
// with each vendor's factory, connection defaults and intent command
// table, plus a convenience constructor that folds in file configuration.
package netexec

import (
	"time"

	"github.com/nocware/netexec/config"
	"github.com/nocware/netexec/manager"
	"github.com/nocware/netexec/types"
	"github.com/nocware/netexec/vendors/cisco"
	"github.com/nocware/netexec/vendors/extreme"
	"github.com/nocware/netexec/vendors/juniper"
)

// Vendor identifiers as used in configuration files.
const (
	cfgCiscoIOS     = "cisco_ios"
	cfgExtremeXOS   = "extreme_xos"
	cfgJuniperJunOS = "juniper_junos"
)

var ciscoCommands = manager.CommandTable{
	manager.IntentForwardingTable: {
		Cmd: "show mac address-table",
		Extract: manager.Extraction{
			Kind:    manager.ExtractLinePattern,
			Pattern: `^\s*(?P<vlan>\d+)\s+(?P<mac>[0-9a-fA-F.]+)\s+\S+\s+(?P<port>\S+)\s*$`,
		},
	},
	manager.IntentVLANs: {
		Cmd: "show vlan brief",
		Extract: manager.Extraction{
			Kind:    manager.ExtractLinePattern,
			Pattern: `^(?P<tag>\d+)\s+(?P<name>\S+)\s+active`,
		},
	},
	manager.IntentPorts: {
		Cmd: "show interfaces description",
		Extract: manager.Extraction{
			Kind:    manager.ExtractLinePattern,
			Pattern: `^(?P<name>\S+)\s+(?P<admin_status>admin down|up|down)\s+(?P<oper_status>up|down)\s*(?P<description>.*)$`,
		},
	},
}

var extremeCommands = manager.CommandTable{
	manager.IntentForwardingTable: {
		Cmd: "show fdb",
		Extract: manager.Extraction{
			Kind:    manager.ExtractLinePattern,
			Pattern: `^(?P<mac>(?:[0-9a-f]{2}:){5}[0-9a-f]{2})\s+(?P<vlan>\S+)\s+.*\s(?P<port>\S+)\s*$`,
		},
	},
	manager.IntentVLANs: {
		Cmd: "show vlan",
		Extract: manager.Extraction{
			Kind:    manager.ExtractLinePattern,
			Pattern: `^(?P<name>\S+)\s+(?P<tag>\d+)\s+`,
		},
	},
	manager.IntentPorts: {
		Cmd: "show ports information",
		Extract: manager.Extraction{
			Kind:    manager.ExtractLinePattern,
			Pattern: `^(?P<name>\d+)\s+(?P<description>\S*)\s+\S+\s+(?P<admin_status>[ED])\s+(?P<oper_status>[ARNL])`,
		},
	},
}

var juniperCommands = manager.CommandTable{
	manager.IntentForwardingTable: {
		Cmd: "show ethernet-switching table",
		Extract: manager.Extraction{
			Kind: manager.ExtractTreePath,
			Path: "ethernet-switching-table-information/ethernet-switching-table/mac-table-entry",
			Fields: map[string]string{
				"mac":  "mac-address",
				"vlan": "mac-vlan",
				"port": "mac-interfaces-list/mac-interfaces",
			},
		},
	},
	manager.IntentVLANs: {
		Cmd: "show vlans",
		Extract: manager.Extraction{
			Kind: manager.ExtractTreePath,
			Path: "vlan-information/vlan",
			Fields: map[string]string{
				"name": "vlan-name",
				"tag":  "vlan-tag",
			},
		},
	},
	manager.IntentPorts: {
		Cmd: "show interfaces descriptions",
		Extract: manager.Extraction{
			Kind: manager.ExtractTreePath,
			Path: "interface-information/physical-interface",
			Fields: map[string]string{
				"name":         "name",
				"admin_status": "admin-status",
				"oper_status":  "oper-status",
				"description":  "description",
			},
		},
	},
}

// DefaultRegistry builds a registry with all supported vendors.
func DefaultRegistry() *manager.Registry {
	return registryWith(nil)
}

// registryWith parameterizes the registry on the NETCONF ignore list so
// file configuration can reach the JunOS driver.
func registryWith(netconfIgnore []string) *manager.Registry {
	r := manager.NewRegistry()
	mustRegister(r, types.VendorCiscoIOS, manager.DriverSpec{
		New: func(cfg types.DeviceConfig) (types.Driver, error) {
			return cisco.NewDriver(cfg)
		},
		Defaults: manager.Defaults{Protocol: types.ProtocolSSH, Port: 22, Timeout: 5 * time.Second},
		Commands: ciscoCommands,
	})
	mustRegister(r, types.VendorExtremeXOS, manager.DriverSpec{
		New: func(cfg types.DeviceConfig) (types.Driver, error) {
			return extreme.NewDriver(cfg)
		},
		Defaults: manager.Defaults{Protocol: types.ProtocolSSH, Port: 22, Timeout: 5 * time.Second},
		Commands: extremeCommands,
	})
	mustRegister(r, types.VendorJuniperJunOS, manager.DriverSpec{
		New: func(cfg types.DeviceConfig) (types.Driver, error) {
			d, err := juniper.NewDriver(cfg)
			if err != nil {
				return nil, err
			}
			if netconfIgnore != nil {
				d.SetIgnoreErrors(netconfIgnore)
			}
			return d, nil
		},
		Defaults: manager.Defaults{Protocol: types.ProtocolNETCONF, Port: 830, Timeout: 5 * time.Second},
		Commands: juniperCommands,
	})
	return r
}

func mustRegister(r *manager.Registry, vendor types.Vendor, spec manager.DriverSpec) {
	if err := r.Register(vendor, spec); err != nil {
		panic(err)
	}
}

// Vendors lists the vendors the default registry supports.
func Vendors() []types.Vendor {
	return DefaultRegistry().Vendors()
}

// NewManager builds a manager for one device from the default registry,
// applying any file configuration on top of the built-in vendor defaults.
// cfg may be nil.
func NewManager(vendor types.Vendor, device types.DeviceConfig, cfg *config.Config, opts ...manager.Option) (*manager.Manager, error) {
	var netconfIgnore []string
	if cfg != nil {
		netconfIgnore = cfg.NetConf.IgnoreErrors
		vd := cfg.Vendor(configKey(vendor))
		if device.Protocol == "" && vd.Protocol != "" {
			device.Protocol = types.Protocol(vd.Protocol)
		}
		if device.Port == 0 && vd.Port != 0 {
			device.Port = vd.Port
		}
		if device.Timeout == 0 && vd.Timeout != 0 {
			device.Timeout = vd.Timeout
		}
		if cfg.Manager.ViewTimeout != 0 {
			opts = append([]manager.Option{manager.WithViewTimeout(cfg.Manager.ViewTimeout)}, opts...)
		}
	}
	return manager.New(registryWith(netconfIgnore), vendor, device, opts...)
}

func configKey(vendor types.Vendor) string {
	switch vendor {
	case types.VendorCiscoIOS:
		return cfgCiscoIOS
	case types.VendorExtremeXOS:
		return cfgExtremeXOS
	case types.VendorJuniperJunOS:
		return cfgJuniperJunOS
	}
	return string(vendor)
}
