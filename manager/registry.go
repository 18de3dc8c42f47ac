package manager

import (
	"fmt"
	"sort"
	"time"

	"github.com/nocware/netexec/types"
)

// DriverFactory builds a driver for one device.
type DriverFactory func(cfg types.DeviceConfig) (types.Driver, error)

// Defaults are the per-vendor connection defaults applied to device
// configs that leave the corresponding field zero.
type Defaults struct {
	Protocol types.Protocol
	Port     int
	Timeout  time.Duration
}

// DriverSpec is everything the manager needs to know about one vendor.
type DriverSpec struct {
	New      DriverFactory
	Defaults Defaults
	Commands CommandTable
}

// Registry maps vendors to their driver specs. Populate at startup; not
// safe for concurrent mutation.
type Registry struct {
	specs map[types.Vendor]DriverSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[types.Vendor]DriverSpec)}
}

// Register adds a vendor. The command table is validated here so a broken
// binding surfaces at startup.
func (r *Registry) Register(vendor types.Vendor, spec DriverSpec) error {
	if spec.New == nil {
		return fmt.Errorf("vendor %s: nil driver factory", vendor)
	}
	if err := spec.Commands.Validate(); err != nil {
		return fmt.Errorf("vendor %s: %w", vendor, err)
	}
	r.specs[vendor] = spec
	return nil
}

// Lookup returns the spec for a vendor.
func (r *Registry) Lookup(vendor types.Vendor) (DriverSpec, bool) {
	spec, ok := r.specs[vendor]
	return spec, ok
}

// Vendors lists the registered vendors in stable order.
func (r *Registry) Vendors() []types.Vendor {
	out := make([]types.Vendor, 0, len(r.specs))
	for v := range r.specs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
