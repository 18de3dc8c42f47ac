// Package config loads optional library settings from a YAML file:
// per-vendor connection defaults, the NETCONF ignore list, and the
// enumeration timeout. Everything has a sensible zero value, so callers
// that never ship a file still work.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// VendorDefaults overrides the built-in connection defaults of one vendor.
type VendorDefaults struct {
	Protocol string        `mapstructure:"protocol"`
	Port     int           `mapstructure:"port"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Config is the loaded settings tree. Zero fields mean "use the built-in
// default".
type Config struct {
	// Vendors keys on the vendor identifier (cisco_ios, extreme_xos,
	// juniper_junos).
	Vendors map[string]VendorDefaults `mapstructure:"vendors"`

	NetConf struct {
		// IgnoreErrors replaces the default remote error ignore list.
		IgnoreErrors []string `mapstructure:"ignore_errors"`
	} `mapstructure:"netconf"`

	Manager struct {
		// ViewTimeout bounds the enumeration commands.
		ViewTimeout time.Duration `mapstructure:"view_timeout"`
	} `mapstructure:"manager"`
}

// Load reads the file at path. An empty path or a missing file is not an
// error and yields an all-defaults Config; a present but malformed file is.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Vendor returns the overrides for one vendor identifier, zero when absent.
func (c *Config) Vendor(name string) VendorDefaults {
	if c == nil || c.Vendors == nil {
		return VendorDefaults{}
	}
	return c.Vendors[name]
}
