package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SUBNETSWEEP_STORE_PATH.
const EnvPrefix = "SUBNETSWEEP"

// Settings is the typed view of the runtime settings.
type Settings struct {
	Scan      ScanSettings     `mapstructure:"scan"`
	ICMP      ICMPSettings     `mapstructure:"icmp"`
	Neighbors NeighborSettings `mapstructure:"neighbors"`
	Store     StoreSettings    `mapstructure:"store"`
	Metrics   MetricsSettings  `mapstructure:"metrics"`
	Log       LogSettings      `mapstructure:"log"`
	Hardware  HardwareSettings `mapstructure:"hardware"`
	Report    ReportSettings   `mapstructure:"report"`
}

// ScanSettings controls subnet derivation and probe admission.
type ScanSettings struct {
	// LoopbackPolicy is "interface" or "address".
	LoopbackPolicy string `mapstructure:"loopback_policy"`
	MaxInFlight    int64  `mapstructure:"max_in_flight"`
}

// ICMPSettings selects the echo engine.
type ICMPSettings struct {
	// Engine is "session" or "pinger".
	Engine string `mapstructure:"engine"`
}

// NeighborSettings enables mDNS neighbor discovery.
type NeighborSettings struct {
	// An empty Services list queries the built-in service types.
	MDNS     bool          `mapstructure:"mdns"`
	Services []string      `mapstructure:"services"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StoreSettings locates the sweep history database.
type StoreSettings struct {
	// Path of the SQLite history database. Empty disables history.
	Path string `mapstructure:"path"`
}

// MetricsSettings configures the Prometheus textfile export.
type MetricsSettings struct {
	// Textfile is written in the node_exporter textfile format. Empty
	// disables metrics.
	Textfile string `mapstructure:"textfile"`
}

// LogSettings sets verbosity and the optional rotating log file.
type LogSettings struct {
	// Verbosity is the -v count: 0 warn, 1 info, 2 and above debug.
	Verbosity  int    `mapstructure:"verbosity"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ReportSettings configures the copy of the rendered report.
type ReportSettings struct {
	// File receives a copy of the rendered tree. Empty writes stdout only.
	File string `mapstructure:"file"`
}

// HardwareSettings bounds the hardware description lookup.
type HardwareSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers a default for every settings key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scan.loopback_policy", "interface")
	v.SetDefault("scan.max_in_flight", 1024)
	v.SetDefault("icmp.engine", "session")
	v.SetDefault("neighbors.mdns", false)
	v.SetDefault("neighbors.services", []string{})
	v.SetDefault("neighbors.timeout", "3s")
	v.SetDefault("store.path", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("log.verbosity", 0)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("hardware.timeout", "10s")
	v.SetDefault("report.file", "")
}

// NewViper returns a viper instance with defaults and environment overrides
// applied. When path is set that file must exist and parse; otherwise
// subnetsweep.yaml is looked up in the working directory and ignored when
// absent.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("subnetsweep")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}
	return v, nil
}

// Load decodes the typed settings out of c.
func (c *Config) Load() (Settings, error) {
	var s Settings
	if err := c.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.Log.Verbosity < 0 {
		return Settings{}, fmt.Errorf("log.verbosity must not be negative, got %d", s.Log.Verbosity)
	}
	if s.Scan.MaxInFlight < 0 {
		return Settings{}, fmt.Errorf("scan.max_in_flight must not be negative, got %d", s.Scan.MaxInFlight)
	}
	return s, nil
}
