package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/led"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/slot"
	"gopkg.in/yaml.v3"
)

// Config is the baylight configuration
type Config struct {
	// Seconds between monitoring cycles
	Interval      int        `yaml:"interval"`
	TurnOffOnExit bool       `yaml:"turn_off_on_exit"`
	Domains       Domains    `yaml:"domains"`
	Network       Network    `yaml:"network"`
	Mapping       Mapping    `yaml:"mapping"`
	ZFS           ZFS        `yaml:"zfs"`
	Indicators    Indicators `yaml:"indicators"`
	LED           LED        `yaml:"led"`
	Colors        Colors     `yaml:"colors"`
	Log           Log        `yaml:"log"`

	// Path is the file the config was read from, empty for built-in defaults
	Path string `yaml:"-"`
}

// Domains toggles each family of checks.
type Domains struct {
	Network  bool `yaml:"network"`
	Smart    bool `yaml:"smart"`
	ZFSPools bool `yaml:"zfs_pools"`
	ZFSDisks bool `yaml:"zfs_disks"`
	Scrub    bool `yaml:"scrub"`
}

// Network configures the link and connectivity check
type Network struct {
	// Interfaces to watch; empty auto-detects
	Interfaces  []string `yaml:"interfaces,omitempty"`
	PingTarget  string   `yaml:"ping_target"`
	PingCount   int      `yaml:"ping_count"`
	PingTimeout int      `yaml:"ping_timeout"`
}

// Mapping selects how bays are matched to block devices
type Mapping struct {
	// Strategy is "ata", "hctl" or "serial"
	Strategy string   `yaml:"strategy"`
	Serials  []string `yaml:"serials,omitempty"`
}

// ZFS lists the pools to monitor
type ZFS struct {
	// Pools to watch; empty watches every imported pool
	Pools []string `yaml:"pools,omitempty"`
}

// Indicators binds each domain to a panel LED
type Indicators struct {
	Network led.Name   `yaml:"network"`
	Pool    led.Name   `yaml:"pool"`
	Scrub   led.Name   `yaml:"scrub"`
	Disks   []led.Name `yaml:"disks"`
}

// LED selects and configures the indicator driver
type LED struct {
	// Driver is "cli", "sysfs" or "none"
	Driver    string `yaml:"driver"`
	CLIPath   string `yaml:"cli_path"`
	SysfsRoot string `yaml:"sysfs_root"`
}

// Log configures logging output
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration. Every call returns fresh maps.
func Default() *Config {
	return &Config{
		Interval:      30,
		TurnOffOnExit: true,
		Domains: Domains{
			Network:  true,
			Smart:    true,
			ZFSPools: true,
			ZFSDisks: true,
		},
		Network: Network{
			PingTarget:  "8.8.8.8",
			PingCount:   1,
			PingTimeout: 3,
		},
		Mapping: Mapping{Strategy: string(slot.ByControllerPort)},
		Indicators: Indicators{
			Network: led.Netdev,
			Pool:    led.Power,
			Disks: []led.Name{
				led.Disk(1), led.Disk(2), led.Disk(3), led.Disk(4),
				led.Disk(5), led.Disk(6), led.Disk(7), led.Disk(8),
			},
		},
		LED: LED{
			Driver:    "cli",
			CLIPath:   "ugreen_leds_cli",
			SysfsRoot: led.DefaultSysfsRoot,
		},
		Colors: DefaultColors(),
		Log:    Log{Level: "info", Format: "text"},
	}
}

// Load reads the config at path, or the first existing candidate when path
// is empty. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		candidates := []string{
			"/etc/baylight/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/baylight/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := Default()
	if path == "" {
		logging.Component("config").Debug("no config file found, using defaults")
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Path = path

	// Apply defaults for zeroed fields
	def := Default()
	if cfg.Network.PingCount == 0 {
		cfg.Network.PingCount = def.Network.PingCount
	}
	if cfg.Network.PingTimeout == 0 {
		cfg.Network.PingTimeout = def.Network.PingTimeout
	}
	if cfg.Mapping.Strategy == "" {
		cfg.Mapping.Strategy = def.Mapping.Strategy
	}
	if cfg.LED.Driver == "" {
		cfg.LED.Driver = def.LED.Driver
	}
	if cfg.LED.CLIPath == "" {
		cfg.LED.CLIPath = def.LED.CLIPath
	}
	if cfg.LED.SysfsRoot == "" {
		cfg.LED.SysfsRoot = def.LED.SysfsRoot
	}

	return cfg, nil
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format+": %w", append(args, fault.ErrInvalidConfig)...))
	}

	if c.Interval <= 0 {
		bad("interval must be positive, got %d", c.Interval)
	}
	st, err := slot.ParseStrategy(c.Mapping.Strategy)
	if err != nil {
		errs = append(errs, err)
	} else if st == slot.BySerialNumber && len(c.Mapping.Serials) == 0 {
		bad("mapping.serials is required for the serial strategy")
	}
	if len(c.Mapping.Serials) > slot.Bays {
		bad("mapping.serials lists %d drives, the panel has %d bays", len(c.Mapping.Serials), slot.Bays)
	}
	if len(c.Indicators.Disks) > slot.Bays {
		bad("indicators.disks lists %d indicators, the panel has %d bays", len(c.Indicators.Disks), slot.Bays)
	}
	for _, n := range c.Indicators.all() {
		if n != "" && !led.Valid(n) {
			bad("indicator %q: %w", n, fault.ErrUnknownIndicator)
		}
	}
	c.checkIndicatorsUnique(bad)
	if c.Network.PingCount < 1 || c.Network.PingTimeout < 1 {
		bad("network.ping_count and network.ping_timeout must be at least 1")
	}
	switch c.LED.Driver {
	case "cli", "sysfs", "none":
	default:
		bad("led.driver %q", c.LED.Driver)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		bad("log.format %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

// checkIndicatorsUnique rejects two enabled domains driving one indicator.
func (c *Config) checkIndicatorsUnique(bad func(string, ...any)) {
	seen := make(map[led.Name]string)
	use := func(n led.Name, owner string) {
		if n == "" {
			return
		}
		if prev, ok := seen[n]; ok {
			bad("indicator %q is bound to both %s and %s", n, prev, owner)
			return
		}
		seen[n] = owner
	}

	if c.Domain(health.Network) {
		use(c.Indicators.Network, "network")
	}
	if c.Domain(health.Pool) {
		use(c.Indicators.Pool, "pools")
	}
	if c.Domain(health.Scrub) {
		use(c.Indicators.Scrub, "scrub")
	}
	if c.Domain(health.Smart) || c.Domain(health.Disk) {
		for i, n := range c.Indicators.Disks {
			use(n, fmt.Sprintf("bay %d", i+1))
		}
	}
}

func (i Indicators) all() []led.Name {
	return append([]led.Name{i.Network, i.Pool, i.Scrub}, i.Disks...)
}

// Strategy returns the parsed mapping strategy. Call Validate first.
func (c *Config) Strategy() slot.Strategy {
	st, _ := slot.ParseStrategy(c.Mapping.Strategy)
	return st
}

// Marshal renders the effective config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Domain reports whether a health domain is enabled.
func (c *Config) Domain(d health.Domain) bool {
	switch d {
	case health.Network:
		return c.Domains.Network
	case health.Smart:
		return c.Domains.Smart
	case health.Pool:
		return c.Domains.ZFSPools
	case health.Disk:
		return c.Domains.ZFSDisks
	case health.Scrub:
		return c.Domains.Scrub && c.Indicators.Scrub != ""
	}
	return false
}
