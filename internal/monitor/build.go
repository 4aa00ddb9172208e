package monitor

import (
	"context"
	"fmt"

	"github.com/sigreer/baylight/internal/config"
	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/led"
	"github.com/sigreer/baylight/internal/network"
	"github.com/sigreer/baylight/internal/probe"
	"github.com/sigreer/baylight/internal/slot"
	"github.com/sigreer/baylight/internal/smart"
	"github.com/sigreer/baylight/internal/zfs"
)

// NewDriver returns the configured indicator driver.
func NewDriver(cfg *config.Config, r probe.Runner) (led.Driver, error) {
	switch cfg.LED.Driver {
	case "cli":
		return led.NewCLI(r, cfg.LED.CLIPath), nil
	case "sysfs":
		return led.NewSysfs(cfg.LED.SysfsRoot), nil
	case "none":
		return led.Nop{}, nil
	}
	return nil, fmt.Errorf("led driver %q: %w", cfg.LED.Driver, fault.ErrInvalidConfig)
}

// Build wires the host probes for every enabled domain. A nil driver
// selects the configured one; either way it is wrapped in led.BestEffort.
func Build(ctx context.Context, cfg *config.Config, r probe.Runner, driver led.Driver) (*Monitor, error) {
	var deps Deps

	if driver == nil {
		d, err := NewDriver(cfg, r)
		if err != nil {
			return nil, err
		}
		driver = d
	}
	deps.Driver = led.NewBestEffort(driver)

	if cfg.Domain(health.Network) {
		deps.Network = network.NewProber(r, cfg.Network.Interfaces,
			cfg.Network.PingTarget, cfg.Network.PingCount, cfg.Network.PingTimeout)
	}
	if cfg.Domain(health.Smart) {
		deps.Smart = smart.NewProber(r)
	}
	if cfg.Domain(health.Pool) || cfg.Domain(health.Disk) || cfg.Domain(health.Scrub) {
		deps.Pools = zfs.NewProber(r, cfg.ZFS.Pools)
	}
	if cfg.Domain(health.Smart) || cfg.Domain(health.Disk) {
		res, err := slot.NewResolver(ctx, r, cfg.Strategy(), cfg.Mapping.Serials)
		if err != nil {
			return nil, err
		}
		deps.Resolver = res
	}

	return New(cfg, deps), nil
}
