package config

import (
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/led"
)

// StateColors maps states to indicator colors for one domain.
type StateColors map[health.State]led.Color

// Colors holds the per-domain color tables.
type Colors struct {
	// Disabled is shown, at zero brightness, on bays without a drive
	Disabled led.Color   `yaml:"disabled"`
	Network  StateColors `yaml:"network"`
	Smart    StateColors `yaml:"smart"`
	Pool     StateColors `yaml:"pool"`
	Disk     StateColors `yaml:"disk"`
	Scrub    StateColors `yaml:"scrub"`
}

var (
	green  = led.RGB(0, 255, 0)
	yellow = led.RGB(255, 255, 0)
	red    = led.RGB(255, 0, 0)
	blue   = led.RGB(0, 0, 255)
	orange = led.RGB(255, 128, 0)
	cyan   = led.RGB(0, 255, 255)
	purple = led.RGB(128, 0, 255)
	grey   = led.RGB(64, 64, 64)
)

// DefaultColors returns the built-in tables.
func DefaultColors() Colors {
	return Colors{
		Disabled: led.Off,
		Network: StateColors{
			health.Healthy:  green,
			health.Warning:  yellow,
			health.Critical: red,
			health.Unknown:  blue,
		},
		Smart: StateColors{
			health.Healthy:     green,
			health.Warning:     yellow,
			health.Critical:    red,
			health.Unavailable: blue,
			health.NotFound:    grey,
		},
		Pool: StateColors{
			health.Healthy:        green,
			health.Degraded:       yellow,
			health.Faulted:        red,
			health.Unavail:        blue,
			health.Unknown:        blue,
			health.ScrubActive:    orange,
			health.ResilverActive: cyan,
			health.ScrubErrors:    purple,
		},
		// Bay indicators show SMART and pool membership combined
		Disk: StateColors{
			health.Healthy:     green,
			health.NotInPool:   blue,
			health.Warning:     yellow,
			health.Degraded:    yellow,
			health.Critical:    red,
			health.Faulted:     red,
			health.Unavailable: blue,
			health.Unknown:     blue,
			health.NotFound:    grey,
		},
		Scrub: StateColors{
			health.Healthy:        green,
			health.ScrubActive:    orange,
			health.ResilverActive: cyan,
			health.ScrubErrors:    purple,
		},
	}
}

func (c Colors) table(d health.Domain) StateColors {
	switch d {
	case health.Network:
		return c.Network
	case health.Smart:
		return c.Smart
	case health.Pool:
		return c.Pool
	case health.Disk:
		return c.Disk
	case health.Scrub:
		return c.Scrub
	}
	return nil
}

// For returns the color of state s in domain d. States missing from the
// table fall back to the domain's Unknown color, then to blue.
func (c Colors) For(d health.Domain, s health.State) led.Color {
	t := c.table(d)
	if col, ok := t[s]; ok {
		return col
	}
	if col, ok := t[health.Unknown]; ok {
		return col
	}
	return blue
}
