package monitor

import (
	"github.com/sigreer/baylight/internal/config"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/led"
)

// NoSlot marks bindings that are not tied to a drive bay.
const NoSlot = -1

// Binding ties a health domain, and for bays a slot index, to an indicator.
type Binding struct {
	Indicator led.Name
	Domain    health.Domain
	Slot      int
}

// BuildIndicatorBindings derives the bindings of enabled domains, in the
// order network, pool, scrub, then bays in slot order. Domains without an
// indicator are skipped.
func BuildIndicatorBindings(cfg *config.Config) []Binding {
	var bs []Binding
	add := func(n led.Name, d health.Domain, slot int) {
		if n != "" {
			bs = append(bs, Binding{Indicator: n, Domain: d, Slot: slot})
		}
	}

	if cfg.Domain(health.Network) {
		add(cfg.Indicators.Network, health.Network, NoSlot)
	}
	if cfg.Domain(health.Pool) {
		add(cfg.Indicators.Pool, health.Pool, NoSlot)
	}
	if cfg.Domain(health.Scrub) {
		add(cfg.Indicators.Scrub, health.Scrub, NoSlot)
	}
	if cfg.Domain(health.Smart) || cfg.Domain(health.Disk) {
		for i, n := range cfg.Indicators.Disks {
			add(n, health.Disk, i)
		}
	}
	return bs
}
