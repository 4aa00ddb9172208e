// Package monitor runs the sequential health cycle: probe every enabled
// domain, aggregate per indicator and write the result to the panel.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sigreer/baylight/internal/config"
	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/led"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/probe"
	"github.com/sigreer/baylight/internal/zfs"
)

// Brightness levels
const (
	BrightnessFull   = led.MaxBrightness
	BrightnessIdle   = 128
	BrightnessAbsent = 0
)

// SlotResolver maps bay indexes to devices.
type SlotResolver interface {
	Resolve(ctx context.Context, index int) (string, bool)
	Refresh()
}

// NetworkChecker classifies link health.
type NetworkChecker interface {
	Check(ctx context.Context) health.Verdict
}

// DiskChecker classifies one drive's self-assessment.
type DiskChecker interface {
	Check(ctx context.Context, device string) health.Verdict
}

// PoolSource reports pool health once per cycle.
type PoolSource interface {
	Snapshot(ctx context.Context) ([]zfs.PoolReport, error)
}

// Deps are the probes and the driver a Monitor works with. Probes for
// disabled domains may be nil.
type Deps struct {
	Resolver SlotResolver
	Network  NetworkChecker
	Smart    DiskChecker
	Pools    PoolSource
	Driver   led.Driver
	// Exists checks device nodes; defaults to probe.PathExists
	Exists func(string) bool
}

// Output is the decision for one indicator in one cycle.
type Output struct {
	Indicator  led.Name
	Domain     health.Domain
	Slot       int
	Device     string
	State      health.State
	Reason     string
	Color      led.Color
	Brightness uint8
	Applied    bool
}

// CycleResult is everything decided in one cycle. It is not retained.
type CycleResult struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Outputs  []Output
}

// Output returns the decision for indicator n.
func (r CycleResult) Output(n led.Name) (Output, bool) {
	for _, o := range r.Outputs {
		if o.Indicator == n {
			return o, true
		}
	}
	return Output{}, false
}

// Monitor drives the indicators from health probes.
type Monitor struct {
	cfg      *config.Config
	deps     Deps
	bindings []Binding

	// OnCycle, when set, receives every finished cycle.
	OnCycle func(CycleResult)

	now      func() time.Time
	newTimer newTimer
	last     map[led.Name]health.State
	log      *slog.Logger
}

// New returns a Monitor for cfg.
func New(cfg *config.Config, deps Deps) *Monitor {
	if deps.Exists == nil {
		deps.Exists = probe.PathExists
	}
	if deps.Driver == nil {
		deps.Driver = led.Nop{}
	}
	return &Monitor{
		cfg:      cfg,
		deps:     deps,
		bindings: BuildIndicatorBindings(cfg),
		now:      time.Now,
		newTimer: defaultNewTimer,
		last:     make(map[led.Name]health.State),
		log:      logging.Component("monitor"),
	}
}

// Bindings returns the indicator bindings in evaluation order.
func (m *Monitor) Bindings() []Binding {
	return append([]Binding(nil), m.bindings...)
}

// Run executes cycles until ctx is cancelled, waiting the configured
// interval between them. Cancellation is a clean stop and returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	interval := time.Duration(m.cfg.Interval) * time.Second
	if interval <= 0 {
		return errors.New("monitor interval must be positive")
	}

	m.log.Info("monitor started", "interval", interval, "indicators", len(m.bindings))
	for ctx.Err() == nil {
		m.RunCycle(ctx)
		if !m.wait(ctx, interval) {
			break
		}
	}

	if m.cfg.TurnOffOnExit {
		err := m.TurnOff(context.WithoutCancel(ctx))
		switch {
		case errors.Is(err, led.ErrOutputDisabled):
			m.log.Debug("indicators left as is, output disabled")
		case err != nil:
			m.log.Warn("turning indicators off", "error", err)
		}
	}
	m.log.Info("monitor stopped")
	return nil
}

// wait blocks for d or until ctx is done, reporting whether the full
// interval elapsed.
func (m *Monitor) wait(ctx context.Context, d time.Duration) bool {
	ch, stop := m.newTimer(d)
	defer stop()

	select {
	case <-ctx.Done():
		return false
	case <-ch:
		return true
	}
}

// RunCycle evaluates every binding once and writes the indicators.
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	res := CycleResult{ID: uuid.NewString(), Started: m.now()}
	log := m.log.With("cycle", res.ID)

	if m.deps.Resolver != nil {
		m.deps.Resolver.Refresh()
	}
	pools := &poolCache{src: m.deps.Pools}

	for _, b := range m.bindings {
		if ctx.Err() != nil {
			break
		}
		out := m.evaluate(ctx, b, pools)

		err := led.Apply(ctx, m.deps.Driver, out.Indicator, out.Color, out.Brightness)
		out.Applied = err == nil
		if err != nil {
			log.Debug("indicator write failed", "indicator", out.Indicator, "error", err)
		}

		m.report(log, out)
		res.Outputs = append(res.Outputs, out)
	}

	res.Duration = m.now().Sub(res.Started)
	log.Debug("cycle finished", "duration", res.Duration, "outputs", len(res.Outputs))
	if m.OnCycle != nil {
		m.OnCycle(res)
	}
	return res
}

func (m *Monitor) report(log *slog.Logger, out Output) {
	attrs := []any{"indicator", out.Indicator, "state", out.State, "reason", out.Reason}
	if out.Device != "" {
		attrs = append(attrs, "device", out.Device)
	}
	if prev, seen := m.last[out.Indicator]; !seen || prev != out.State {
		log.Info("indicator state", append(attrs, "previous", prev)...)
	} else {
		log.Debug("indicator state", attrs...)
	}
	m.last[out.Indicator] = out.State
}

func (m *Monitor) evaluate(ctx context.Context, b Binding, pools *poolCache) Output {
	out := Output{Indicator: b.Indicator, Domain: b.Domain, Slot: b.Slot, Brightness: BrightnessFull}

	var v health.Verdict
	switch b.Domain {
	case health.Network:
		v = m.checkNetwork(ctx)
	case health.Pool:
		v = m.checkPools(ctx, pools)
	case health.Scrub:
		v = m.checkScrub(ctx, pools)
		if v.State != health.ScrubActive && v.State != health.ResilverActive {
			out.Brightness = BrightnessIdle
		}
	case health.Disk:
		dev, ok := m.resolve(ctx, b.Slot)
		if !ok {
			out.State = health.Absent
			out.Reason = "no drive in bay"
			out.Color = m.cfg.Colors.Disabled
			out.Brightness = BrightnessAbsent
			return out
		}
		out.Device = dev
		v = m.checkDisk(ctx, dev, pools)
	default:
		v = health.Verdictf(health.Unknown, "unbound domain")
	}

	out.State, out.Reason = v.State, v.Reason
	out.Color = m.cfg.Colors.For(b.Domain, v.State)
	return out
}

func (m *Monitor) resolve(ctx context.Context, slot int) (string, bool) {
	if m.deps.Resolver == nil {
		return "", false
	}
	return m.deps.Resolver.Resolve(ctx, slot)
}

func (m *Monitor) checkNetwork(ctx context.Context) health.Verdict {
	if m.deps.Network == nil {
		return health.Verdictf(health.Unknown, "no network probe")
	}
	return m.deps.Network.Check(ctx)
}

func (m *Monitor) checkPools(ctx context.Context, pools *poolCache) health.Verdict {
	reports, err := pools.get(ctx)
	switch {
	case errors.Is(err, fault.ErrProbeUnavailable):
		return health.Verdictf(health.Unavail, "zpool unavailable")
	case err != nil:
		return health.Verdictf(health.Unknown, err.Error())
	}
	return zfs.ClassifyPools(reports)
}

func (m *Monitor) checkScrub(ctx context.Context, pools *poolCache) health.Verdict {
	reports, err := pools.get(ctx)
	if err != nil {
		return health.Verdictf(health.Unknown, "pool status unavailable")
	}
	return zfs.ClassifyScrub(reports)
}

// checkDisk combines the SMART verdict with pool membership for one device.
func (m *Monitor) checkDisk(ctx context.Context, dev string, pools *poolCache) health.Verdict {
	var vs []health.Verdict

	if m.cfg.Domain(health.Smart) && m.deps.Smart != nil {
		vs = append(vs, m.deps.Smart.Check(ctx, dev))
	}
	if m.cfg.Domain(health.Disk) {
		vs = append(vs, m.checkDiskInPool(ctx, dev, pools))
	}
	return health.AggregateVerdicts(vs...)
}

func (m *Monitor) checkDiskInPool(ctx context.Context, dev string, pools *poolCache) health.Verdict {
	if !m.deps.Exists(dev) {
		return health.Verdictf(health.NotFound, dev+" not present")
	}
	reports, err := pools.get(ctx)
	switch {
	case errors.Is(err, fault.ErrProbeUnavailable):
		return health.Verdictf(health.NotInPool, "zpool unavailable")
	case err != nil:
		return health.Verdictf(health.Unknown, "pool status unavailable")
	}
	return zfs.ClassifyDisk(dev, reports)
}

// TurnOff switches every bound indicator off.
func (m *Monitor) TurnOff(ctx context.Context) error {
	names := make([]led.Name, len(m.bindings))
	for i, b := range m.bindings {
		names[i] = b.Indicator
	}
	return TurnOff(ctx, m.deps.Driver, names...)
}

// TurnOff switches the named indicators off, continuing past failures.
func TurnOff(ctx context.Context, d led.Driver, names ...led.Name) error {
	var errs []error
	for _, n := range names {
		if err := d.SetEnabled(ctx, n, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// poolCache fetches the pool snapshot at most once per cycle.
type poolCache struct {
	src     PoolSource
	done    bool
	reports []zfs.PoolReport
	err     error
}

func (c *poolCache) get(ctx context.Context) ([]zfs.PoolReport, error) {
	if c.done {
		return c.reports, c.err
	}
	c.done = true
	if c.src == nil {
		c.err = errNoPoolSource
		return nil, c.err
	}
	c.reports, c.err = c.src.Snapshot(ctx)
	return c.reports, c.err
}

var errNoPoolSource = fmt.Errorf("no pool probe configured: %w", fault.ErrProbeUnavailable)
