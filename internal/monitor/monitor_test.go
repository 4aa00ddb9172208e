package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sigreer/baylight/internal/config"
	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/led"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/zfs"
	"github.com/stretchr/testify/suite"
	"github.com/xmidt-org/chronon"
)

type stubResolver struct {
	devices   map[int]string
	refreshes int
}

func (s *stubResolver) Resolve(_ context.Context, i int) (string, bool) {
	d, ok := s.devices[i]
	return d, ok
}

func (s *stubResolver) Refresh() { s.refreshes++ }

type stubNetwork health.Verdict

func (s stubNetwork) Check(context.Context) health.Verdict { return health.Verdict(s) }

type stubSmart map[string]health.Verdict

func (s stubSmart) Check(_ context.Context, dev string) health.Verdict {
	if v, ok := s[dev]; ok {
		return v
	}
	return health.Verdictf(health.Healthy, "passed")
}

type stubPools struct {
	reports []zfs.PoolReport
	err     error
	calls   int
}

func (s *stubPools) Snapshot(context.Context) ([]zfs.PoolReport, error) {
	s.calls++
	return s.reports, s.err
}

const scrubbing = "  scan: scrub in progress since Sun Mar  9 00:24:01 2025\n" +
	"\tsda     ONLINE       0     0     0\n" +
	"\tsdb     ONLINE       0     0     0\n"

type MonitorTestSuite struct {
	suite.Suite

	start time.Time
	clock *chronon.FakeClock

	cfg      *config.Config
	resolver *stubResolver
	pools    *stubPools
	smart    stubSmart
	driver   *led.Memory
}

func (suite *MonitorTestSuite) SetupTest() {
	logging.Discard()
	suite.start = time.Now()
	suite.clock = chronon.NewFakeClock(suite.start)

	suite.cfg = config.Default()
	suite.resolver = &stubResolver{devices: map[int]string{1: "/dev/sdb", 2: "/dev/sda"}}
	suite.pools = &stubPools{reports: []zfs.PoolReport{{Name: "tank", Token: "ONLINE", Status: scrubbing}}}
	suite.smart = stubSmart{"/dev/sdb": health.Verdictf(health.Critical, "exit bit 4")}
	suite.driver = led.NewMemory()
}

func (suite *MonitorTestSuite) newMonitor() *Monitor {
	m := New(suite.cfg, Deps{
		Resolver: suite.resolver,
		Network:  stubNetwork(health.Verdictf(health.Warning, "target unreachable")),
		Smart:    suite.smart,
		Pools:    suite.pools,
		Driver:   suite.driver,
		Exists:   func(string) bool { return true },
	})
	m.now = suite.clock.Now
	return m
}

func (suite *MonitorTestSuite) assertLED(n led.Name, c led.Color, brightness uint8, on bool) {
	s, ok := suite.driver.State(n)
	suite.Require().True(ok, "%s never written", n)
	suite.Equal(led.State{Color: c, Brightness: brightness, On: on}, s, n)
}

func (suite *MonitorTestSuite) TestBindings() {
	suite.cfg.Domains.Scrub = true
	suite.cfg.Indicators.Scrub = led.Netdev
	suite.cfg.Domains.Network = false
	suite.cfg.Indicators.Disks = suite.cfg.Indicators.Disks[:2]

	suite.Equal([]Binding{
		{Indicator: led.Power, Domain: health.Pool, Slot: NoSlot},
		{Indicator: led.Netdev, Domain: health.Scrub, Slot: NoSlot},
		{Indicator: led.Disk(1), Domain: health.Disk, Slot: 0},
		{Indicator: led.Disk(2), Domain: health.Disk, Slot: 1},
	}, BuildIndicatorBindings(suite.cfg))

	suite.cfg.Domains.Smart = false
	suite.cfg.Domains.ZFSDisks = false
	suite.Len(BuildIndicatorBindings(suite.cfg), 2)
}

func (suite *MonitorTestSuite) TestCycleAbsentAndCriticalBays() {
	m := suite.newMonitor()
	res := m.RunCycle(context.Background())

	suite.NotEmpty(res.ID)
	suite.Equal(1, suite.resolver.refreshes)
	suite.Equal(1, suite.pools.calls, "pool snapshot is shared within a cycle")

	bay0, ok := res.Output(led.Disk(1))
	suite.Require().True(ok)
	suite.Equal(health.Absent, bay0.State)
	suite.Empty(bay0.Device)
	suite.assertLED(led.Disk(1), suite.cfg.Colors.Disabled, 0, false)

	bay1, _ := res.Output(led.Disk(2))
	suite.Equal(health.Critical, bay1.State)
	suite.Equal("/dev/sdb", bay1.Device)
	suite.True(bay1.Applied)
	suite.assertLED(led.Disk(2), led.RGB(255, 0, 0), 255, true)

	bay2, _ := res.Output(led.Disk(3))
	suite.Equal(health.Healthy, bay2.State)

	pool, _ := res.Output(led.Power)
	suite.Equal(health.ScrubActive, pool.State)
	suite.assertLED(led.Power, led.RGB(255, 128, 0), 255, true)

	net, _ := res.Output(led.Netdev)
	suite.Equal(health.Warning, net.State)
	suite.assertLED(led.Netdev, led.RGB(255, 255, 0), 255, true)

	suite.Len(res.Outputs, 2+8)
}

func (suite *MonitorTestSuite) TestDiskCombinesSmartAndPool() {
	suite.pools.reports = []zfs.PoolReport{{
		Name: "tank", Token: "DEGRADED",
		Status: "\tsda     FAULTED      0     0     0\n\tsdb     ONLINE       0     0     0\n",
	}}
	suite.smart = stubSmart{"/dev/sda": health.Verdictf(health.Warning, "error log")}

	res := suite.newMonitor().RunCycle(context.Background())
	out, _ := res.Output(led.Disk(3))
	suite.Equal(health.Faulted, out.State)
	suite.assertLED(led.Disk(3), led.RGB(255, 0, 0), 255, true)
}

func (suite *MonitorTestSuite) TestUnknownIsDistinctFromAbsent() {
	suite.smart = stubSmart{"/dev/sda": health.Verdictf(health.Unavailable, "smartctl unavailable")}
	suite.pools.err = fmt.Errorf("zpool: %w", fault.ErrProbeUnavailable)

	res := suite.newMonitor().RunCycle(context.Background())

	out, _ := res.Output(led.Disk(3))
	suite.Equal(health.Unavailable, out.State)
	suite.NotEqual(suite.cfg.Colors.Disabled, out.Color)
	suite.Equal(BrightnessFull, out.Brightness)

	pool, _ := res.Output(led.Power)
	suite.Equal(health.Unavail, pool.State)
	suite.Equal(led.RGB(0, 0, 255), pool.Color)
}

func (suite *MonitorTestSuite) TestPoolProbeErrorIsUnknown() {
	suite.pools.err = errors.New("zpool wedged")
	res := suite.newMonitor().RunCycle(context.Background())

	pool, _ := res.Output(led.Power)
	suite.Equal(health.Unknown, pool.State)
	bay, _ := res.Output(led.Disk(3))
	suite.Equal(health.Unknown, bay.State)
}

func (suite *MonitorTestSuite) TestNoPools() {
	suite.pools.reports = nil
	res := suite.newMonitor().RunCycle(context.Background())
	pool, _ := res.Output(led.Power)
	suite.Equal(health.Unavail, pool.State)
}

func (suite *MonitorTestSuite) TestScrubIndicator() {
	suite.cfg.Domains.Network = false
	suite.cfg.Domains.Scrub = true
	suite.cfg.Indicators.Scrub = led.Netdev

	res := suite.newMonitor().RunCycle(context.Background())
	out, _ := res.Output(led.Netdev)
	suite.Equal(health.ScrubActive, out.State)
	suite.assertLED(led.Netdev, led.RGB(255, 128, 0), 255, true)

	suite.pools.reports[0].Status = "  scan: scrub repaired 0B in 01:00:00 with 0 errors on Sun Mar  9 2025\n"
	res = suite.newMonitor().RunCycle(context.Background())
	out, _ = res.Output(led.Netdev)
	suite.Equal(health.Healthy, out.State)
	suite.assertLED(led.Netdev, led.RGB(0, 255, 0), BrightnessIdle, true)
}

func (suite *MonitorTestSuite) TestDriverFailureDoesNotStopCycle() {
	suite.driver.FailOn(led.Power, errors.New("i2c"))
	m := New(suite.cfg, Deps{
		Resolver: suite.resolver,
		Pools:    suite.pools,
		Smart:    suite.smart,
		Driver:   led.NewBestEffort(suite.driver),
		Exists:   func(string) bool { return true },
	})

	res := m.RunCycle(context.Background())
	suite.Len(res.Outputs, 10)

	pool, _ := res.Output(led.Power)
	suite.False(pool.Applied)
	bay, _ := res.Output(led.Disk(2))
	suite.Equal(health.Critical, bay.State, "evaluation continues without output")
}

func (suite *MonitorTestSuite) TestDisabledOutputIsNotApplied() {
	suite.driver.FailOn(led.Power, errors.New("i2c"))
	driver := led.NewBestEffort(suite.driver)
	m := New(suite.cfg, Deps{
		Resolver: suite.resolver,
		Network:  stubNetwork(health.Verdictf(health.Healthy, "link up")),
		Pools:    suite.pools,
		Smart:    suite.smart,
		Driver:   driver,
		Exists:   func(string) bool { return true },
	})

	res := m.RunCycle(context.Background())
	suite.True(driver.Disabled())

	net, _ := res.Output(led.Netdev)
	suite.True(net.Applied, "written before the failure")
	for _, out := range res.Outputs[1:] {
		suite.False(out.Applied, out.Indicator)
	}

	res = m.RunCycle(context.Background())
	for _, out := range res.Outputs {
		suite.False(out.Applied, out.Indicator)
	}
}

func (suite *MonitorTestSuite) TestDiskOutsideEveryPool() {
	suite.cfg.Domains.Smart = false
	suite.resolver.devices = map[int]string{0: "/dev/sdc", 1: "/dev/sda"}

	res := suite.newMonitor().RunCycle(context.Background())

	out, _ := res.Output(led.Disk(1))
	suite.Equal(health.NotInPool, out.State)
	suite.Equal("sdc not in any pool", out.Reason)
	suite.assertLED(led.Disk(1), led.RGB(0, 0, 255), 255, true)

	member, _ := res.Output(led.Disk(2))
	suite.Equal(health.Healthy, member.State)

	suite.cfg.Colors.Disk[health.NotInPool] = led.RGB(255, 0, 255)
	suite.newMonitor().RunCycle(context.Background())
	suite.assertLED(led.Disk(1), led.RGB(255, 0, 255), 255, true)
}

func (suite *MonitorTestSuite) TestRunStopsOnCancel() {
	suite.cfg.Interval = 30

	cycles := make(chan CycleResult, 10)
	timers := make(chan time.Duration, 10)

	m := suite.newMonitor()
	m.OnCycle = func(r CycleResult) { cycles <- r }
	m.newTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
		t := suite.clock.NewTimer(d)
		timers <- d
		return t.C(), t.Stop
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	receive(suite, cycles)
	suite.Equal(30*time.Second, receive(suite, timers))

	suite.clock.Add(30 * time.Second)
	second := receive(suite, cycles)
	suite.Equal(suite.start.Add(30*time.Second), second.Started)
	receive(suite, timers)

	cancel()
	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(time.Second):
		suite.Fail("Run did not stop within a second of cancellation")
	}

	suite.Len(cycles, 0, "no cycle after cancellation")
	s, _ := suite.driver.State(led.Power)
	suite.False(s.On, "indicators switched off on exit")
}

func (suite *MonitorTestSuite) TestRunRejectsBadInterval() {
	suite.cfg.Interval = 0
	suite.Error(suite.newMonitor().Run(context.Background()))
}

func (suite *MonitorTestSuite) TestTurnOff() {
	suite.NoError(TurnOff(context.Background(), suite.driver, led.Names...))
	for _, n := range led.Names {
		s, ok := suite.driver.State(n)
		suite.True(ok)
		suite.False(s.On)
	}

	suite.driver.FailOn(led.Power, errors.New("i2c"))
	suite.Error(TurnOff(context.Background(), suite.driver, led.Power, led.Netdev))
}

func (suite *MonitorTestSuite) TestNewDriver() {
	for _, kind := range []string{"cli", "sysfs", "none"} {
		suite.cfg.LED.Driver = kind
		d, err := NewDriver(suite.cfg, nil)
		suite.NoError(err)
		suite.NotNil(d)
	}
	suite.cfg.LED.Driver = "i2c"
	_, err := NewDriver(suite.cfg, nil)
	suite.ErrorIs(err, fault.ErrInvalidConfig)
}

// receive reads one value or fails the test after a second.
func receive[T any](suite *MonitorTestSuite, ch chan T) T {
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		suite.FailNow("timed out waiting on channel")
	}
	var zero T
	return zero
}

func TestMonitor(t *testing.T) {
	suite.Run(t, new(MonitorTestSuite))
}
