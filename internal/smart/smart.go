// Package smart classifies drive self-assessment results reported by
// smartctl.
package smart

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/probe"
)

// ExitBit documents one bit of the smartctl exit status.
type ExitBit struct {
	Bit     uint
	Meaning string
	State   health.State
}

// ExitBits is the smartctl exit status table. Bit 5 is informational and
// maps to Healthy.
var ExitBits = []ExitBit{
	{0, "command line did not parse", health.Unavailable},
	{1, "device open failed or device did not return identify data", health.Unavailable},
	{2, "SMART command failed or checksum error in a data structure", health.Unavailable},
	{3, "SMART status check returned DISK FAILING", health.Critical},
	{4, "prefail attributes at or below threshold", health.Critical},
	{5, "usage attributes were at or below threshold in the past", health.Healthy},
	{6, "device error log contains errors", health.Warning},
	{7, "self-test log contains errors", health.Warning},
}

// Classify maps a smartctl -H exit status and its output to a state.
// The most severe set bit wins; an explicit FAILED verdict in the output is
// Critical regardless of the exit status.
func Classify(exitCode int, output string) health.Verdict {
	if failed, line := failedVerdict(output); failed {
		return health.Verdictf(health.Critical, line)
	}
	if exitCode < 0 {
		return health.Verdictf(health.Unavailable, "smartctl did not exit normally")
	}

	worst := health.Verdictf(health.Healthy, "self-assessment passed")
	for _, b := range ExitBits {
		if exitCode&(1<<b.Bit) == 0 {
			continue
		}
		if health.Rank(b.State) > health.Rank(worst.State) {
			worst = health.Verdictf(b.State, fmt.Sprintf("exit bit %d: %s", b.Bit, b.Meaning))
		}
	}
	return worst
}

var (
	ataResultRe  = regexp.MustCompile(`(?m)^SMART overall-health self-assessment test result:\s*(\S+)`)
	scsiStatusRe = regexp.MustCompile(`(?m)^SMART Health Status:\s*(.+)$`)
)

func failedVerdict(output string) (bool, string) {
	if m := ataResultRe.FindStringSubmatch(output); m != nil {
		if strings.HasPrefix(m[1], "FAILED") {
			return true, strings.TrimSpace(m[0])
		}
		return false, ""
	}
	if m := scsiStatusRe.FindStringSubmatch(output); m != nil {
		if strings.TrimSpace(m[1]) != "OK" {
			return true, strings.TrimSpace(m[0])
		}
	}
	return false, ""
}

// HealthText extracts PASSED, FAILED or UNKNOWN from smartctl -H output.
func HealthText(output string) string {
	if failed, _ := failedVerdict(output); failed {
		return "FAILED"
	}
	if strings.Contains(output, "PASSED") || scsiStatusRe.MatchString(output) {
		return "PASSED"
	}
	return "UNKNOWN"
}

// DevicePath turns "sda" into "/dev/sda" and leaves paths alone.
func DevicePath(device string) string {
	if strings.HasPrefix(device, "/") {
		return device
	}
	return "/dev/" + device
}

// Prober runs smartctl against block devices.
type Prober struct {
	Runner probe.Runner
	Exists func(path string) bool

	log *slog.Logger
}

// NewProber returns a Prober that checks device nodes with probe.PathExists.
func NewProber(r probe.Runner) *Prober {
	return &Prober{Runner: r, Exists: probe.PathExists, log: logging.Component("smart")}
}

// Check classifies one device. A missing device node is NotFound and a
// missing smartctl is Unavailable.
func (p *Prober) Check(ctx context.Context, device string) health.Verdict {
	v, _ := p.check(ctx, DevicePath(device))
	return v
}

func (p *Prober) check(ctx context.Context, path string) (health.Verdict, string) {
	if !p.Exists(path) {
		return health.Verdictf(health.NotFound, path+" not present"), ""
	}

	res, err := p.Runner.Run(ctx, probe.Cmd("smartctl", "-H", path))
	if err != nil {
		p.log.Debug("smartctl unavailable", "device", path, "error", err)
		return health.Verdictf(health.Unavailable, "smartctl unavailable"), ""
	}

	v := Classify(res.ExitCode, res.Stdout)
	p.log.Debug("smart checked", "device", path, "exit", res.ExitCode, "state", v.State)
	return v, res.Stdout
}

// Attributes holds the counters shown in the status dump.
type Attributes struct {
	Temperature        int64
	ReallocatedSectors int64
	PendingSectors     int64
}

var rawValueRe = regexp.MustCompile(`^\d+`)

// ParseAttributes reads the ATA attribute table of smartctl -A. Rows are
// ID NAME FLAG VALUE WORST THRESH TYPE UPDATED WHEN_FAILED RAW_VALUE.
func ParseAttributes(output string) Attributes {
	var a Attributes
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 10 {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		raw, err := strconv.ParseInt(rawValueRe.FindString(fields[9]), 10, 64)
		if err != nil {
			continue
		}

		switch fields[1] {
		case "Temperature_Celsius":
			a.Temperature = raw
		case "Airflow_Temperature_Cel":
			if a.Temperature == 0 {
				a.Temperature = raw
			}
		case "Reallocated_Sector_Ct":
			a.ReallocatedSectors = raw
		case "Current_Pending_Sector":
			a.PendingSectors = raw
		}
	}
	return a
}

// Report is the detailed view of one device.
type Report struct {
	Device     string
	Verdict    health.Verdict
	Health     string
	Model      string
	Serial     string
	Attributes Attributes
}

var (
	modelRe  = regexp.MustCompile(`(?m)^(?:Device Model|Product|Model Number):\s+(.+)$`)
	serialRe = regexp.MustCompile(`(?m)^Serial [Nn]umber:\s+(.+)$`)
)

// Report gathers identity, health and attributes for the status dump.
func (p *Prober) Report(ctx context.Context, device string) Report {
	path := DevicePath(device)
	r := Report{Device: path, Health: "UNKNOWN"}

	var out string
	r.Verdict, out = p.check(ctx, path)
	if out == "" && r.Verdict.State != health.Healthy {
		return r
	}
	r.Health = HealthText(out)

	if res, err := p.Runner.Run(ctx, probe.Cmd("smartctl", "-i", path)); err == nil {
		if m := modelRe.FindStringSubmatch(res.Stdout); m != nil {
			r.Model = strings.TrimSpace(m[1])
		}
		if m := serialRe.FindStringSubmatch(res.Stdout); m != nil {
			r.Serial = strings.TrimSpace(m[1])
		}
	}
	if res, err := p.Runner.Run(ctx, probe.Cmd("smartctl", "-A", path)); err == nil {
		r.Attributes = ParseAttributes(res.Stdout)
	}
	return r
}
