package zfs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/probe"
)

// Prober reads pool health from the zpool tool.
type Prober struct {
	Runner probe.Runner
	// Pools restricts monitoring to the named pools. Empty means every
	// imported pool.
	Pools []string

	log *slog.Logger
}

// NewProber returns a Prober.
func NewProber(r probe.Runner, pools []string) *Prober {
	return &Prober{Runner: r, Pools: lo.Uniq(pools), log: logging.Component("zfs")}
}

// ListPools returns the imported pool names in zpool order.
func (p *Prober) ListPools(ctx context.Context) ([]string, error) {
	res, err := p.Runner.Run(ctx, probe.Cmd("zpool", "list", "-H", "-o", "name"))
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("zpool list exited %d: %s: %w", res.ExitCode,
			strings.TrimSpace(res.Combined()), fault.ErrProbeUnavailable)
	}

	var pools []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			pools = append(pools, line)
		}
	}
	return pools, nil
}

// Report fetches the health token and status text of one pool. Failures
// leave the fields empty, which classify as Unknown.
func (p *Prober) Report(ctx context.Context, pool string) PoolReport {
	r := PoolReport{Name: pool}

	if res, err := p.Runner.Run(ctx, probe.Cmd("zpool", "list", "-H", "-o", "health", pool)); err != nil {
		p.log.Debug("zpool health failed", "pool", pool, "error", err)
	} else if res.ExitCode == 0 {
		r.Token = strings.TrimSpace(res.Stdout)
	}

	if res, err := p.Runner.Run(ctx, probe.Cmd("zpool", "status", "-vL", pool)); err != nil {
		p.log.Debug("zpool status failed", "pool", pool, "error", err)
	} else if res.ExitCode == 0 {
		r.Status = res.Stdout
	}
	return r
}

// Snapshot reports every monitored pool. Configured pools that are not
// imported are still reported and classify as Unknown. The error wraps
// fault.ErrProbeUnavailable when zpool itself cannot run.
func (p *Prober) Snapshot(ctx context.Context) ([]PoolReport, error) {
	imported, err := p.ListPools(ctx)
	if err != nil {
		return nil, err
	}

	names := imported
	if len(p.Pools) > 0 {
		names = p.Pools
		if missing := lo.Without(p.Pools, imported...); len(missing) > 0 {
			p.log.Warn("configured pools not imported", "pools", missing)
		}
	}

	reports := make([]PoolReport, 0, len(names))
	for _, name := range names {
		if !lo.Contains(imported, name) {
			reports = append(reports, PoolReport{Name: name})
			continue
		}
		reports = append(reports, p.Report(ctx, name))
	}
	return reports, nil
}
