package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/led"
	"github.com/sigreer/baylight/internal/monitor"
	"github.com/sigreer/baylight/internal/probe"
	"github.com/sigreer/baylight/internal/slot"
	"github.com/sigreer/baylight/internal/smart"
	"github.com/sigreer/baylight/internal/zfs"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Dump configuration, bay mapping, SMART and pool details",
	Long: `Print everything baylight knows about the host: the effective
configuration, the bay to device mapping, per drive SMART details, ZFS pool
state and finally what each indicator would show. Indicators are not
touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := background(cmd)
		r := probe.Exec{}

		printConfigSummary()

		var devices []string
		if cfg.Domain(health.Smart) || cfg.Domain(health.Disk) {
			res, err := slot.NewResolver(ctx, r, cfg.Strategy(), cfg.Mapping.Serials)
			if err != nil {
				return err
			}
			rows := res.Table(ctx)
			fmt.Println()
			title("Bays")
			printResolution(res, rows)
			devices = lo.FilterMap(rows, func(row slot.Resolution, _ int) (string, bool) {
				return row.Device, row.Found
			})
		}

		if cfg.Domain(health.Smart) && len(devices) > 0 {
			fmt.Println()
			title("SMART")
			p := smart.NewProber(r)
			t := newTable(table.Row{"Device", "Model", "Serial", "Health", "State", "Temp", "Realloc", "Pending"})
			for _, dev := range devices {
				rep := p.Report(ctx, dev)
				t.AppendRow(table.Row{rep.Device, rep.Model, rep.Serial, rep.Health,
					stateText(rep.Verdict.State), tempText(rep.Attributes.Temperature),
					rep.Attributes.ReallocatedSectors, rep.Attributes.PendingSectors})
			}
			t.Render()
		}

		if cfg.Domain(health.Pool) || cfg.Domain(health.Disk) || cfg.Domain(health.Scrub) {
			fmt.Println()
			title("ZFS pools")
			printPools(ctx, zfs.NewProber(r, cfg.ZFS.Pools))
		}

		fmt.Println()
		title("Indicators")
		m, err := monitor.Build(ctx, cfg, r, led.NewMemory())
		if err != nil {
			return err
		}
		printCycle(m.RunCycle(ctx))
		return nil
	},
}

func printConfigSummary() {
	title("Configuration")
	path := cfg.Path
	if path == "" {
		path = "(built-in defaults)"
	}
	enabled := lo.Filter(health.Domains, func(d health.Domain, _ int) bool { return cfg.Domain(d) })

	t := newTable(table.Row{"Setting", "Value"})
	t.AppendRows([]table.Row{
		{"config", path},
		{"interval", fmt.Sprintf("%ds", cfg.Interval)},
		{"domains", strings.Join(lo.Map(enabled, func(d health.Domain, _ int) string { return string(d) }), ", ")},
		{"mapping", cfg.Mapping.Strategy},
		{"led driver", cfg.LED.Driver},
		{"ping target", cfg.Network.PingTarget},
		{"turn off on exit", cfg.TurnOffOnExit},
	})
	t.Render()
}

func printPools(ctx context.Context, p *zfs.Prober) {
	reports, err := p.Snapshot(ctx)
	if err != nil {
		fmt.Println(stateText(health.Unavail), err)
		return
	}
	if len(reports) == 0 {
		fmt.Println("no pools imported")
		return
	}

	t := newTable(table.Row{"Pool", "Vdev", "State", "Read", "Write", "Cksum", "Verdict"})
	for _, rep := range reports {
		v := zfs.ClassifyPool(rep.Token, rep.Status)
		t.AppendRow(table.Row{rep.Name, "", lo.Ternary(rep.Token == "", "-", rep.Token), "", "", "", stateText(v.State)})
		for _, ph := range zfs.ParseStatus(rep.Status) {
			for _, leaf := range ph.Leaves() {
				t.AppendRow(table.Row{"", leaf.Name, leaf.State, leaf.ReadErrs, leaf.WriteErrs, leaf.CksumErrs, ""})
			}
			if ph.ScanMessage != "" {
				t.AppendRow(table.Row{"", "scan", ph.ScanState, "", "", "", ph.ScanMessage})
			}
		}
		t.AppendSeparator()
	}
	t.Render()
}

func tempText(c int64) string {
	if c == 0 {
		return "-"
	}
	return fmt.Sprintf("%d°C", c)
}
