package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/probe"
	"github.com/sigreer/baylight/internal/slot"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which block device sits in each bay",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := background(cmd)
		r, err := slot.NewResolver(ctx, probe.Exec{}, cfg.Strategy(), cfg.Mapping.Serials)
		if err != nil {
			return err
		}
		printResolution(r, r.Table(ctx))
		return nil
	},
}

func printResolution(r *slot.Resolver, rows []slot.Resolution) {
	product := r.Product()
	if product == "" {
		product = "unknown"
	}
	fmt.Printf("Model: %s   Strategy: %s\n", product, r.Mapping().Strategy())

	t := newTable(table.Row{"Bay", "Key", "Device", "Model", "Serial", "Size"})
	for _, row := range rows {
		dev := row.Device
		if !row.Found {
			dev = stateText(health.NotFound)
		}
		t.AppendRow(table.Row{row.Index + 1, row.Key, dev, row.Model, row.Serial, sizeText(row.Size)})
	}
	t.Render()
}
