package main

import (
	"github.com/sigreer/baylight/internal/led"
	"github.com/sigreer/baylight/internal/monitor"
	"github.com/sigreer/baylight/internal/probe"
	"github.com/spf13/cobra"
)

var dryRun bool

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run a single cycle and print what each indicator shows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := background(cmd)

		var driver led.Driver
		if dryRun {
			driver = led.NewMemory()
		}
		m, err := monitor.Build(ctx, cfg, probe.Exec{}, driver)
		if err != nil {
			return err
		}
		printCycle(m.RunCycle(ctx))
		return nil
	},
}

func init() {
	testCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "evaluate without touching the indicators")
}
