package main

import (
	"fmt"

	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/led"
	"github.com/sigreer/baylight/internal/monitor"
	"github.com/sigreer/baylight/internal/probe"
	"github.com/spf13/cobra"
)

var offCmd = &cobra.Command{
	Use:   "off [indicator...]",
	Short: "Switch indicators off (all of them by default)",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := led.Names
		if len(args) > 0 {
			names = nil
			for _, a := range args {
				n := led.Name(a)
				if !led.Valid(n) {
					return fmt.Errorf("%q: %w", a, fault.ErrUnknownIndicator)
				}
				names = append(names, n)
			}
		}

		d, err := monitor.NewDriver(cfg, probe.Exec{})
		if err != nil {
			return err
		}
		return monitor.TurnOff(background(cmd), d, names...)
	},
}
