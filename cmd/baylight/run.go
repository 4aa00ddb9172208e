package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/monitor"
	"github.com/sigreer/baylight/internal/probe"
	"github.com/sigreer/baylight/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor continuously and keep the indicators current",
	Long: `Run a monitoring cycle every interval until interrupted. On SIGINT or
SIGTERM the indicators are switched off unless turn_off_on_exit is false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m, err := monitor.Build(ctx, cfg, probe.Exec{}, nil)
		if err != nil {
			return err
		}

		log := logging.Component("main")
		log.Info("baylight starting",
			"version", version.Version,
			"config", cfg.Path,
			"interval", cfg.Interval,
			"driver", cfg.LED.Driver,
			"indicators", len(m.Bindings()))
		return m.Run(ctx)
	},
}

func init() {
	runCmd.Flags().IntP("interval", "i", 0, "seconds between cycles (overrides config)")
	_ = viper.BindPFlag("interval", runCmd.Flags().Lookup("interval"))
}

// background is the context for one-shot commands.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
