package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sigreer/baylight/internal/config"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "baylight",
	Short: "Drive NAS front panel LEDs from network, disk and ZFS health",
	Long: `baylight watches network links, drive SMART status and ZFS pools and
shows the result on the front panel RGB indicators of UGREEN style NAS
chassis: one indicator for the network, one for the pools and one per bay.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		return initLogging(cfg)
	},
}

func loadConfig() (*config.Config, error) {
	c, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// flags and BAYLIGHT_* variables win over the file
	if viper.IsSet("interval") {
		c.Interval = viper.GetInt("interval")
	}
	if viper.IsSet("log-level") {
		c.Log.Level = viper.GetString("log-level")
	}
	if viper.IsSet("log-format") {
		c.Log.Format = viper.GetString("log-format")
	}
	if viper.IsSet("led-driver") {
		c.LED.Driver = viper.GetString("led-driver")
	}
	applyDomainFlags(c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyDomainFlags narrows the enabled domains for --*-only flags.
func applyDomainFlags(c *config.Config) {
	switch {
	case viper.GetBool("network-only"):
		c.Domains = config.Domains{Network: true}
	case viper.GetBool("disks-only"):
		c.Domains = config.Domains{Smart: c.Domains.Smart, ZFSDisks: c.Domains.ZFSDisks}
	case viper.GetBool("pools-only"):
		c.Domains = config.Domains{ZFSPools: true, Scrub: c.Domains.Scrub}
	}
}

func initLogging(c *config.Config) error {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	logging.Init(level, c.Log.Format == "json")
	return nil
}

func init() {
	viper.SetEnvPrefix("BAYLIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is /etc/baylight/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("led-driver", "", "indicator driver: cli, sysfs or none")
	flags.Bool("network-only", false, "only monitor the network")
	flags.Bool("disks-only", false, "only monitor drive bays")
	flags.Bool("pools-only", false, "only monitor ZFS pools")
	rootCmd.MarkFlagsMutuallyExclusive("network-only", "disks-only", "pools-only")

	for _, name := range []string{"config", "log-level", "log-format", "led-driver", "network-only", "disks-only", "pools-only"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
