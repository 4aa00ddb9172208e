package main

import (
	"fmt"

	"github.com/sigreer/baylight/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	// no config needed
	PersistentPreRun: func(*cobra.Command, []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("baylight", version.Version)
	},
}
