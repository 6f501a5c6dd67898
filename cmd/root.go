// Package cmd defines the CLI commands for the pitchindex executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pitchindex",
		Short: "Checkpointed crawler for the country/league/team hierarchy.",
		Long: `pitchindex walks a football-data site's country, league and team pages
with a headless browser and persists a resumable snapshot. A run can be
killed at any point; restarting skips every league already fetched.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; env vars with PITCHINDEX_ prefix also apply)")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
