package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "Watchdog - per-window screen time viewer",
	Long: `Watchdog reads the per-window usage log recorded by the tracker and shows a
ranked, color-coded breakdown of where the day went. It refreshes once a second
and can run interactively, headless under systemd, or as a one-shot report.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the interactive view when no subcommand is provided
		return runWatch(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/watchdog/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&watchDate, "date", "", "Date to show (YYYY-MM-DD, default today)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
