package cmd

import (
	"github.com/spf13/cobra"
)

var (
	collectorURL string
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:   "glbridge",
	Short: "GhostLink bridge CLI",
	Long: `glbridge is the command-line interface for the GhostLink bridge stack.

Drive normalization worker runs, inspect normalized events, tail the
dead-letter stream, and seed synthetic traffic from your terminal.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&collectorURL, "collector-url", "http://localhost:8098", "collector base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON instead of tables")
}
