package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lotto",
	Short: "Signal orchestration and confluence engine",
	Long: `lotto-machine

Schedules intelligence checkers, scores their signals against market
context, and dispatches deduplicated, rate-limited alerts with outcome
tracking.

Usage:
  go run ./cmd/lotto [command]

Examples:
  go run ./cmd/lotto run
  go run ./cmd/lotto api
  go run ./cmd/lotto report --source darkpool --days 30
  go run ./cmd/lotto status`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
