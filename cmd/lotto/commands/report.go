package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fjkiani/lotto-machine-sub000/internal/store"
	"github.com/fjkiani/lotto-machine-sub000/pkg/config"
	"github.com/fjkiani/lotto-machine-sub000/pkg/database"
	"github.com/fjkiani/lotto-machine-sub000/pkg/logger"
)

// reportCmd prints the performance summary per (source, kind).
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print signal performance per source",
	Long: `Aggregates realized outcomes per (source, kind): signal counts,
5-day win rate and average returns.

Example:
  go run ./cmd/lotto report
  go run ./cmd/lotto report --source darkpool --days 30`,
	RunE: runReport,
}

var (
	reportSource string
	reportDays   int
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportSource, "source", "", "filter to one source")
	reportCmd.Flags().IntVar(&reportDays, "days", 90, "lookback window in days")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	signalStore := store.New(db.Pool, log.Zerolog())

	since := time.Now().AddDate(0, 0, -reportDays)
	summary, err := signalStore.Report(cmd.Context(), reportSource, since)
	if err != nil {
		return fmt.Errorf("report query: %w", err)
	}

	fmt.Printf("=== Signal Performance (last %d days) ===\n\n", reportDays)

	if len(summary.Groups) == 0 {
		fmt.Println("No signals in window.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tKIND\tSIGNALS\tVALIDATED\tWIN 5D\tAVG 1D\tAVG 5D")
	for _, g := range summary.Groups {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f%%\t%+.2f%%\t%+.2f%%\n",
			g.Source, g.Kind, g.Signals, g.Validated,
			g.WinRate5D*100, g.AvgReturn1D, g.AvgReturn5D)
	}
	return w.Flush()
}
