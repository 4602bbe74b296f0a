package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/pkg/config"
	"github.com/fjkiani/lotto-machine-sub000/pkg/httputil"
	"github.com/fjkiani/lotto-machine-sub000/pkg/logger"
)

// statusCmd queries a running engine for its checker health.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checker health of a running engine",
	Long: `Queries the running engine's /api/checkers/health endpoint.

Example:
  go run ./cmd/lotto status
  go run ./cmd/lotto status --addr http://localhost:8090`,
	RunE: runStatus,
}

var statusAddr string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "engine address (default from PORT)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	addr := statusAddr
	if addr == "" {
		addr = "http://localhost:" + cfg.Port
	}

	client := httputil.NewWithTimeout(logger.New(cfg), 5*time.Second).DisableRetry()
	resp, err := client.Get(cmd.Context(), addr+"/api/checkers/health")
	if err != nil {
		return fmt.Errorf("engine not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine returned %d", resp.StatusCode)
	}

	var body struct {
		Checkers []contracts.CheckerHealth `json:"checkers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("=== Checker Health (%s) ===\n\n", addr)

	if len(body.Checkers) == 0 {
		fmt.Println("No checkers registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECKER\tSTATE\tINTERVAL\tRUNS\tSIGNALS\tFAILURES\tLAST SUCCESS")
	for _, c := range body.Checkers {
		lastSuccess := "-"
		if c.LastSuccess != nil {
			lastSuccess = c.LastSuccess.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			c.Name, c.State, c.Interval, c.TotalRuns, c.TotalSignals,
			c.ConsecutiveFailures, lastSuccess)
	}
	return w.Flush()
}
