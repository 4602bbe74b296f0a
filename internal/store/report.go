package store

import (
	"context"
	"time"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

// Report implements contracts.DecisionStore: realized outcomes grouped
// by (source, kind). sourceFilter narrows to one source when non-empty.
func (s *SignalStore) Report(ctx context.Context, sourceFilter string, since time.Time) (*contracts.PerformanceSummary, error) {
	query := `
		SELECT
			source, kind,
			COUNT(*),
			COUNT(*) FILTER (WHERE validated),
			COALESCE(AVG(return_1d), 0),
			COALESCE(AVG(return_5d), 0),
			CASE WHEN COUNT(*) FILTER (WHERE validated AND return_5d IS NOT NULL) = 0 THEN 0
			     ELSE COUNT(*) FILTER (WHERE validated AND return_5d > 0)::float
			          / COUNT(*) FILTER (WHERE validated AND return_5d IS NOT NULL)
			END
		FROM signals
		WHERE created_at >= $1
		  AND ($2 = '' OR source = $2)
		GROUP BY source, kind
		ORDER BY source, kind`

	rows, err := s.pool.Query(ctx, query, since, sourceFilter)
	if err != nil {
		return nil, wrapStorage("report", err)
	}
	defer rows.Close()

	summary := &contracts.PerformanceSummary{Since: since}
	for rows.Next() {
		var g contracts.PerformanceGroup
		if err := rows.Scan(
			&g.Source, &g.Kind, &g.Signals, &g.Validated,
			&g.AvgReturn1D, &g.AvgReturn5D, &g.WinRate5D,
		); err != nil {
			return nil, wrapStorage("report", err)
		}
		summary.Groups = append(summary.Groups, g)
	}

	return summary, rows.Err()
}
