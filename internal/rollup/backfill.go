package rollup

import (
	"context"
	"log"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
)

// BackfillResult summarizes one backfill run. Skipped counts both dates that
// produced no report and dates that errored.
type BackfillResult struct {
	DatesProcessed int
	Generated      int
	Skipped        int
}

// Backfill catches up on missed daily reports: every calendar date with at
// least the minimum number of published, summarized episodes and no ready
// daily report gets a sequential rollup run. Single-episode days are
// intentionally excluded to avoid trivial reports. One date's failure does
// not abort the batch; AI-provider load stays bounded because dates run one
// at a time.
func (e *Engine) Backfill(ctx context.Context) (*BackfillResult, error) {
	dates, err := e.db.GetDatesWithEpisodes(e.minDailyEpisodes)
	if err != nil {
		return nil, &PersistenceError{Op: "finding backfill dates", Err: err}
	}
	covered, err := e.db.GetDatesWithReadyDailyReports()
	if err != nil {
		return nil, &PersistenceError{Op: "finding existing daily reports", Err: err}
	}

	var missing []string
	for _, date := range dates {
		if !covered[date] {
			missing = append(missing, date)
		}
	}

	result := &BackfillResult{}
	for _, date := range missing {
		result.DatesProcessed++

		outcome, err := e.RunKey(ctx, period.Daily, date, database.GenerationManual, "backfill")
		if err != nil {
			log.Printf("backfill failed for %s: %v", date, err)
			result.Skipped++
			continue
		}
		if outcome.Status == OutcomeGenerated {
			result.Generated++
		} else {
			log.Printf("backfill skipped %s: %s", date, outcome.Message)
			result.Skipped++
		}
	}

	log.Printf("backfill complete: %d dates processed, %d generated, %d skipped",
		result.DatesProcessed, result.Generated, result.Skipped)
	return result, nil
}
