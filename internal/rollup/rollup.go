// Package rollup drives report generation for one period: guard against
// duplicate runs, select sources, synthesize content, and persist the result
// with generating -> ready/failed state transitions.
package rollup

import (
	"context"
	"log"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/notify"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/synthesis"
)

// Outcome statuses. Generated means a new report reached ready; the others
// are soft skips that leave no new state behind.
const (
	OutcomeGenerated         = "generated"
	OutcomeSkipped           = "skipped"
	OutcomeAlreadyGenerating = "already_generating"
	OutcomeNoSources         = "no_sources"
)

// Outcome is the non-error result of one rollup run.
type Outcome struct {
	Status   string
	ReportID int64
	Message  string
}

// PersistenceError wraps a database write failure during a rollup run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Engine sequences rollup runs for all four tiers.
type Engine struct {
	db               *database.DB
	selector         *synthesis.Selector
	synthesizer      *synthesis.Synthesizer
	notifier         notify.Notifier
	prominence       synthesis.ProminenceMap
	minDailyEpisodes int
}

// NewEngine creates a rollup engine. minDailyEpisodes gates backfill date
// discovery; prominence maps theme trajectories to scores.
func NewEngine(db *database.DB, synthesizer *synthesis.Synthesizer, notifier notify.Notifier, prominence synthesis.ProminenceMap, minDailyEpisodes int) *Engine {
	if prominence == nil {
		prominence = synthesis.DefaultProminence()
	}
	if minDailyEpisodes <= 0 {
		minDailyEpisodes = 2
	}
	return &Engine{
		db:               db,
		selector:         synthesis.NewSelector(db),
		synthesizer:      synthesizer,
		notifier:         notifier,
		prominence:       prominence,
		minDailyEpisodes: minDailyEpisodes,
	}
}

// Run generates the report for one period. Soft outcomes (already
// generating, nothing to summarize, idempotent re-trigger) return a non-nil
// Outcome with a nil error; hard failures mark the report failed and return
// the error for the scheduler to record.
func (e *Engine) Run(ctx context.Context, p period.Period, generationType, generatedBy string) (*Outcome, error) {
	if err := period.Validate(p.Tier, p.DateKey); err != nil {
		return nil, err
	}

	outcome, err := e.checkExisting(p, generationType)
	if err != nil || outcome != nil {
		return outcome, err
	}

	selection, err := e.selector.Select(p)
	if err != nil {
		return nil, &PersistenceError{Op: "selecting sources", Err: err}
	}
	if selection.Empty() {
		log.Printf("no sources for %s %s, skipping", p.Tier, p.DateKey)
		return &Outcome{Status: OutcomeNoSources, Message: "no source data in range"}, nil
	}

	reportID, err := e.db.InsertGeneratingReport(
		string(p.Tier), p.DateKey,
		database.FormatTime(p.Start), database.FormatTime(p.End),
		generationType, generatedBy, selection.EpisodeTotal,
	)
	if err != nil {
		return nil, &PersistenceError{Op: "inserting report", Err: err}
	}
	if reportID == 0 {
		// Lost the unique-constraint race to a concurrent trigger.
		log.Printf("lost generation race for %s %s", p.Tier, p.DateKey)
		return &Outcome{Status: OutcomeAlreadyGenerating, Message: "report generation already in progress"}, nil
	}

	if err := e.linkSourceEpisodes(reportID, selection); err != nil {
		return nil, e.fail(reportID, &PersistenceError{Op: "linking episodes", Err: err})
	}

	content, err := e.synthesizer.Synthesize(ctx, p, selection)
	if err != nil {
		return nil, e.fail(reportID, err)
	}

	contentJSON, err := content.JSON()
	if err != nil {
		return nil, e.fail(reportID, &PersistenceError{Op: "encoding content", Err: err})
	}
	if err := e.db.MarkReportReady(reportID, contentJSON, content.ExecutiveSummary(), selection.EpisodeTotal); err != nil {
		return nil, e.fail(reportID, &PersistenceError{Op: "marking report ready", Err: err})
	}
	if err := e.db.InsertReportThemes(reportID, content.Themes(e.prominence)); err != nil {
		return nil, e.fail(reportID, &PersistenceError{Op: "writing themes", Err: err})
	}

	// The report is durably ready; a notification failure is logged only.
	if e.notifier != nil {
		event := notify.Event{
			ReportID:         reportID,
			Tier:             string(p.Tier),
			DateKey:          p.DateKey,
			EpisodesIncluded: selection.EpisodeTotal,
		}
		if err := e.notifier.ReportReady(event); err != nil {
			log.Printf("notification failed for report %d: %v", reportID, err)
		}
	}

	log.Printf("generated %s report %s (%d episodes, %d sources)",
		p.Tier, p.DateKey, selection.EpisodeTotal, selection.Count())
	return &Outcome{Status: OutcomeGenerated, ReportID: reportID, Message: "report generated"}, nil
}

// checkExisting applies the existing-report guard. A nil outcome with nil
// error means the run should proceed.
func (e *Engine) checkExisting(p period.Period, generationType string) (*Outcome, error) {
	existing, err := e.db.GetReport(string(p.Tier), p.DateKey)
	if err != nil {
		return nil, &PersistenceError{Op: "looking up existing report", Err: err}
	}
	if existing == nil {
		return nil, nil
	}

	if generationType == database.GenerationManual {
		// Manual triggers force a clean regeneration; episode links and
		// themes cascade with the row.
		if err := e.db.DeleteReport(existing.ID); err != nil {
			return nil, &PersistenceError{Op: "deleting existing report", Err: err}
		}
		return nil, nil
	}

	switch existing.Status {
	case database.StatusGenerating:
		return &Outcome{Status: OutcomeAlreadyGenerating, ReportID: existing.ID, Message: "report generation already in progress"}, nil
	case database.StatusReady:
		return &Outcome{Status: OutcomeSkipped, ReportID: existing.ID, Message: "report already exists"}, nil
	case database.StatusFailed:
		return &Outcome{Status: OutcomeSkipped, ReportID: existing.ID, Message: "previous generation failed; regenerate manually"}, nil
	}
	return &Outcome{Status: OutcomeSkipped, ReportID: existing.ID, Message: "report in unknown state"}, nil
}

// linkSourceEpisodes links the report to its source episodes, transitively
// for rollup tiers.
func (e *Engine) linkSourceEpisodes(reportID int64, selection *synthesis.Selection) error {
	var episodeIDs []int64
	if len(selection.Episodes) > 0 {
		for _, ep := range selection.Episodes {
			episodeIDs = append(episodeIDs, ep.ID)
		}
	} else {
		seen := make(map[int64]bool)
		for _, r := range selection.Reports {
			ids, err := e.db.GetReportEpisodeIDs(r.ID)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					episodeIDs = append(episodeIDs, id)
				}
			}
		}
	}
	return e.db.LinkReportEpisodes(reportID, episodeIDs)
}

// fail transitions the report to failed, storing the error text in the
// summary column, then re-raises the original error.
func (e *Engine) fail(reportID int64, cause error) error {
	if err := e.db.MarkReportFailed(reportID, cause.Error()); err != nil {
		log.Printf("failed to mark report %d as failed: %v", reportID, err)
	}
	return cause
}

// RunKey resolves a date key into its period and runs the rollup. Used by
// manual triggers that only carry a key.
func (e *Engine) RunKey(ctx context.Context, tier period.Tier, dateKey, generationType, generatedBy string) (*Outcome, error) {
	p, err := period.FromKey(tier, dateKey)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, p, generationType, generatedBy)
}

// MinDailyEpisodes returns the backfill gating threshold.
func (e *Engine) MinDailyEpisodes() int {
	return e.minDailyEpisodes
}
