package synthesis

import (
	"fmt"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
)

// Source type tags carried on a Selection.
const (
	SourceEpisodes = "episodes"
	SourceDaily    = "daily"
	SourceWeekly   = "weekly"
	SourceMonthly  = "monthly"
)

// Selection is the ordered set of source items feeding one synthesis run.
// Exactly one of Episodes or Reports is populated.
type Selection struct {
	SourceType   string
	Episodes     []database.Episode
	Reports      []database.Report
	EpisodeTotal int
}

// Empty reports whether the selection has no source material.
func (s *Selection) Empty() bool {
	return len(s.Episodes) == 0 && len(s.Reports) == 0
}

// Count returns the number of source items.
func (s *Selection) Count() int {
	if len(s.Episodes) > 0 {
		return len(s.Episodes)
	}
	return len(s.Reports)
}

// Selector finds the best available source material for a target period.
type Selector struct {
	db *database.DB
}

// NewSelector creates a new source selector.
func NewSelector(db *database.DB) *Selector {
	return &Selector{db: db}
}

// Select returns the sources for a period: episodes for the daily tier,
// lower-tier ready reports otherwise. The monthly tier falls back to daily
// reports when no weekly reports exist inside the window, for sparse months
// or months whose weekly rollups have not run yet. An empty selection is a
// legitimate "nothing to summarize yet" outcome, not an error.
func (s *Selector) Select(p period.Period) (*Selection, error) {
	start := database.FormatTime(p.Start)
	end := database.FormatTime(p.End)

	switch p.Tier {
	case period.Daily:
		episodes, err := s.db.GetEpisodesForWindow(start, end)
		if err != nil {
			return nil, fmt.Errorf("selecting episodes: %w", err)
		}
		return &Selection{
			SourceType:   SourceEpisodes,
			Episodes:     episodes,
			EpisodeTotal: len(episodes),
		}, nil

	case period.Weekly:
		return s.selectReports(period.Daily, SourceDaily, start, end)

	case period.Monthly:
		sel, err := s.selectReports(period.Weekly, SourceWeekly, start, end)
		if err != nil {
			return nil, err
		}
		if !sel.Empty() {
			return sel, nil
		}
		return s.selectReports(period.Daily, SourceDaily, start, end)

	case period.Quarterly:
		return s.selectReports(period.Monthly, SourceMonthly, start, end)
	}

	return nil, fmt.Errorf("unknown report tier %q", p.Tier)
}

func (s *Selector) selectReports(sourceTier period.Tier, sourceType, start, end string) (*Selection, error) {
	reports, err := s.db.GetReadyReportsInWindow(string(sourceTier), start, end)
	if err != nil {
		return nil, fmt.Errorf("selecting %s reports: %w", sourceTier, err)
	}

	total := 0
	for _, r := range reports {
		total += r.EpisodesIncluded
	}
	return &Selection{
		SourceType:   sourceType,
		Reports:      reports,
		EpisodeTotal: total,
	}, nil
}
