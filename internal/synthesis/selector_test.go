package synthesis

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSummary() *database.EpisodeSummary {
	return &database.EpisodeSummary{
		Sections: []database.SummarySection{
			{Name: "Markets", Bullets: []database.SummaryBullet{{Text: "Rates held", Confidence: 0.9}}},
		},
	}
}

func mustParseDay(t *testing.T, key string) time.Time {
	t.Helper()
	day, err := time.Parse("2006-01-02", key)
	if err != nil {
		t.Fatalf("bad day %q: %v", key, err)
	}
	return day
}

func insertReadyReport(t *testing.T, db *database.DB, reportType, dateKey, start, end string, episodes int) int64 {
	t.Helper()
	id, err := db.InsertGeneratingReport(reportType, dateKey, start, end, database.GenerationAuto, "system", episodes)
	if err != nil || id == 0 {
		t.Fatalf("inserting %s report %s: id=%d err=%v", reportType, dateKey, id, err)
	}
	if err := db.MarkReportReady(id, `{"executiveSummary":"s"}`, "s", episodes); err != nil {
		t.Fatalf("marking report ready: %v", err)
	}
	return id
}

func TestSelectDaily(t *testing.T) {
	db := openTestDB(t)
	db.InsertEpisode("A", nil, "2026-03-15T10:00:00Z", true, testSummary())
	db.InsertEpisode("B", nil, "2026-03-15T18:00:00Z", true, testSummary())
	db.InsertEpisode("Next day", nil, "2026-03-16T10:00:00Z", true, testSummary())

	sel, err := NewSelector(db).Select(period.ForDay(mustParseDay(t, "2026-03-15")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.SourceType != SourceEpisodes {
		t.Errorf("expected episodes source, got %q", sel.SourceType)
	}
	if len(sel.Episodes) != 2 || sel.EpisodeTotal != 2 {
		t.Errorf("expected 2 episodes, got %d (total %d)", len(sel.Episodes), sel.EpisodeTotal)
	}
}

func TestSelectWeeklyUsesDailyReports(t *testing.T) {
	db := openTestDB(t)
	insertReadyReport(t, db, "daily", "2026-03-16", "2026-03-16T00:00:00Z", "2026-03-16T23:59:59Z", 3)
	insertReadyReport(t, db, "daily", "2026-03-17", "2026-03-17T00:00:00Z", "2026-03-17T23:59:59Z", 2)
	// Outside the week.
	insertReadyReport(t, db, "daily", "2026-03-09", "2026-03-09T00:00:00Z", "2026-03-09T23:59:59Z", 4)

	p, err := period.ForWeekKey("2026-W12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel, err := NewSelector(db).Select(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.SourceType != SourceDaily {
		t.Errorf("expected daily source, got %q", sel.SourceType)
	}
	if len(sel.Reports) != 2 {
		t.Errorf("expected 2 reports, got %d", len(sel.Reports))
	}
	if sel.EpisodeTotal != 5 {
		t.Errorf("expected episode total 5, got %d", sel.EpisodeTotal)
	}
}

func TestSelectMonthlyPrefersWeekly(t *testing.T) {
	db := openTestDB(t)
	insertReadyReport(t, db, "weekly", "2026-W11", "2026-03-09T00:00:00Z", "2026-03-15T23:59:59Z", 10)
	insertReadyReport(t, db, "daily", "2026-03-10", "2026-03-10T00:00:00Z", "2026-03-10T23:59:59Z", 2)

	sel, err := NewSelector(db).Select(period.ForMonth(2026, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.SourceType != SourceWeekly {
		t.Errorf("expected weekly source, got %q", sel.SourceType)
	}
	if len(sel.Reports) != 1 || sel.EpisodeTotal != 10 {
		t.Errorf("expected 1 weekly report with 10 episodes, got %d (%d)", len(sel.Reports), sel.EpisodeTotal)
	}
}

func TestSelectMonthlyFallsBackToDaily(t *testing.T) {
	db := openTestDB(t)
	// No weekly reports in March; two dailies exist.
	insertReadyReport(t, db, "daily", "2026-03-10", "2026-03-10T00:00:00Z", "2026-03-10T23:59:59Z", 2)
	insertReadyReport(t, db, "daily", "2026-03-11", "2026-03-11T00:00:00Z", "2026-03-11T23:59:59Z", 3)
	// A weekly outside the month must not suppress the fallback.
	insertReadyReport(t, db, "weekly", "2026-W05", "2026-01-26T00:00:00Z", "2026-02-01T23:59:59Z", 8)

	sel, err := NewSelector(db).Select(period.ForMonth(2026, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.SourceType != SourceDaily {
		t.Errorf("expected fallback to daily source, got %q", sel.SourceType)
	}
	if len(sel.Reports) != 2 || sel.EpisodeTotal != 5 {
		t.Errorf("expected 2 daily reports with 5 episodes, got %d (%d)", len(sel.Reports), sel.EpisodeTotal)
	}
}

func TestSelectQuarterlyUsesMonthly(t *testing.T) {
	db := openTestDB(t)
	insertReadyReport(t, db, "monthly", "2026-01", "2026-01-01T00:00:00Z", "2026-01-31T23:59:59Z", 40)
	insertReadyReport(t, db, "monthly", "2026-02", "2026-02-01T00:00:00Z", "2026-02-28T23:59:59Z", 35)
	// Daily reports never feed the quarterly tier.
	insertReadyReport(t, db, "daily", "2026-01-15", "2026-01-15T00:00:00Z", "2026-01-15T23:59:59Z", 2)

	sel, err := NewSelector(db).Select(period.ForQuarter(2026, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.SourceType != SourceMonthly {
		t.Errorf("expected monthly source, got %q", sel.SourceType)
	}
	if len(sel.Reports) != 2 || sel.EpisodeTotal != 75 {
		t.Errorf("expected 2 monthly reports with 75 episodes, got %d (%d)", len(sel.Reports), sel.EpisodeTotal)
	}
}

func TestSelectEmpty(t *testing.T) {
	db := openTestDB(t)
	sel, err := NewSelector(db).Select(period.ForMonth(2026, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sel.Empty() {
		t.Error("expected empty selection")
	}
}
