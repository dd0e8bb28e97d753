package rollup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/notify"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/synthesis"
)

type mockProvider struct {
	response string
	err      error
	calls    int
}

func (m *mockProvider) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	m.calls++
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

type captureNotifier struct {
	events []notify.Event
}

func (n *captureNotifier) ReportReady(e notify.Event) error {
	n.events = append(n.events, e)
	return nil
}

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

func dailyResponse() string {
	resp, _ := json.Marshal(map[string]any{
		"executiveSummary": "Hosts converged on a cautious outlook.",
		"sentiment":        map[string]any{"overall": "bearish"},
		"insights": []map[string]any{
			{"title": "Caution ahead", "summary": "All three shows flagged stretched valuations."},
		},
		"themes": []map[string]string{
			{"name": "Valuations", "consensus": "strong_agreement"},
			{"name": "Fed policy", "consensus": "mixed"},
		},
	})
	return string(resp)
}

func newTestEngine(db *database.DB, provider *mockProvider, notifier notify.Notifier) *Engine {
	synthesizer := synthesis.NewSynthesizer(provider, 0)
	return NewEngine(db, synthesizer, notifier, nil, 2)
}

func insertDayEpisodes(t *testing.T, db *database.DB, date string, count int) []int64 {
	t.Helper()
	var ids []int64
	for i := 0; i < count; i++ {
		id, err := db.InsertEpisode(
			fmt.Sprintf("Episode %s #%d", date, i+1), nil,
			fmt.Sprintf("%sT%02d:00:00Z", date, 8+i), true, testSummary(),
		)
		if err != nil {
			t.Fatalf("inserting episode: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func dailyPeriod(t *testing.T, key string) period.Period {
	t.Helper()
	p, err := period.FromKey(period.Daily, key)
	if err != nil {
		t.Fatalf("bad key %q: %v", key, err)
	}
	return p
}

func TestRunGeneratesDailyReport(t *testing.T) {
	db := openTestDB(t)
	episodeIDs := insertDayEpisodes(t, db, "2026-03-15", 3)

	notifier := &captureNotifier{}
	engine := newTestEngine(db, &mockProvider{response: dailyResponse()}, notifier)

	outcome, err := engine.Run(context.Background(), dailyPeriod(t, "2026-03-15"), database.GenerationAuto, "system")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != OutcomeGenerated {
		t.Fatalf("expected generated, got %q (%s)", outcome.Status, outcome.Message)
	}

	report, _ := db.GetReport("daily", "2026-03-15")
	if report == nil || report.Status != database.StatusReady {
		t.Fatal("expected ready report")
	}
	if report.EpisodesIncluded != 3 {
		t.Errorf("expected 3 episodes included, got %d", report.EpisodesIncluded)
	}
	if report.Summary == nil || *report.Summary != "Hosts converged on a cautious outlook." {
		t.Error("expected denormalized executive summary")
	}

	var content synthesis.DailyContent
	if err := json.Unmarshal([]byte(*report.ContentJSON), &content); err != nil {
		t.Fatalf("stored content should parse: %v", err)
	}
	if len(content.Insights) != 1 {
		t.Errorf("expected 1 insight, got %d", len(content.Insights))
	}

	linked, _ := db.GetReportEpisodeIDs(report.ID)
	if len(linked) != len(episodeIDs) {
		t.Errorf("expected %d episode links, got %d", len(episodeIDs), len(linked))
	}

	themes, _ := db.GetReportThemes(report.ID)
	if len(themes) != 2 {
		t.Errorf("expected 2 themes, got %d", len(themes))
	}

	if len(notifier.events) != 1 || notifier.events[0].ReportID != report.ID {
		t.Error("expected one ready notification")
	}
}

func TestRunAutoSkipsExistingReady(t *testing.T) {
	db := openTestDB(t)
	insertDayEpisodes(t, db, "2026-03-15", 2)

	provider := &mockProvider{response: dailyResponse()}
	engine := newTestEngine(db, provider, nil)
	p := dailyPeriod(t, "2026-03-15")

	first, _ := engine.Run(context.Background(), p, database.GenerationAuto, "system")
	if first.Status != OutcomeGenerated {
		t.Fatalf("expected first run to generate, got %q", first.Status)
	}

	second, err := engine.Run(context.Background(), p, database.GenerationAuto, "system")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Status != OutcomeSkipped {
		t.Errorf("expected skipped, got %q", second.Status)
	}
	if second.ReportID != first.ReportID {
		t.Error("expected skip to reference the existing report")
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
}

func TestRunAutoSkipsWhileGenerating(t *testing.T) {
	db := openTestDB(t)
	insertDayEpisodes(t, db, "2026-03-15", 2)
	db.InsertGeneratingReport("daily", "2026-03-15", "a", "b", database.GenerationAuto, "system", 0)

	engine := newTestEngine(db, &mockProvider{response: dailyResponse()}, nil)
	outcome, err := engine.Run(context.Background(), dailyPeriod(t, "2026-03-15"), database.GenerationAuto, "system")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != OutcomeAlreadyGenerating {
		t.Errorf("expected already_generating, got %q", outcome.Status)
	}
}

func TestRunAutoSkipsExistingFailed(t *testing.T) {
	db := openTestDB(t)
	insertDayEpisodes(t, db, "2026-03-15", 2)
	id, _ := db.InsertGeneratingReport("daily", "2026-03-15", "a", "b", database.GenerationAuto, "system", 0)
	db.MarkReportFailed(id, "synthesis failed: timeout")

	provider := &mockProvider{response: dailyResponse()}
	engine := newTestEngine(db, provider, nil)
	outcome, err := engine.Run(context.Background(), dailyPeriod(t, "2026-03-15"), database.GenerationAuto, "system")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != OutcomeSkipped {
		t.Errorf("expected skipped, got %q", outcome.Status)
	}
	if provider.calls != 0 {
		t.Error("failed reports must not auto-retry")
	}
}

func TestRunManualRegeneratesExisting(t *testing.T) {
	db := openTestDB(t)
	insertDayEpisodes(t, db, "2026-03-15", 2)

	engine := newTestEngine(db, &mockProvider{response: dailyResponse()}, nil)
	p := dailyPeriod(t, "2026-03-15")

	first, _ := engine.Run(context.Background(), p, database.GenerationAuto, "system")
	if first.Status != OutcomeGenerated {
		t.Fatalf("expected first run to generate, got %q", first.Status)
	}

	second, err := engine.Run(context.Background(), p, database.GenerationManual, "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Status != OutcomeGenerated {
		t.Fatalf("expected manual run to regenerate, got %q", second.Status)
	}
	if second.ReportID == first.ReportID {
		t.Error("expected a fresh report row after manual regeneration")
	}

	old, _ := db.GetReportByID(first.ReportID)
	if old != nil {
		t.Error("expected old report to be deleted")
	}
	report, _ := db.GetReport("daily", "2026-03-15")
	if report == nil || report.GenerationType != database.GenerationManual {
		t.Error("expected the new report to be manual")
	}
}

func TestRunManualRegeneratesFailed(t *testing.T) {
	db := openTestDB(t)
	insertDayEpisodes(t, db, "2026-03-15", 2)
	id, _ := db.InsertGeneratingReport("daily", "2026-03-15", "a", "b", database.GenerationAuto, "system", 0)
	db.MarkReportFailed(id, "synthesis failed: timeout")

	engine := newTestEngine(db, &mockProvider{response: dailyResponse()}, nil)
	outcome, err := engine.Run(context.Background(), dailyPeriod(t, "2026-03-15"), database.GenerationManual, "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != OutcomeGenerated {
		t.Errorf("expected manual run to replace failed report, got %q", outcome.Status)
	}
}

func TestRunNoSources(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(db, &mockProvider{response: dailyResponse()}, nil)

	outcome, err := engine.Run(context.Background(), dailyPeriod(t, "2026-03-15"), database.GenerationAuto, "system")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != OutcomeNoSources {
		t.Errorf("expected no_sources, got %q", outcome.Status)
	}
	if report, _ := db.GetReport("daily", "2026-03-15"); report != nil {
		t.Error("expected no report row for an empty selection")
	}
}

func TestRunSynthesisFailureMarksFailed(t *testing.T) {
	db := openTestDB(t)
	insertDayEpisodes(t, db, "2026-03-15", 2)

	engine := newTestEngine(db, &mockProvider{err: fmt.Errorf("model overloaded")}, nil)
	_, err := engine.Run(context.Background(), dailyPeriod(t, "2026-03-15"), database.GenerationAuto, "system")
	var sErr *synthesis.SynthesisError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}

	report, _ := db.GetReport("daily", "2026-03-15")
	if report == nil || report.Status != database.StatusFailed {
		t.Fatal("expected failed report row")
	}
	if report.Summary == nil || *report.Summary == "" {
		t.Error("expected error text in summary")
	}
	if report.ContentJSON != nil {
		t.Error("failed report must not carry content")
	}
	themes, _ := db.GetReportThemes(report.ID)
	if len(themes) != 0 {
		t.Error("failed report must not carry themes")
	}
}

func TestRunValidationFailureMarksFailed(t *testing.T) {
	db := openTestDB(t)
	insertDayEpisodes(t, db, "2026-03-15", 2)

	// Parseable but missing the required insights array.
	engine := newTestEngine(db, &mockProvider{response: `{"executiveSummary": "S"}`}, nil)
	_, err := engine.Run(context.Background(), dailyPeriod(t, "2026-03-15"), database.GenerationAuto, "system")
	var vErr *synthesis.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	report, _ := db.GetReport("daily", "2026-03-15")
	if report == nil || report.Status != database.StatusFailed {
		t.Fatal("expected failed report row")
	}
}

func TestRunRejectsBadDateKey(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(db, &mockProvider{}, nil)

	_, err := engine.Run(context.Background(), period.Period{Tier: period.Daily, DateKey: "15-03-2026"}, database.GenerationAuto, "system")
	var vErr *period.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRunWeeklyLinksTransitiveEpisodes(t *testing.T) {
	db := openTestDB(t)
	monIDs := insertDayEpisodes(t, db, "2026-03-16", 2)
	tueIDs := insertDayEpisodes(t, db, "2026-03-17", 2)

	engine := newTestEngine(db, &mockProvider{response: dailyResponse()}, nil)
	for _, key := range []string{"2026-03-16", "2026-03-17"} {
		outcome, err := engine.Run(context.Background(), dailyPeriod(t, key), database.GenerationAuto, "system")
		if err != nil || outcome.Status != OutcomeGenerated {
			t.Fatalf("daily run %s: %v %v", key, outcome, err)
		}
	}

	weeklyResp, _ := json.Marshal(map[string]any{
		"executiveSummary": "The week leaned defensive.",
		"emergingThemes":   []map[string]any{{"name": "Defensive rotation", "trajectory": "rising"}},
	})
	weeklyEngine := newTestEngine(db, &mockProvider{response: string(weeklyResp)}, nil)
	p, _ := period.ForWeekKey("2026-W12")
	outcome, err := weeklyEngine.Run(context.Background(), p, database.GenerationAuto, "system")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != OutcomeGenerated {
		t.Fatalf("expected generated, got %q (%s)", outcome.Status, outcome.Message)
	}

	report, _ := db.GetReport("weekly", "2026-W12")
	if report.EpisodesIncluded != 4 {
		t.Errorf("expected 4 episodes included, got %d", report.EpisodesIncluded)
	}
	linked, _ := db.GetReportEpisodeIDs(report.ID)
	if len(linked) != len(monIDs)+len(tueIDs) {
		t.Errorf("expected %d transitive links, got %d", len(monIDs)+len(tueIDs), len(linked))
	}
}

func TestRunKey(t *testing.T) {
	db := openTestDB(t)
	insertDayEpisodes(t, db, "2026-03-15", 2)

	engine := newTestEngine(db, &mockProvider{response: dailyResponse()}, nil)
	outcome, err := engine.RunKey(context.Background(), period.Daily, "2026-03-15", database.GenerationManual, "cli")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != OutcomeGenerated {
		t.Errorf("expected generated, got %q", outcome.Status)
	}

	report, _ := db.GetReport("daily", "2026-03-15")
	if report.GeneratedBy == nil || *report.GeneratedBy != "cli" {
		t.Error("expected generated_by to be recorded")
	}
	if report.GenerationType != database.GenerationManual {
		t.Error("expected manual generation type")
	}
}
