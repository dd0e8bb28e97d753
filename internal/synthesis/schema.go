package synthesis

import (
	"encoding/json"
	"fmt"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
)

// Sentiment enum values. Anything else is a validation failure.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
	SentimentMixed   = "mixed"
)

// Theme trajectory values used by weekly and monthly tiers.
const (
	TrajectoryRising  = "rising"
	TrajectoryFalling = "falling"
	TrajectoryStable  = "stable"
)

// ValidationError reports synthesized content that is missing a required
// field or carries an invalid enum value.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// SynthesisError wraps a fatal model failure: call error, timeout, or
// unparseable JSON output.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string { return "synthesis failed: " + e.Err.Error() }
func (e *SynthesisError) Unwrap() error { return e.Err }

// Sentiment is the overall market mood with an optional per-topic breakdown.
type Sentiment struct {
	Overall   string            `json:"overall"`
	Breakdown map[string]string `json:"breakdown,omitempty"`
}

// Evidence ties an insight back to a source episode.
type Evidence struct {
	Quote        string `json:"quote"`
	EpisodeID    int64  `json:"episodeId,omitempty"`
	EpisodeTitle string `json:"episodeTitle,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// Insight is one cross-episode observation in a daily report.
type Insight struct {
	Title    string     `json:"title"`
	Summary  string     `json:"summary"`
	Evidence []Evidence `json:"evidence"`
}

// DailyTheme is a recurring topic across a day's episodes with a consensus
// classification: strong_agreement, mixed, or divided.
type DailyTheme struct {
	Name      string `json:"name"`
	Consensus string `json:"consensus"`
	Summary   string `json:"summary,omitempty"`
}

// NotableMoment is a standout quote or exchange from a day's episodes.
type NotableMoment struct {
	Description  string `json:"description"`
	EpisodeTitle string `json:"episodeTitle,omitempty"`
	Quote        string `json:"quote,omitempty"`
}

// DailyContent is the content schema for daily reports.
type DailyContent struct {
	ExecutiveSummary string          `json:"executiveSummary"`
	Sentiment        Sentiment       `json:"sentiment"`
	Insights         []Insight       `json:"insights"`
	Themes           []DailyTheme    `json:"themes"`
	NotableMoments   []NotableMoment `json:"notableMoments"`
	LookingAhead     string          `json:"lookingAhead"`
}

// EmergingTheme is a theme with a week-scale trajectory.
type EmergingTheme struct {
	Name       string `json:"name"`
	Trajectory string `json:"trajectory"`
	DaysActive int    `json:"daysActive,omitempty"`
	Summary    string `json:"summary,omitempty"`
}

// NarrativeArc is a story that developed over the week.
type NarrativeArc struct {
	Title   string `json:"title"`
	Arc     string `json:"arc"`
	Outcome string `json:"outcome,omitempty"`
}

// WeeklyContent is the content schema for weekly reports.
type WeeklyContent struct {
	ExecutiveSummary string          `json:"executiveSummary"`
	Sentiment        Sentiment       `json:"sentiment"`
	EmergingThemes   []EmergingTheme `json:"emergingThemes"`
	NarrativeArcs    []NarrativeArc  `json:"narrativeArcs"`
	TopInsights      []string        `json:"topInsights"`
	LookingAhead     string          `json:"lookingAhead"`
}

// DurableTrend is a month-scale trend with durability classification:
// durable, fading, or emerging.
type DurableTrend struct {
	Name        string   `json:"name"`
	Trajectory  string   `json:"trajectory"`
	Durability  string   `json:"durability"`
	WeeklyNotes []string `json:"weeklyNotes"`
	Summary     string   `json:"summary,omitempty"`
}

// DebatePosition is one side of a key debate.
type DebatePosition struct {
	Position  string   `json:"position"`
	Advocates []string `json:"advocates"`
}

// KeyDebate captures opposing positions on a contested topic.
type KeyDebate struct {
	Topic     string           `json:"topic"`
	Positions []DebatePosition `json:"positions"`
}

// MonthlyContent is the content schema for monthly reports.
type MonthlyContent struct {
	ExecutiveSummary string         `json:"executiveSummary"`
	Sentiment        Sentiment      `json:"sentiment"`
	DurableTrends    []DurableTrend `json:"durableTrends"`
	KeyDebates       []KeyDebate    `json:"keyDebates"`
	TopInsights      []string       `json:"topInsights"`
	LookingAhead     string         `json:"lookingAhead"`
}

// MajorTheme is a quarter-scale theme with month-by-month notes.
type MajorTheme struct {
	Name         string   `json:"name"`
	MonthlyNotes []string `json:"monthlyNotes"`
	Summary      string   `json:"summary,omitempty"`
}

// Prediction is a forward-looking call with a confidence score in [0,1].
type Prediction struct {
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence"`
	Basis      string  `json:"basis,omitempty"`
	Timeframe  string  `json:"timeframe,omitempty"`
}

// QuarterlyContent is the content schema for quarterly reports.
type QuarterlyContent struct {
	ExecutiveSummary string       `json:"executiveSummary"`
	Sentiment        Sentiment    `json:"sentiment"`
	MajorThemes      []MajorTheme `json:"majorThemes"`
	Predictions      []Prediction `json:"predictions"`
	TopInsights      []string     `json:"topInsights"`
	LookingAhead     string       `json:"lookingAhead"`
}

// Content is the tagged union of tier content. Exactly one variant is set,
// matching the report type.
type Content struct {
	Tier      period.Tier
	Daily     *DailyContent
	Weekly    *WeeklyContent
	Monthly   *MonthlyContent
	Quarterly *QuarterlyContent
}

// ExecutiveSummary returns the denormalized summary text for listings.
func (c *Content) ExecutiveSummary() string {
	switch c.Tier {
	case period.Daily:
		return c.Daily.ExecutiveSummary
	case period.Weekly:
		return c.Weekly.ExecutiveSummary
	case period.Monthly:
		return c.Monthly.ExecutiveSummary
	case period.Quarterly:
		return c.Quarterly.ExecutiveSummary
	}
	return ""
}

// JSON marshals the active variant for the content_json column.
func (c *Content) JSON() (string, error) {
	var v any
	switch c.Tier {
	case period.Daily:
		v = c.Daily
	case period.Weekly:
		v = c.Weekly
	case period.Monthly:
		v = c.Monthly
	case period.Quarterly:
		v = c.Quarterly
	default:
		return "", fmt.Errorf("no content variant for tier %q", c.Tier)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseContent validates and repairs raw synthesized JSON into the tier's
// typed content. Optional fields default to empty values; a missing required
// field or an invalid sentiment value is a ValidationError.
func ParseContent(tier period.Tier, raw []byte) (*Content, error) {
	c := &Content{Tier: tier}
	switch tier {
	case period.Daily:
		var dc DailyContent
		if err := json.Unmarshal(raw, &dc); err != nil {
			return nil, &SynthesisError{Err: fmt.Errorf("parsing daily content: %w", err)}
		}
		if err := repairDaily(&dc); err != nil {
			return nil, err
		}
		c.Daily = &dc
	case period.Weekly:
		var wc WeeklyContent
		if err := json.Unmarshal(raw, &wc); err != nil {
			return nil, &SynthesisError{Err: fmt.Errorf("parsing weekly content: %w", err)}
		}
		if err := repairWeekly(&wc); err != nil {
			return nil, err
		}
		c.Weekly = &wc
	case period.Monthly:
		var mc MonthlyContent
		if err := json.Unmarshal(raw, &mc); err != nil {
			return nil, &SynthesisError{Err: fmt.Errorf("parsing monthly content: %w", err)}
		}
		if err := repairMonthly(&mc); err != nil {
			return nil, err
		}
		c.Monthly = &mc
	case period.Quarterly:
		var qc QuarterlyContent
		if err := json.Unmarshal(raw, &qc); err != nil {
			return nil, &SynthesisError{Err: fmt.Errorf("parsing quarterly content: %w", err)}
		}
		if err := repairQuarterly(&qc); err != nil {
			return nil, err
		}
		c.Quarterly = &qc
	default:
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown report tier %q", tier)}
	}
	return c, nil
}

func repairDaily(dc *DailyContent) error {
	if err := checkRequired(dc.ExecutiveSummary, len(dc.Insights), "insights"); err != nil {
		return err
	}
	if err := repairSentiment(&dc.Sentiment); err != nil {
		return err
	}
	for i := range dc.Insights {
		if dc.Insights[i].Evidence == nil {
			dc.Insights[i].Evidence = []Evidence{}
		}
	}
	if dc.Themes == nil {
		dc.Themes = []DailyTheme{}
	}
	if dc.NotableMoments == nil {
		dc.NotableMoments = []NotableMoment{}
	}
	return nil
}

func repairWeekly(wc *WeeklyContent) error {
	if err := checkRequired(wc.ExecutiveSummary, len(wc.EmergingThemes), "emergingThemes"); err != nil {
		return err
	}
	if err := repairSentiment(&wc.Sentiment); err != nil {
		return err
	}
	if wc.NarrativeArcs == nil {
		wc.NarrativeArcs = []NarrativeArc{}
	}
	if wc.TopInsights == nil {
		wc.TopInsights = []string{}
	}
	return nil
}

func repairMonthly(mc *MonthlyContent) error {
	if err := checkRequired(mc.ExecutiveSummary, len(mc.DurableTrends), "durableTrends"); err != nil {
		return err
	}
	if err := repairSentiment(&mc.Sentiment); err != nil {
		return err
	}
	for i := range mc.DurableTrends {
		if mc.DurableTrends[i].WeeklyNotes == nil {
			mc.DurableTrends[i].WeeklyNotes = []string{}
		}
	}
	if mc.KeyDebates == nil {
		mc.KeyDebates = []KeyDebate{}
	}
	for i := range mc.KeyDebates {
		for j := range mc.KeyDebates[i].Positions {
			if mc.KeyDebates[i].Positions[j].Advocates == nil {
				mc.KeyDebates[i].Positions[j].Advocates = []string{}
			}
		}
	}
	if mc.TopInsights == nil {
		mc.TopInsights = []string{}
	}
	return nil
}

func repairQuarterly(qc *QuarterlyContent) error {
	if err := checkRequired(qc.ExecutiveSummary, len(qc.MajorThemes), "majorThemes"); err != nil {
		return err
	}
	if err := repairSentiment(&qc.Sentiment); err != nil {
		return err
	}
	for i := range qc.MajorThemes {
		if qc.MajorThemes[i].MonthlyNotes == nil {
			qc.MajorThemes[i].MonthlyNotes = []string{}
		}
	}
	if qc.Predictions == nil {
		qc.Predictions = []Prediction{}
	}
	if qc.TopInsights == nil {
		qc.TopInsights = []string{}
	}
	return nil
}

func checkRequired(executiveSummary string, primaryLen int, primaryField string) error {
	if executiveSummary == "" {
		return &ValidationError{Msg: "missing required field executiveSummary"}
	}
	if primaryLen == 0 {
		return &ValidationError{Msg: "missing required field " + primaryField}
	}
	return nil
}

// repairSentiment defaults an absent sentiment to neutral but rejects any
// overall value outside the allowed enum.
func repairSentiment(s *Sentiment) error {
	if s.Overall == "" {
		s.Overall = SentimentNeutral
		return nil
	}
	switch s.Overall {
	case SentimentBullish, SentimentBearish, SentimentNeutral, SentimentMixed:
		return nil
	}
	return &ValidationError{Msg: fmt.Sprintf("invalid sentiment %q", s.Overall)}
}
