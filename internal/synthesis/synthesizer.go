// Package synthesis turns time-windowed source material (episodes or
// lower-tier reports) into structured report content via a generative model
// under a strict JSON contract.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/llm"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
)

// sourceItem is one entry in the JSON source array handed to the model.
type sourceItem struct {
	Index            int             `json:"index"`
	Type             string          `json:"type"`
	Date             string          `json:"date"`
	Title            string          `json:"title,omitempty"`
	EpisodeID        int64           `json:"episodeId,omitempty"`
	Channel          string          `json:"channel,omitempty"`
	EpisodesIncluded int             `json:"episodesIncluded,omitempty"`
	Summary          json.RawMessage `json:"summary,omitempty"`
	Content          json.RawMessage `json:"content,omitempty"`
}

// Synthesizer builds tier prompts and validates model output against the
// tier's content schema.
type Synthesizer struct {
	provider  llm.Provider
	maxTokens int
}

// NewSynthesizer creates a synthesizer on top of an injected provider.
func NewSynthesizer(provider llm.Provider, maxTokens int) *Synthesizer {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Synthesizer{provider: provider, maxTokens: maxTokens}
}

// Synthesize produces validated content for one period from its selection.
// Any model or parsing failure is fatal for the run; there is no fallback to
// empty content.
func (s *Synthesizer) Synthesize(ctx context.Context, p period.Period, sel *Selection) (*Content, error) {
	if s.provider == nil {
		return nil, &SynthesisError{Err: fmt.Errorf("no LLM provider configured")}
	}

	userPrompt, err := s.buildUserPrompt(p, sel)
	if err != nil {
		return nil, err
	}

	responseText, err := s.provider.Generate(ctx, systemPromptFor(p.Tier), userPrompt, s.maxTokens)
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}

	return ParseContent(p.Tier, []byte(llm.ExtractJSON(responseText)))
}

func systemPromptFor(tier period.Tier) string {
	switch tier {
	case period.Daily:
		return dailySystemPrompt
	case period.Weekly:
		return weeklySystemPrompt
	case period.Monthly:
		return monthlySystemPrompt
	case period.Quarterly:
		return quarterlySystemPrompt
	}
	return dailySystemPrompt
}

func (s *Synthesizer) buildUserPrompt(p period.Period, sel *Selection) (string, error) {
	items, err := buildSourceItems(sel)
	if err != nil {
		return "", err
	}

	itemsJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", &SynthesisError{Err: fmt.Errorf("marshaling source items: %w", err)}
	}

	noun := "episodes"
	if sel.SourceType != SourceEpisodes {
		noun = sel.SourceType + " reports"
	}
	return fmt.Sprintf(userPromptTemplate, p.Label(), sel.Count(), noun, sel.EpisodeTotal, itemsJSON), nil
}

func buildSourceItems(sel *Selection) ([]sourceItem, error) {
	var items []sourceItem

	for i, e := range sel.Episodes {
		item := sourceItem{
			Index:     i,
			Type:      "episode",
			Date:      e.PublishedAt,
			Title:     e.Title,
			EpisodeID: e.ID,
		}
		if e.ChannelTitle != nil {
			item.Channel = *e.ChannelTitle
		}
		if e.Summary != nil {
			data, err := json.Marshal(e.Summary)
			if err != nil {
				return nil, &SynthesisError{Err: fmt.Errorf("marshaling summary for episode %d: %w", e.ID, err)}
			}
			item.Summary = data
		}
		items = append(items, item)
	}

	for i, r := range sel.Reports {
		item := sourceItem{
			Index:            i,
			Type:             r.ReportType + "_report",
			Date:             r.DateKey,
			EpisodesIncluded: r.EpisodesIncluded,
		}
		if r.Summary != nil {
			item.Title = *r.Summary
		}
		if r.ContentJSON != nil && json.Valid([]byte(*r.ContentJSON)) {
			item.Content = json.RawMessage(*r.ContentJSON)
		}
		items = append(items, item)
	}

	return items, nil
}

// ProminenceMap maps a theme trajectory to a prominence score in [0,1].
type ProminenceMap map[string]float64

// DefaultProminence is the stock trajectory-to-prominence heuristic.
func DefaultProminence() ProminenceMap {
	return ProminenceMap{
		TrajectoryRising:  0.8,
		TrajectoryStable:  0.5,
		TrajectoryFalling: 0.3,
	}
}

func (m ProminenceMap) score(trajectory string) float64 {
	if v, ok := m[trajectory]; ok {
		return v
	}
	return m[TrajectoryStable]
}

// Themes extracts theme rows from synthesized content. Daily themes carry a
// flat default prominence; monthly durable trends map through the trajectory
// heuristic. Weekly and quarterly tiers persist no theme rows.
func (c *Content) Themes(prominence ProminenceMap) []database.ReportTheme {
	var themes []database.ReportTheme
	switch c.Tier {
	case period.Daily:
		for _, t := range c.Daily.Themes {
			themes = append(themes, database.ReportTheme{
				Name:       t.Name,
				Prominence: prominence.score(TrajectoryStable),
			})
		}
	case period.Monthly:
		for _, t := range c.Monthly.DurableTrends {
			themes = append(themes, database.ReportTheme{
				Name:       t.Name,
				Prominence: prominence.score(t.Trajectory),
			})
		}
	}
	return themes
}
