// Package verify runs the batch fact check that gates candidates before they
// reach the catalog.
package verify

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	stageVerified = "verified_candidates"
	stageRejected = "rejected_candidates"

	logKeyInput     = "input"
	logKeyKept      = "kept"
	logKeyComponent = "component"
)

type record struct {
	Title       string `json:"title" validate:"required"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Link        string `json:"link,omitempty"`
}

// Gate asks the model to drop invented or off-year events and fix date formats.
type Gate struct {
	llm    llm.Client
	year   int
	logger *zerolog.Logger
}

// New creates a Gate.
func New(client llm.Client, year int, logger *zerolog.Logger) *Gate {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	l := logger.With().Str(logKeyComponent, "verify").Logger()

	return &Gate{llm: client, year: year, logger: &l}
}

// Verify returns the surviving candidates marked verified. Any model or parse
// failure returns nothing. Records the model adds that were not in the input
// are dropped, and missing links and categories are restored from the input.
func (g *Gate) Verify(ctx context.Context, candidates []domain.Candidate) []domain.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	payload, err := json.Marshal(toRecords(candidates))
	if err != nil {
		g.logger.Error().Err(err).Msg("encode verification batch")
		return nil
	}

	records, err := llm.CompleteList[record](ctx, g.llm, llm.Request{
		Task:   llm.TaskTypeVerify,
		Prompt: llm.VerifyPrompt(string(payload), g.year),
	})
	if err != nil {
		g.logger.Warn().Err(err).Int(logKeyInput, len(candidates)).Msg("verification failed, dropping batch")
		observability.PipelineStageItems.WithLabelValues(stageRejected).Add(float64(len(candidates)))

		return nil
	}

	out := g.reconcile(candidates, records)

	g.logger.Info().Int(logKeyInput, len(candidates)).Int(logKeyKept, len(out)).Msg("verification done")
	observability.PipelineStageItems.WithLabelValues(stageVerified).Add(float64(len(out)))
	observability.PipelineStageItems.WithLabelValues(stageRejected).Add(float64(len(candidates) - len(out)))

	return out
}

func toRecords(candidates []domain.Candidate) []record {
	out := make([]record, len(candidates))
	for i, c := range candidates {
		out[i] = record{Title: c.Title, Date: c.Date, Description: c.Description, Link: c.Link}
	}

	return out
}

func (g *Gate) reconcile(input []domain.Candidate, records []record) []domain.Candidate {
	byKey := make(map[string]domain.Candidate, len(input))
	for _, c := range input {
		key := domain.TitleKey(c.Title)
		if _, ok := byKey[key]; !ok {
			byKey[key] = c
		}
	}

	used := make(map[string]bool, len(records))
	out := make([]domain.Candidate, 0, len(records))

	for _, r := range records {
		key := domain.TitleKey(r.Title)

		orig, ok := byKey[key]
		if !ok || used[key] {
			continue
		}

		date := orig.Date
		if strings.TrimSpace(r.Date) != "" {
			date = domain.NormalizeDate(r.Date, g.year)
		}

		if y := domain.DateYear(date); y != 0 && y != g.year {
			continue
		}

		used[key] = true

		c := orig
		c.Date = date
		c.Verified = true

		if d := strings.TrimSpace(r.Description); d != "" {
			c.Description = d
		}

		if l := strings.TrimSpace(r.Link); l != "" {
			c.Link = l
		}

		out = append(out, c)
	}

	return out
}
