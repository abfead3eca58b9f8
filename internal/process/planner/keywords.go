package planner

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/llm"
)

const (
	defaultHistoryWindow = 20
	keywordsPerCycle     = 10
)

// KeywordGenerator proposes new search keywords from the recent search history.
type KeywordGenerator struct {
	llm    llm.Client
	year   int
	window int
	limit  int
	logger *zerolog.Logger
}

// NewKeywordGenerator creates a generator that shows the model the last
// window history entries and keeps at most limit new keywords.
func NewKeywordGenerator(client llm.Client, year, window, limit int, logger *zerolog.Logger) *KeywordGenerator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if window <= 0 {
		window = defaultHistoryWindow
	}

	if limit <= 0 {
		limit = keywordsPerCycle
	}

	l := logger.With().Str(logKeyComponent, "keywords").Logger()

	return &KeywordGenerator{
		llm:    client,
		year:   year,
		window: window,
		limit:  limit,
		logger: &l,
	}
}

// Keywords returns new keywords not already present in history. A model or
// parse failure yields none.
func (g *KeywordGenerator) Keywords(ctx context.Context, history []string) []string {
	recent := history
	if len(recent) > g.window {
		recent = recent[len(recent)-g.window:]
	}

	raw, err := llm.CompleteList[string](ctx, g.llm, llm.Request{
		Task:   llm.TaskTypeKeywords,
		Prompt: llm.KeywordsPrompt(recent, g.year),
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("keyword generation failed")
		return nil
	}

	qb := NewQueryBuilder(g.limit)
	for _, h := range history {
		qb.seen[strings.ToLower(strings.Join(strings.Fields(h), " "))] = true
	}

	qb.Add(raw...)

	return qb.Queries()
}
