// Package recommend ranks catalog events against an interest profile and
// decides when the catalog is too thin and ingestion must run first.
package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/core/embeddings"
	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	// DefaultTopK is how many ranked events reach the category check.
	DefaultTopK = 10
	// DefaultCategoryCheckThreshold is the score above which the model
	// double-checks relevance.
	DefaultCategoryCheckThreshold float32 = 0.25

	reasonFmt = "Based on your interest in '%s', this event matches your preferences at %.1f%%"

	checkMatch  = "match"
	checkReject = "reject"
	checkError  = "error"

	logKeyEventID   = "event_id"
	logKeyTitle     = "title"
	logKeyComponent = "component"
)

// EmbeddingWriter persists a lazily computed event embedding.
type EmbeddingWriter interface {
	SetEventEmbedding(ctx context.Context, id string, vec []float32) error
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	TopK                   int
	CategoryCheckThreshold float32
}

// Engine scores events by cosine similarity to the interest string.
type Engine struct {
	encoder   embeddings.Client
	llm       llm.Client
	writer    EmbeddingWriter
	topK      int
	threshold float32
	logger    *zerolog.Logger
}

// NewEngine creates an Engine. writer may be nil.
func NewEngine(encoder embeddings.Client, client llm.Client, writer EmbeddingWriter, cfg EngineConfig, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	l := logger.With().Str(logKeyComponent, "recommend").Logger()

	return &Engine{
		encoder:   encoder,
		llm:       client,
		writer:    writer,
		topK:      cfg.TopK,
		threshold: cfg.CategoryCheckThreshold,
		logger:    &l,
	}
}

type categoryVerdict struct {
	IsMatch *bool  `json:"is_match"`
	Reason  string `json:"reason"`
}

// Recommend returns at most TopK events ordered by descending score, ties in
// catalog order. Events above the category threshold that the model rejects
// are removed; a failed check keeps the event.
func (e *Engine) Recommend(ctx context.Context, interests string, events []domain.Event) []domain.Recommendation {
	if len(events) == 0 {
		return nil
	}

	interestVec, err := e.encoder.GetEmbedding(ctx, interests)
	if err != nil {
		e.logger.Error().Err(err).Msg("cannot encode interests")
		return nil
	}

	type scored struct {
		event domain.Event
		score float32
	}

	ranked := make([]scored, 0, len(events))

	for _, ev := range events {
		vec, ok := e.eventVector(ctx, ev)
		if !ok {
			continue
		}

		ranked = append(ranked, scored{event: ev, score: embeddings.CosineSimilarity(interestVec, vec)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > e.topK {
		ranked = ranked[:e.topK]
	}

	out := make([]domain.Recommendation, 0, len(ranked))

	for _, r := range ranked {
		if r.score > e.threshold && !e.categoryMatches(ctx, interests, r.event) {
			continue
		}

		out = append(out, domain.NewRecommendation(r.event, r.score, Reason(interests, r.score)))
	}

	return out
}

// Reason renders the explanation attached to a recommendation.
func Reason(interests string, score float32) string {
	return fmt.Sprintf(reasonFmt, interests, score*100)
}

// eventVector returns the cached embedding or encodes the event and stores the
// vector best-effort. Events that cannot be encoded are skipped.
func (e *Engine) eventVector(ctx context.Context, ev domain.Event) ([]float32, bool) {
	if len(ev.Embedding) > 0 {
		return ev.Embedding, true
	}

	vec, err := e.encoder.GetEmbedding(ctx, ev.EmbeddingText())
	if err != nil {
		e.logger.Warn().Err(err).Str(logKeyEventID, ev.ID).Msg("cannot encode event, skipping")
		return nil, false
	}

	if e.writer != nil && ev.ID != "" {
		if err := e.writer.SetEventEmbedding(ctx, ev.ID, vec); err != nil {
			e.logger.Warn().Err(err).Str(logKeyEventID, ev.ID).Msg("cannot store event embedding")
		}
	}

	return vec, true
}

func (e *Engine) categoryMatches(ctx context.Context, interests string, ev domain.Event) bool {
	verdict, err := llm.CompleteObject[categoryVerdict](ctx, e.llm, llm.Request{
		Task:   llm.TaskTypeCategoryCheck,
		Prompt: llm.CategoryCheckPrompt(interests, ev.Title, ev.Description),
	})
	if err != nil {
		observability.CategoryChecks.WithLabelValues(checkError).Inc()
		e.logger.Debug().Err(err).Str(logKeyTitle, ev.Title).Msg("category check failed, keeping event")

		return true
	}

	if verdict.IsMatch != nil && !*verdict.IsMatch {
		observability.CategoryChecks.WithLabelValues(checkReject).Inc()
		e.logger.Debug().Str(logKeyTitle, ev.Title).Str("reason", verdict.Reason).Msg("category check rejected event")

		return false
	}

	observability.CategoryChecks.WithLabelValues(checkMatch).Inc()

	return true
}
