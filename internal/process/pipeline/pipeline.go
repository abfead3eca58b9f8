// Package pipeline runs the ingestion cycle: plan queries, discover pages,
// extract and refine events, verify them, embed them and merge them into the
// catalog.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/core/embeddings"
	"github.com/lueurxax/event-scout/internal/platform/observability"
	"github.com/lueurxax/event-scout/internal/process/dedup"
	"github.com/lueurxax/event-scout/internal/process/discovery"
	"github.com/lueurxax/event-scout/internal/process/planner"
)

const (
	modeInterest = "interest"
	modeKeyword  = "keyword"

	statusSuccess  = "success"
	statusError    = "error"
	statusCanceled = "canceled"

	stageEmbedDropped = "embed_dropped"

	defaultMaxQueries        = 8
	defaultMaxCrawlURLs      = 6
	defaultResultsPerKeyword = 3
	plannerReserve           = 3

	logKeyRunID     = "run_id"
	logKeyMode      = "mode"
	logKeyTitle     = "title"
	logKeyComponent = "component"
)

// Planner expands interests into search queries.
type Planner interface {
	Plan(ctx context.Context, interests string) []string
}

// Extractor turns a URL into candidates.
type Extractor interface {
	Extract(ctx context.Context, url string) []domain.Candidate
}

// Refiner fills in sentinel dates.
type Refiner interface {
	Refine(ctx context.Context, candidates []domain.Candidate) []domain.Candidate
}

// Verifier filters a batch to real target-year events.
type Verifier interface {
	Verify(ctx context.Context, candidates []domain.Candidate) []domain.Candidate
}

// Merger writes candidates into the catalog.
type Merger interface {
	Merge(ctx context.Context, candidates []domain.Candidate) (dedup.Result, error)
}

// Deps holds the stage collaborators.
type Deps struct {
	Planner   Planner
	Discovery discovery.Source
	Extractor Extractor
	// LocalExtractor serves the keyword cycle; Extractor is used when nil.
	LocalExtractor Extractor
	Refiner        Refiner
	Verifier       Verifier
	Encoder        embeddings.Client
	Merger         Merger
}

// Config bounds one run.
type Config struct {
	Year              int
	MaxQueries        int
	MaxCrawlURLs      int
	ResultsPerKeyword int
}

// Stats summarizes one run.
type Stats struct {
	RunID      string `json:"run_id"`
	Queries    int    `json:"queries"`
	URLs       int    `json:"urls"`
	Candidates int    `json:"candidates"`
	Verified   int    `json:"verified"`
	Inserted   int    `json:"inserted"`
	Merged     int    `json:"merged"`
	Skipped    int    `json:"skipped"`
}

// Pipeline orchestrates the ingestion stages.
type Pipeline struct {
	deps   Deps
	cfg    Config
	logger *zerolog.Logger
}

// New creates a Pipeline.
func New(deps Deps, cfg Config, logger *zerolog.Logger) *Pipeline {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = defaultMaxQueries
	}

	if cfg.MaxCrawlURLs <= 0 {
		cfg.MaxCrawlURLs = defaultMaxCrawlURLs
	}

	if cfg.ResultsPerKeyword <= 0 {
		cfg.ResultsPerKeyword = defaultResultsPerKeyword
	}

	if deps.LocalExtractor == nil {
		deps.LocalExtractor = deps.Extractor
	}

	l := logger.With().Str(logKeyComponent, "pipeline").Logger()

	return &Pipeline{deps: deps, cfg: cfg, logger: &l}
}

// Ingest runs the interest-driven cycle. Only persistence errors and
// cancellation are returned; every other stage degrades to fewer candidates.
func (p *Pipeline) Ingest(ctx context.Context, interests string) (Stats, error) {
	stats := Stats{RunID: uuid.NewString()}
	log := p.logger.With().Str(logKeyRunID, stats.RunID).Str(logKeyMode, modeInterest).Logger()
	start := time.Now()

	queries := p.buildQueries(ctx, interests)
	stats.Queries = len(queries)

	session := discovery.NewSession(p.deps.Discovery)
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}

		session.Discover(ctx, q)
	}

	urls := session.URLs()
	if len(urls) > p.cfg.MaxCrawlURLs {
		urls = urls[:p.cfg.MaxCrawlURLs]
	}

	stats.URLs = len(urls)

	candidates := p.extractAll(ctx, p.deps.Extractor, urls)
	if p.deps.Refiner != nil {
		candidates = p.deps.Refiner.Refine(ctx, candidates)
	}

	err := p.finish(ctx, candidates, "", &stats, &log)
	p.record(modeInterest, start, err)

	return stats, err
}

// IngestKeyword runs the scheduler variant for one keyword: top results only,
// local extraction, no refinement, rows tagged auto_collected.
func (p *Pipeline) IngestKeyword(ctx context.Context, keyword string) (Stats, error) {
	stats := Stats{RunID: uuid.NewString(), Queries: 1}
	log := p.logger.With().Str(logKeyRunID, stats.RunID).Str(logKeyMode, modeKeyword).Logger()
	start := time.Now()

	results := discovery.NewSession(p.deps.Discovery).Discover(ctx, keyword)
	if len(results) > p.cfg.ResultsPerKeyword {
		results = results[:p.cfg.ResultsPerKeyword]
	}

	stats.URLs = len(results)

	targets := make([]string, len(results))
	for i, r := range results {
		targets[i] = r.URL
	}

	candidates := p.extractAll(ctx, p.deps.LocalExtractor, targets)

	err := p.finish(ctx, candidates, domain.CategoryAutoCollected, &stats, &log)
	p.record(modeKeyword, start, err)

	return stats, err
}

// buildQueries puts the fixed templates first but keeps up to plannerReserve
// slots for planner facets. Templates that did not fit top up the rest.
func (p *Pipeline) buildQueries(ctx context.Context, interests string) []string {
	terms := domain.NormalizeInterests(domain.ParseInterests(interests))

	var templates []string
	for _, term := range terms {
		templates = append(templates, planner.DiscoveryTemplates(term, p.cfg.Year)...)
	}

	head := planner.NewQueryBuilder(p.templateCap())
	head.Add(templates...)

	qb := planner.NewQueryBuilder(p.cfg.MaxQueries)
	qb.Add(head.Queries()...)

	if !qb.Full() && p.deps.Planner != nil && len(terms) > 0 {
		qb.Add(p.deps.Planner.Plan(ctx, domain.JoinInterests(terms))...)
	}

	qb.Add(templates...)

	return qb.Queries()
}

func (p *Pipeline) templateCap() int {
	if p.deps.Planner == nil || p.cfg.MaxQueries <= 0 {
		return p.cfg.MaxQueries
	}

	return p.cfg.MaxQueries - min(plannerReserve, p.cfg.MaxQueries/2)
}

func (p *Pipeline) extractAll(ctx context.Context, ex Extractor, urls []string) []domain.Candidate {
	var out []domain.Candidate

	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}

		out = append(out, ex.Extract(ctx, u)...)
	}

	return out
}

// finish verifies, embeds and merges candidates, filling stats.
func (p *Pipeline) finish(ctx context.Context, candidates []domain.Candidate, category string, stats *Stats, log *zerolog.Logger) error {
	stats.Candidates = len(candidates)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ingest canceled: %w", err)
	}

	verified := p.deps.Verifier.Verify(ctx, candidates)
	stats.Verified = len(verified)

	embedded := p.embed(ctx, verified, log)

	if category != "" {
		for i := range embedded {
			embedded[i].Category = category
		}
	}

	res, err := p.deps.Merger.Merge(ctx, embedded)
	stats.Inserted, stats.Merged, stats.Skipped = res.Inserted, res.Merged, res.Skipped

	log.Info().
		Int("queries", stats.Queries).
		Int("urls", stats.URLs).
		Int("candidates", stats.Candidates).
		Int("verified", stats.Verified).
		Int("inserted", stats.Inserted).
		Int("merged", stats.Merged).
		Int("skipped", stats.Skipped).
		Msg("ingestion finished")

	if err != nil {
		return fmt.Errorf("merge candidates: %w", err)
	}

	return nil
}

func (p *Pipeline) embed(ctx context.Context, candidates []domain.Candidate, log *zerolog.Logger) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))

	for _, c := range candidates {
		vec, err := p.deps.Encoder.GetEmbedding(ctx, c.EmbeddingText())
		if err != nil {
			log.Warn().Err(err).Str(logKeyTitle, c.Title).Msg("embedding failed, dropping candidate")
			observability.PipelineStageItems.WithLabelValues(stageEmbedDropped).Inc()

			continue
		}

		c.Embedding = vec
		out = append(out, c)
	}

	return out
}

func (p *Pipeline) record(mode string, start time.Time, err error) {
	status := statusSuccess

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = statusCanceled
	default:
		status = statusError
	}

	observability.PipelineRuns.WithLabelValues(mode, status).Inc()
	observability.PipelineDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
