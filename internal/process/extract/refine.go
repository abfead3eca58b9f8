package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/core/search"
	"github.com/lueurxax/event-scout/internal/platform/htmlutils"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	defaultMaxRefinements = 5
	defaultRefineMaxChars = 6000
	refineSearchResults   = 3
	refineQueryFmt        = "%s official website %d date"

	stageRefined = "refined_dates"
)

// RefineConfig configures a Refiner.
type RefineConfig struct {
	Year           int
	MaxRefinements int
	MaxChars       int
}

// Refiner looks up the concrete date of candidates that only carry the
// sentinel date.
type Refiner struct {
	backend        search.Backend
	crawler        Crawler
	llm            llm.Client
	year           int
	maxRefinements int
	maxChars       int
	logger         *zerolog.Logger
}

// NewRefiner creates a Refiner.
func NewRefiner(backend search.Backend, crawler Crawler, client llm.Client, cfg RefineConfig, logger *zerolog.Logger) *Refiner {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.MaxRefinements <= 0 {
		cfg.MaxRefinements = defaultMaxRefinements
	}

	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultRefineMaxChars
	}

	l := logger.With().Str(logKeyComponent, "refine").Logger()

	return &Refiner{
		backend:        backend,
		crawler:        crawler,
		llm:            client,
		year:           cfg.Year,
		maxRefinements: cfg.MaxRefinements,
		maxChars:       cfg.MaxChars,
		logger:         &l,
	}
}

// Refine returns a copy of candidates in the same order. The first sentinel-dated
// candidates, up to the configured bound, get a dedicated search; on success
// their date and link are replaced. Any failure keeps the original.
func (r *Refiner) Refine(ctx context.Context, candidates []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)

	attempts := 0

	for i := range out {
		if attempts >= r.maxRefinements {
			break
		}

		if !domain.IsSentinel(out[i].Date, r.year) {
			continue
		}

		attempts++

		if refined, ok := r.refineOne(ctx, out[i]); ok {
			out[i] = refined

			observability.PipelineStageItems.WithLabelValues(stageRefined).Inc()
		}
	}

	return out
}

// sourceFor returns the top search hit for an event title.
func (r *Refiner) sourceFor(ctx context.Context, title string) (string, error) {
	results, err := r.backend.Search(ctx, fmt.Sprintf(refineQueryFmt, title, r.year), refineSearchResults)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", title, err)
	}

	if len(results) == 0 {
		return "", fmt.Errorf("search %q: %w", title, coreerrors.ErrNoResults)
	}

	return results[0].URL, nil
}

func (r *Refiner) refineOne(ctx context.Context, c domain.Candidate) (domain.Candidate, bool) {
	log := r.logger.With().Str(logKeyTitle, c.Title).Logger()

	link, err := r.sourceFor(ctx, c.Title)
	if err != nil {
		log.Debug().Err(err).Msg("refine search failed")
		return c, false
	}

	page, err := r.crawler.Fetch(ctx, link)
	if err != nil || page == nil || strings.TrimSpace(page.Text) == "" {
		log.Debug().Err(err).Str(logKeyURL, link).Msg("refine crawl failed")
		return c, false
	}

	record, err := llm.CompleteObject[Record](ctx, r.llm, llm.Request{
		Task:   llm.TaskTypeRefine,
		Prompt: llm.RefinePrompt(c.Title, htmlutils.Truncate(page.Text, r.maxChars), r.year),
	})
	if err != nil {
		log.Debug().Err(err).Msg("refine model call failed")
		return c, false
	}

	date := domain.NormalizeDate(record.Date, r.year)
	if domain.IsSentinel(date, r.year) || date == domain.DateUnknown {
		return c, false
	}

	c.Date = date
	c.Link = link

	return c, true
}
