// Package extract turns crawled pages into event candidates and refines
// candidates whose date is only known to the year.
package extract

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/core/links"
	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/platform/htmlutils"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	// DefaultMaxChars is the page prefix sent to hosted models.
	DefaultMaxChars = 10000
	// DefaultLocalMaxChars is the page prefix sent to the local model.
	DefaultLocalMaxChars = 5000

	minTitleLength = 4

	stageExtracted = "extracted_candidates"

	logKeyURL       = "url"
	logKeyCount     = "count"
	logKeyTitle     = "title"
	logKeyComponent = "component"
)

// Crawler fetches a page as plain text.
type Crawler interface {
	Fetch(ctx context.Context, url string) (*links.Page, error)
}

// Record is one event as returned by the model.
type Record struct {
	Title       string `json:"title" validate:"required"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Link        string `json:"link,omitempty"`
}

// Config configures an Extractor.
type Config struct {
	Year     int
	MaxChars int
	// Local switches to the short prompt routed to the local model first.
	Local bool
}

// Extractor asks the model for the events described on a page.
type Extractor struct {
	crawler  Crawler
	llm      llm.Client
	year     int
	maxChars int
	task     llm.TaskType
	logger   *zerolog.Logger
}

// New creates an Extractor.
func New(crawler Crawler, client llm.Client, cfg Config, logger *zerolog.Logger) *Extractor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	task := llm.TaskTypeExtract
	maxChars := DefaultMaxChars

	if cfg.Local {
		task = llm.TaskTypeLocalExtract
		maxChars = DefaultLocalMaxChars
	}

	if cfg.MaxChars > 0 {
		maxChars = cfg.MaxChars
	}

	l := logger.With().Str(logKeyComponent, "extract").Logger()

	return &Extractor{
		crawler:  crawler,
		llm:      client,
		year:     cfg.Year,
		maxChars: maxChars,
		task:     task,
		logger:   &l,
	}
}

// Extract crawls url and returns its candidates. Crawl, model and parse
// failures all yield nil.
func (e *Extractor) Extract(ctx context.Context, url string) []domain.Candidate {
	page, err := e.crawler.Fetch(ctx, url)
	if err != nil {
		e.logger.Debug().Err(err).Str(logKeyURL, url).Msg("crawl failed, skipping url")
		return nil
	}

	if page == nil || strings.TrimSpace(page.Text) == "" {
		return nil
	}

	return e.ExtractText(ctx, url, page.Text)
}

// ExtractText returns the candidates found in already fetched text.
func (e *Extractor) ExtractText(ctx context.Context, url, text string) []domain.Candidate {
	prefix := htmlutils.Truncate(text, e.maxChars)

	records, err := llm.CompleteList[Record](ctx, e.llm, llm.Request{
		Task:   e.task,
		Prompt: e.prompt(prefix),
	})
	if err != nil {
		e.logger.Warn().Err(err).Str(logKeyURL, url).Msg("event extraction failed")
		return nil
	}

	candidates := e.toCandidates(url, records)

	e.logger.Debug().Str(logKeyURL, url).Int(logKeyCount, len(candidates)).Msg("extracted events")
	observability.PipelineStageItems.WithLabelValues(stageExtracted).Add(float64(len(candidates)))

	return candidates
}

func (e *Extractor) prompt(text string) string {
	if e.task == llm.TaskTypeLocalExtract {
		return llm.LocalExtractPrompt(text, e.year)
	}

	return llm.ExtractPrompt(text, e.year)
}

func (e *Extractor) toCandidates(url string, records []Record) []domain.Candidate {
	seen := make(map[string]bool, len(records))
	out := make([]domain.Candidate, 0, len(records))

	for _, r := range records {
		title := strings.TrimSpace(r.Title)
		if len([]rune(title)) < minTitleLength {
			continue
		}

		key := domain.TitleKey(title)
		if seen[key] {
			continue
		}

		seen[key] = true

		out = append(out, domain.Candidate{
			Title:       title,
			Date:        domain.NormalizeDate(r.Date, e.year),
			Description: strings.TrimSpace(r.Description),
			Link:        url,
		})
	}

	return out
}
