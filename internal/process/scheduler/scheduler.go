// Package scheduler runs keyword-driven ingestion cycles forever: generate new
// keywords from the search history, ingest each one, persist the history.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/platform/observability"
	"github.com/lueurxax/event-scout/internal/platform/worker"
	"github.com/lueurxax/event-scout/internal/process/pipeline"
)

const (
	workerName = "keyword-scheduler"

	defaultInterval     = 10 * time.Minute
	defaultErrorBackoff = time.Minute

	statusSuccess = "success"
	statusError   = "error"
	statusEmpty   = "empty"

	logKeyPath      = "path"
	logKeyKeyword   = "keyword"
	logKeyKeywords  = "keywords"
	logKeyComponent = "component"
)

// KeywordSource proposes new keywords given the history.
type KeywordSource interface {
	Keywords(ctx context.Context, history []string) []string
}

// Ingester ingests one keyword.
type Ingester interface {
	IngestKeyword(ctx context.Context, keyword string) (pipeline.Stats, error)
}

// Config configures the loop timing.
type Config struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
}

// Scheduler drives periodic keyword cycles.
type Scheduler struct {
	history  *History
	keywords KeywordSource
	ingester Ingester
	cfg      Config
	logger   *zerolog.Logger
}

// New creates a Scheduler.
func New(history *History, keywords KeywordSource, ingester Ingester, cfg Config, logger *zerolog.Logger) *Scheduler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}

	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = defaultErrorBackoff
	}

	l := logger.With().Str(logKeyComponent, "scheduler").Logger()

	return &Scheduler{
		history:  history,
		keywords: keywords,
		ingester: ingester,
		cfg:      cfg,
		logger:   &l,
	}
}

// Run loops until ctx is canceled. A failed or panicking cycle is logged and
// retried after the error backoff.
func (s *Scheduler) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         workerName,
		PollInterval: s.cfg.Interval,
		ErrorBackoff: s.cfg.ErrorBackoff,
		Process:      s.RunCycle,
		OnError: func(err error) bool {
			s.logger.Error().Err(err).Msg("scheduler cycle failed")
			observability.SchedulerCycles.WithLabelValues(statusError).Inc()

			return true
		},
		Logger: s.logger,
	})
}

// RunCycle runs one cycle. The used keywords are appended to the history and
// saved even when some of them failed; the failures are returned joined.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	history := s.history.Load()
	keywords := s.keywords.Keywords(ctx, history)

	if len(keywords) == 0 {
		s.logger.Info().Msg("no new keywords this cycle")
		observability.SchedulerCycles.WithLabelValues(statusEmpty).Inc()

		return nil
	}

	s.logger.Info().Strs(logKeyKeywords, keywords).Msg("starting keyword cycle")

	var (
		used []string
		errs []error
	)

	for _, kw := range keywords {
		if ctx.Err() != nil {
			break
		}

		used = append(used, kw)
		observability.SchedulerKeywords.Inc()

		stats, err := s.ingester.IngestKeyword(ctx, kw)
		if err != nil {
			s.logger.Warn().Err(err).Str(logKeyKeyword, kw).Msg("keyword ingestion failed")
			errs = append(errs, fmt.Errorf("keyword %q: %w", kw, err))

			continue
		}

		s.logger.Info().
			Str(logKeyKeyword, kw).
			Int("inserted", stats.Inserted).
			Int("merged", stats.Merged).
			Msg("keyword ingested")
	}

	if err := s.history.Save(Merge(history, used)); err != nil {
		errs = append(errs, fmt.Errorf("save keyword history: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("keyword cycle: %w", ctx.Err())
	}

	observability.SchedulerCycles.WithLabelValues(statusSuccess).Inc()

	return nil
}
