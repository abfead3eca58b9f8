// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Worker mode: the keyword scheduler that grows the catalog forever
//   - Bot mode: Telegram surface for profiles, recommendations and ingestion
//   - Ingest mode: one interest-driven ingestion
//   - Recommend mode: one recommendation request
//   - Profile mode: saves an interest profile
//
// Each mode can be run independently or combined based on deployment needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/core/embeddings"
	"github.com/lueurxax/event-scout/internal/core/links"
	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/core/search"
	"github.com/lueurxax/event-scout/internal/platform/config"
	"github.com/lueurxax/event-scout/internal/platform/observability"
	"github.com/lueurxax/event-scout/internal/process/dedup"
	"github.com/lueurxax/event-scout/internal/process/discovery"
	"github.com/lueurxax/event-scout/internal/process/extract"
	"github.com/lueurxax/event-scout/internal/process/pipeline"
	"github.com/lueurxax/event-scout/internal/process/planner"
	"github.com/lueurxax/event-scout/internal/process/scheduler"
	"github.com/lueurxax/event-scout/internal/process/verify"
	"github.com/lueurxax/event-scout/internal/recommend"
	db "github.com/lueurxax/event-scout/internal/storage"
	"github.com/lueurxax/event-scout/internal/telegrambot"
)

const logFieldComponent = "component"

var errBotTokenMissing = errors.New("bot mode requires BOT_TOKEN")

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger

	services *services
}

// services is the dependency graph shared by every mode. The encoder is
// bound once so stored and query vectors come from the same model.
type services struct {
	llm       llm.Client
	encoder   *embeddings.Encoder
	search    *search.Chain
	pipeline  *pipeline.Pipeline
	scheduler *scheduler.Scheduler
	recommend *recommend.Service
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunWorker runs the keyword scheduler until ctx is canceled.
func (a *App) RunWorker(ctx context.Context) error {
	a.logger.Info().Msg("Starting worker mode")

	s := a.build(ctx)

	if err := s.scheduler.Run(ctx); err != nil {
		return fmt.Errorf("scheduler run: %w", err)
	}

	return nil
}

// RunBot runs the Telegram bot until ctx is canceled.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	if a.cfg.BotToken == "" {
		return errBotTokenMissing
	}

	s := a.build(ctx)

	b, err := telegrambot.New(a.cfg.BotToken, a.cfg.AdminIDs, telegrambot.Deps{
		Profiles:    a.database,
		Recommender: s.recommend,
		Ingester:    s.pipeline,
		Catalog:     a.database,
		LLM:         s.llm,
		Search:      s.search,
		Encoder:     s.encoder,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("bot initialization failed: %w", err)
	}

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// Ingest runs one interest-driven ingestion.
func (a *App) Ingest(ctx context.Context, interests string) (pipeline.Stats, error) {
	stats, err := a.build(ctx).pipeline.Ingest(ctx, interests)
	if err != nil {
		return stats, fmt.Errorf("ingest: %w", err)
	}

	return stats, nil
}

// Recommend serves recommendations for username.
func (a *App) Recommend(ctx context.Context, username string) ([]domain.Recommendation, error) {
	recs, err := a.build(ctx).recommend.Recommendations(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	return recs, nil
}

// SaveProfile stores the interests of username.
func (a *App) SaveProfile(ctx context.Context, username, interests string) error {
	if username == "" {
		username = a.cfg.DefaultUsername
	}

	terms := domain.ParseInterests(interests)
	if len(terms) == 0 {
		return fmt.Errorf("profile %q: no interests given", username)
	}

	if err := a.database.SaveProfile(ctx, domain.Profile{Username: username, Interests: terms}); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	a.logger.Info().Str("username", username).Strs("interests", terms).Msg("profile saved")

	return nil
}

// build wires the dependency graph once.
func (a *App) build(ctx context.Context) *services {
	if a.services != nil {
		return a.services
	}

	cfg := a.cfg
	llmClient := a.newLLMClient(ctx)
	encoder := a.newEmbeddingClient(ctx)
	chain := a.newSearchChain()
	crawler := a.newCrawler()

	extractor := extract.New(crawler, llmClient, extract.Config{
		Year:     cfg.TargetYear,
		MaxChars: cfg.ExtractMaxChars,
	}, a.componentLogger("extract"))

	localExtractor := extract.New(crawler, llmClient, extract.Config{
		Year:     cfg.TargetYear,
		MaxChars: cfg.LocalExtractMaxChars,
		Local:    true,
	}, a.componentLogger("local-extract"))

	finder := discovery.New(chain, cfg.TargetYear, cfg.SearchMaxResults, a.logger).
		WithDomainFilter(discovery.NewDomainFilter(cfg.DomainAllowlist, cfg.DomainDenylist))

	p := pipeline.New(pipeline.Deps{
		Planner:        planner.New(llmClient, cfg.TargetYear, cfg.MaxQueries, a.logger),
		Discovery:      finder,
		Extractor:      extractor,
		LocalExtractor: localExtractor,
		Refiner: extract.NewRefiner(chain, crawler, llmClient, extract.RefineConfig{
			Year:           cfg.TargetYear,
			MaxRefinements: cfg.MaxRefinements,
			MaxChars:       cfg.RefineMaxChars,
		}, a.logger),
		Verifier: verify.New(llmClient, cfg.TargetYear, a.logger),
		Encoder:  encoder,
		Merger: dedup.New(a.database, dedup.Config{
			Threshold:        cfg.MergeSimilarity,
			DescriptionDelta: cfg.MergeDescriptionDelta,
			Year:             cfg.TargetYear,
		}, a.logger),
	}, pipeline.Config{
		Year:              cfg.TargetYear,
		MaxQueries:        cfg.MaxQueries,
		MaxCrawlURLs:      cfg.MaxCrawlURLs,
		ResultsPerKeyword: cfg.SchedulerResultsPerKeyword,
	}, a.logger)

	sched := scheduler.New(
		scheduler.NewHistory(cfg.KeywordHistoryPath, cfg.TargetYear, a.logger),
		planner.NewKeywordGenerator(llmClient, cfg.TargetYear, cfg.SchedulerHistoryWindow, cfg.SchedulerKeywordsPerCycle, a.logger),
		p,
		scheduler.Config{Interval: cfg.SchedulerInterval, ErrorBackoff: cfg.SchedulerErrorBackoff},
		a.logger,
	)

	engine := recommend.NewEngine(encoder, llmClient, a.database, recommend.EngineConfig{
		TopK:                   cfg.RecommendTopK,
		CategoryCheckThreshold: cfg.CategoryCheckThreshold,
	}, a.logger)

	trigger := recommend.NewTrigger(p, a.database, recommend.TriggerConfig{
		StrongMatchScore: cfg.StrongMatchScore,
		MinStrongMatches: cfg.MinStrongMatches,
	})

	svc := recommend.NewService(a.database, a.database, engine, trigger, recommend.ServiceConfig{
		DisplayMinScore: cfg.DisplayMinScore,
		DefaultUsername: cfg.DefaultUsername,
	}, a.logger)

	a.services = &services{
		llm:       llmClient,
		encoder:   encoder,
		search:    chain,
		pipeline:  p,
		scheduler: sched,
		recommend: svc,
	}

	return a.services
}

func (a *App) componentLogger(name string) *zerolog.Logger {
	l := a.logger.With().Str(logFieldComponent, name).Logger()
	return &l
}

func (a *App) newLLMClient(ctx context.Context) llm.Client {
	return llm.New(ctx, a.cfg, a.logger)
}

// newEmbeddingClient binds the first configured encoder.
func (a *App) newEmbeddingClient(ctx context.Context) *embeddings.Encoder {
	return embeddings.NewClient(ctx, embeddings.Config{
		OpenAIAPIKey:    a.cfg.OpenAIEmbeddingAPIKey,
		OpenAIModel:     a.cfg.OpenAIEmbeddingModel,
		OpenAIRateLimit: a.cfg.RateLimitRPS,
		GoogleAPIKey:    a.cfg.GoogleAPIKey,
		GoogleRateLimit: a.cfg.RateLimitRPS,
		ProviderOrder:   a.cfg.EmbeddingProviders(),
		CircuitBreakerConfig: embeddings.CircuitBreakerConfig{
			Threshold:  a.cfg.EmbeddingCircuitThreshold,
			ResetAfter: a.cfg.EmbeddingCircuitTimeout,
		},
		TargetDimensions: a.cfg.EmbeddingDimensions,
	}, a.componentLogger("embeddings"))
}

// newSearchChain puts SearxNG in front of the DuckDuckGo HTML backend.
func (a *App) newSearchChain() *search.Chain {
	cfg := a.cfg

	var primary, secondary search.Backend

	if cfg.SearxNGEnabled {
		primary = search.NewSearxNG(search.SearxNGConfig{
			Enabled: true,
			BaseURL: cfg.SearxNGBaseURL,
			Timeout: cfg.SearchTimeout,
			Engines: splitList(cfg.SearxNGEngines),
		})
	}

	if cfg.DuckDuckGoEnabled {
		secondary = search.NewDuckDuckGo(search.DuckDuckGoConfig{
			Enabled: true,
			BaseURL: cfg.DuckDuckGoBaseURL,
			Timeout: cfg.SearchTimeout,
			RPS:     cfg.DuckDuckGoRPS,
			Year:    cfg.TargetYear,
		})
	}

	if primary == nil {
		primary, secondary = secondary, nil
	}

	return search.NewChain(primary, secondary, search.ChainConfig{
		CallTimeout:   cfg.SearchTimeout,
		CircuitWindow: cfg.SearchCircuitWindow,
		CircuitReset:  cfg.SearchCircuitReset,
	}, a.componentLogger("search"))
}

func (a *App) newCrawler() *links.Crawler {
	fetcher := links.NewWebFetcher(a.cfg.WebFetchRPS, a.cfg.WebFetchTimeout)
	return links.NewCrawler(fetcher, a.cfg.MaxContentLength, a.componentLogger("crawler"))
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
