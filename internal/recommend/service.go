package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
	"github.com/lueurxax/event-scout/internal/platform/observability"
	"github.com/lueurxax/event-scout/internal/process/pipeline"
)

const (
	// DefaultStrongMatchScore is the score a result needs to count as strong.
	DefaultStrongMatchScore float32 = 0.35
	// DefaultMinStrongMatches is how many strong results make ingestion unnecessary.
	DefaultMinStrongMatches = 4
	// DefaultDisplayMinScore is the inclusive floor applied before returning results.
	DefaultDisplayMinScore float32 = 0.25

	decisionSufficient = "sufficient"
	decisionIngest     = "ingest"

	sourceCatalog   = "catalog"
	sourceRefreshed = "refreshed"

	logKeyUsername = "username"
)

// Catalog lists stored events.
type Catalog interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

// Profiles loads interest profiles.
type Profiles interface {
	GetProfile(ctx context.Context, username string) (domain.Profile, error)
}

// Ingester runs the interest-driven ingestion cycle.
type Ingester interface {
	Ingest(ctx context.Context, interests string) (pipeline.Stats, error)
}

// Recommender ranks events for an interest string.
type Recommender interface {
	Recommend(ctx context.Context, interests string, events []domain.Event) []domain.Recommendation
}

// Refresher decides whether the catalog is good enough and refreshes it when not.
type Refresher interface {
	HasEnoughMatches(recs []domain.Recommendation) bool
	IngestAndRecompute(ctx context.Context, interests string) ([]domain.Event, error)
}

// TriggerConfig configures a Trigger.
type TriggerConfig struct {
	StrongMatchScore float32
	MinStrongMatches int
}

// Trigger is the Refresher backed by the ingestion pipeline.
type Trigger struct {
	ingester    Ingester
	catalog     Catalog
	strongScore float32
	minStrong   int
}

// NewTrigger creates a Trigger.
func NewTrigger(ingester Ingester, catalog Catalog, cfg TriggerConfig) *Trigger {
	if cfg.MinStrongMatches <= 0 {
		cfg.MinStrongMatches = DefaultMinStrongMatches
	}

	return &Trigger{
		ingester:    ingester,
		catalog:     catalog,
		strongScore: cfg.StrongMatchScore,
		minStrong:   cfg.MinStrongMatches,
	}
}

// HasEnoughMatches reports whether at least MinStrongMatches results score at
// or above StrongMatchScore.
func (t *Trigger) HasEnoughMatches(recs []domain.Recommendation) bool {
	strong := 0

	for _, r := range recs {
		if r.Score >= t.strongScore {
			strong++
		}
	}

	return strong >= t.minStrong
}

// IngestAndRecompute runs ingestion and returns the reloaded catalog.
func (t *Trigger) IngestAndRecompute(ctx context.Context, interests string) ([]domain.Event, error) {
	if _, err := t.ingester.Ingest(ctx, interests); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	events, err := t.catalog.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload catalog: %w", err)
	}

	return events, nil
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	DisplayMinScore float32
	DefaultUsername string
}

// Service answers recommendation requests for a username.
type Service struct {
	profiles        Profiles
	catalog         Catalog
	engine          Recommender
	refresher       Refresher
	displayMin      float32
	defaultUsername string
	logger          *zerolog.Logger
}

// NewService creates a Service.
func NewService(profiles Profiles, catalog Catalog, engine Recommender, refresher Refresher, cfg ServiceConfig, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.DefaultUsername == "" {
		cfg.DefaultUsername = domain.DefaultUsername
	}

	l := logger.With().Str(logKeyComponent, "recommend-service").Logger()

	return &Service{
		profiles:        profiles,
		catalog:         catalog,
		engine:          engine,
		refresher:       refresher,
		displayMin:      cfg.DisplayMinScore,
		defaultUsername: cfg.DefaultUsername,
		logger:          &l,
	}
}

// Recommendations serves the profile of username, ingesting first when the
// catalog has too few strong matches. A user without a profile gets no
// results. An ingestion failure is logged and the existing catalog is served.
func (s *Service) Recommendations(ctx context.Context, username string) ([]domain.Recommendation, error) {
	if username == "" {
		username = s.defaultUsername
	}

	log := s.logger.With().Str(logKeyUsername, username).Logger()

	profile, err := s.profiles.GetProfile(ctx, username)
	if err != nil {
		if errors.Is(err, coreerrors.ErrProfileNotFound) || errors.Is(err, coreerrors.ErrNotFound) {
			log.Info().Msg("no profile, nothing to recommend")
			return []domain.Recommendation{}, nil
		}

		return nil, fmt.Errorf("load profile: %w", err)
	}

	terms := domain.NormalizeInterests(profile.Interests)
	if len(terms) == 0 {
		return []domain.Recommendation{}, nil
	}

	interests := domain.JoinInterests(terms)

	events, err := s.catalog.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	recs := s.engine.Recommend(ctx, interests, events)
	source := sourceCatalog

	if len(events) > 0 && s.refresher.HasEnoughMatches(recs) {
		observability.TriggerDecisions.WithLabelValues(decisionSufficient).Inc()
	} else {
		observability.TriggerDecisions.WithLabelValues(decisionIngest).Inc()
		log.Info().Int("catalog", len(events)).Msg("not enough strong matches, ingesting")

		refreshed, err := s.refresher.IngestAndRecompute(ctx, interests)
		if err != nil {
			log.Error().Err(err).Msg("ingestion failed, serving existing catalog")
		} else {
			recs = s.engine.Recommend(ctx, interests, refreshed)
			source = sourceRefreshed
		}
	}

	observability.RecommendRequests.WithLabelValues(source).Inc()

	return s.displayable(recs), nil
}

func (s *Service) displayable(recs []domain.Recommendation) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(recs))

	for _, r := range recs {
		if r.Score >= s.displayMin {
			out = append(out, r)
		}
	}

	return out
}
