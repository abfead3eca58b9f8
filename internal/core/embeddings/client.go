// Package embeddings provides text embedding generation for the event catalog.
//
// Exactly one model is bound per process so that every stored vector and every
// interest vector live in the same space. Supported providers:
//   - OpenAI text-embedding-3-small / text-embedding-3-large
//   - Google gemini-embedding-001
//   - a deterministic feature-hashing mock for local runs and tests
//
// The bound provider is guarded by a circuit breaker and instrumented with
// prometheus metrics. Output vectors are padded or truncated to the configured
// width.
package embeddings

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Client defines the interface for embedding operations.
type Client interface {
	// GetEmbedding generates an embedding for the given text.
	// Identical text yields identical vectors of the configured width.
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Ensure Encoder implements Client interface.
var _ Client = (*Encoder)(nil)

// Config holds configuration for creating an embedding client.
type Config struct {
	// OpenAI settings
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIRateLimit int

	// Google settings
	GoogleAPIKey    string
	GoogleModel     string
	GoogleRateLimit int

	// Provider order; the first available one is bound.
	ProviderOrder []string

	// Circuit breaker settings
	CircuitBreakerConfig CircuitBreakerConfig

	// Target dimensions for output vectors
	TargetDimensions int
}

// NewClient binds the first available provider from cfg.ProviderOrder.
// When none is configured the deterministic mock is bound.
func NewClient(ctx context.Context, cfg Config, logger *zerolog.Logger) *Encoder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.TargetDimensions == 0 {
		cfg.TargetDimensions = DefaultDimensions
	}

	for _, name := range normalizeOrder(cfg.ProviderOrder) {
		var p Provider

		switch ProviderName(name) {
		case ProviderOpenAI:
			p = newOpenAIFromConfig(cfg)
		case ProviderGoogle:
			p = newGoogleFromConfig(ctx, cfg, logger)
		default:
			logger.Warn().Str(logKeyProvider, name).Msg("unknown embedding provider in order, skipping")
		}

		if p != nil && p.IsAvailable() {
			return NewEncoder(p, cfg.TargetDimensions, cfg.CircuitBreakerConfig, logger)
		}
	}

	logger.Warn().Msg("no embedding providers configured, using mock provider")

	return NewEncoder(NewMockProvider(cfg.TargetDimensions), cfg.TargetDimensions, cfg.CircuitBreakerConfig, logger)
}

func normalizeOrder(order []string) []string {
	if len(order) == 0 {
		return []string{string(ProviderOpenAI), string(ProviderGoogle)}
	}

	out := make([]string, 0, len(order))

	for _, p := range order {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}

	return out
}

func newOpenAIFromConfig(cfg Config) Provider {
	if cfg.OpenAIAPIKey == "" || cfg.OpenAIAPIKey == mockAPIKey {
		return nil
	}

	return NewOpenAIProvider(OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAIModel,
		Dimensions: cfg.TargetDimensions,
		RateLimit:  cfg.OpenAIRateLimit,
	})
}

func newGoogleFromConfig(ctx context.Context, cfg Config, logger *zerolog.Logger) Provider {
	if cfg.GoogleAPIKey == "" {
		return nil
	}

	p, err := NewGoogleProvider(ctx, GoogleConfig{
		APIKey:    cfg.GoogleAPIKey,
		Model:     cfg.GoogleModel,
		RateLimit: cfg.GoogleRateLimit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create Google embedding provider")
		return nil
	}

	return p
}
