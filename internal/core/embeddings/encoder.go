package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Log key constants.
const logKeyProvider = "provider"

// Encoder binds one embedding provider behind a circuit breaker.
type Encoder struct {
	provider        Provider
	breaker         *gobreaker.CircuitBreaker[EmbeddingResult]
	targetDimension int
	logger          *zerolog.Logger
}

// NewEncoder wraps p. Vectors are resized to targetDimension.
func NewEncoder(p Provider, targetDimension int, cbCfg CircuitBreakerConfig, logger *zerolog.Logger) *Encoder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	name := string(p.Name())

	e := &Encoder{
		provider:        p,
		targetDimension: targetDimension,
		logger:          logger,
	}
	e.breaker = NewCircuitBreaker[EmbeddingResult]("embeddings-"+name, cbCfg, logger, func() {
		RecordCircuitOpen(name)
		SetEmbeddingProviderAvailable(name, false)
	})

	SetEmbeddingProviderAvailable(name, p.IsAvailable())

	logger.Info().
		Str(logKeyProvider, name).
		Str("model", p.Model()).
		Int("dimensions", p.Dimensions()).
		Int("target_dimensions", targetDimension).
		Msg("bound embedding provider")

	return e
}

// ProviderName returns the bound provider.
func (e *Encoder) ProviderName() ProviderName {
	return e.provider.Name()
}

// Model returns the bound model.
func (e *Encoder) Model() string {
	return e.provider.Model()
}

// Dimensions returns the output vector width.
func (e *Encoder) Dimensions() int {
	return e.targetDimension
}

// Healthy reports whether the breaker currently admits calls.
func (e *Encoder) Healthy() bool {
	return e.breaker.State() != gobreaker.StateOpen
}

// GetEmbedding encodes text with the bound provider.
func (e *Encoder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	name := string(e.provider.Name())
	model := e.provider.Model()

	start := time.Now()

	result, err := e.breaker.Execute(func() (EmbeddingResult, error) {
		return e.provider.GetEmbedding(ctx, text)
	})

	RecordEmbeddingLatency(name, model, time.Since(start))

	if err != nil {
		RecordEmbeddingRequest(name, model, false)

		if IsBreakerRejection(err) {
			return nil, fmt.Errorf("%s: %w: %w", name, ErrCircuitBreakerOpen, err)
		}

		return nil, fmt.Errorf("%s embedding: %w", name, err)
	}

	RecordEmbeddingRequest(name, model, true)
	RecordEmbeddingTokens(name, model, estimateTokens(text))
	SetEmbeddingProviderAvailable(name, true)

	return PadToTargetDimensions(result.Vector, e.targetDimension), nil
}
