package embeddings

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
)

// ErrCircuitBreakerOpen indicates the circuit breaker is open.
var ErrCircuitBreakerOpen = coreerrors.ErrCircuitBreakerOpen

// NewCircuitBreaker builds a breaker that opens after cfg.Threshold consecutive
// failures and half-opens after cfg.ResetAfter. onOpen, if set, runs on every
// transition into the open state.
func NewCircuitBreaker[T any](name string, cfg CircuitBreakerConfig, logger *zerolog.Logger, onOpen func()) *gobreaker.CircuitBreaker[T] {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultCircuitThreshold
	}

	threshold := uint32(cfg.Threshold) //nolint:gosec // threshold is a small positive config value

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.ResetAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state changed")
			}

			if to == gobreaker.StateOpen && onOpen != nil {
				onOpen()
			}
		},
	})
}

// IsBreakerRejection reports whether err came from an open or saturated breaker
// rather than from the wrapped call.
func IsBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
