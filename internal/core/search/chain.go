package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/lueurxax/event-scout/internal/platform/observability"
)

const (
	statusSuccess  = "success"
	statusEmpty    = "empty"
	statusError    = "error"
	statusRejected = "rejected"

	defaultCallTimeout     = 30 * time.Second
	defaultCircuitWindow   = time.Minute
	defaultCircuitReset    = 2 * time.Minute
	circuitMinRequests     = 3
	circuitFailureRatio    = 0.6
	circuitHalfOpenProbes  = 1
	logKeyBackend          = "backend"
	logKeyQuery            = "query"
	logMsgPrimaryFailed    = "primary search backend failed, using fallback"
	logMsgCircuitStateFlip = "search circuit breaker state changed"
)

// ChainConfig configures the primary/fallback search chain.
type ChainConfig struct {
	CallTimeout   time.Duration // per backend call
	CircuitWindow time.Duration // closed-state counting window
	CircuitReset  time.Duration // open-state duration before a probe
}

// Chain sends a query to the primary backend behind a circuit breaker and
// falls back to the secondary on error or on an empty answer.
type Chain struct {
	primary   Backend
	secondary Backend
	breaker   *gobreaker.CircuitBreaker[[]Result]
	timeout   time.Duration
	logger    *zerolog.Logger
}

// NewChain builds a chain. Either backend may be nil.
func NewChain(primary, secondary Backend, cfg ChainConfig, logger *zerolog.Logger) *Chain {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	if cfg.CircuitWindow <= 0 {
		cfg.CircuitWindow = defaultCircuitWindow
	}

	if cfg.CircuitReset <= 0 {
		cfg.CircuitReset = defaultCircuitReset
	}

	c := &Chain{
		primary:   primary,
		secondary: secondary,
		timeout:   cfg.CallTimeout,
		logger:    logger,
	}

	if primary != nil {
		c.breaker = newSearchBreaker(string(primary.Name()), cfg, logger)
	}

	return c
}

func newSearchBreaker(name string, cfg ChainConfig, logger *zerolog.Logger) *gobreaker.CircuitBreaker[[]Result] {
	observability.SearchCircuitBreakerState.WithLabelValues(name).Set(stateToFloat(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[[]Result](gobreaker.Settings{
		Name:        name,
		MaxRequests: circuitHalfOpenProbes,
		Interval:    cfg.CircuitWindow,
		Timeout:     cfg.CircuitReset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < circuitMinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= circuitFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str(logKeyBackend, name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg(logMsgCircuitStateFlip)

			observability.SearchCircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

// Name returns the chain name.
func (c *Chain) Name() BackendName {
	return BackendChain
}

// Search returns primary results, or fallback results when the primary
// fails, is open, or finds nothing.
func (c *Chain) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	var primaryErr error

	if c.primary != nil {
		results, err := c.searchPrimary(ctx, query, limit)
		if err == nil && len(results) > 0 {
			return results, nil
		}

		primaryErr = err

		if c.secondary != nil {
			observability.SearchFallbacks.WithLabelValues(string(c.primary.Name()), string(c.secondary.Name())).Inc()

			c.logger.Debug().
				Err(err).
				Str(logKeyBackend, string(c.primary.Name())).
				Str(logKeyQuery, query).
				Msg(logMsgPrimaryFailed)
		}
	}

	if c.secondary == nil {
		if primaryErr != nil {
			return nil, errors.Join(ErrAllBackendsFailed, primaryErr)
		}

		return nil, nil
	}

	results, err := c.call(ctx, c.secondary, query, limit)
	if err != nil {
		return nil, errors.Join(ErrAllBackendsFailed, primaryErr, err)
	}

	return results, nil
}

func (c *Chain) searchPrimary(ctx context.Context, query string, limit int) ([]Result, error) {
	results, err := c.breaker.Execute(func() ([]Result, error) {
		return c.call(ctx, c.primary, query, limit)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			observability.SearchRequests.WithLabelValues(string(c.primary.Name()), statusRejected).Inc()
		}

		return nil, fmt.Errorf("%s: %w", c.primary.Name(), err)
	}

	return results, nil
}

func (c *Chain) call(ctx context.Context, b Backend, query string, limit int) ([]Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	results, err := b.Search(callCtx, query, limit)

	observability.SearchLatency.WithLabelValues(string(b.Name())).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		observability.SearchRequests.WithLabelValues(string(b.Name()), statusError).Inc()
		return nil, fmt.Errorf("%s search: %w", b.Name(), err)
	case len(results) == 0:
		observability.SearchRequests.WithLabelValues(string(b.Name()), statusEmpty).Inc()
	default:
		observability.SearchRequests.WithLabelValues(string(b.Name()), statusSuccess).Inc()
	}

	return results, nil
}

// BreakerState reports the primary circuit state, or "none" without a primary.
func (c *Chain) BreakerState() string {
	if c.breaker == nil {
		return "none"
	}

	return c.breaker.State().String()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
