// Package worker provides the loop used by long-running background jobs:
// poll-based iteration with error backoff, cancellation and panic recovery.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const logFieldWorker = "worker"

// ProcessFunc is called once per iteration.
type ProcessFunc func(ctx context.Context) error

// Config configures the worker loop behavior.
type Config struct {
	// Name identifies the worker for logging.
	Name string

	// PollInterval is the wait after a successful iteration.
	PollInterval time.Duration

	// ErrorBackoff is the wait after a failed iteration. Zero means PollInterval.
	ErrorBackoff time.Duration

	// Process is called each iteration to do the main work.
	// A panic inside Process is recovered and treated as an error.
	Process ProcessFunc

	// OnStart is called once when the loop starts.
	OnStart func(ctx context.Context)

	// OnStop is called once when the loop exits.
	OnStop func()

	// OnError is called when Process returns an error.
	// Return true to continue, false to exit the loop.
	OnError func(err error) bool

	// Logger for the worker.
	Logger *zerolog.Logger
}

// Loop runs a worker loop with the given configuration.
// Returns a wrapped context error when the context is canceled, or the first
// error OnError declines to continue past.
func Loop(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	logger.Info().Str(logFieldWorker, cfg.Name).Msg("starting worker loop")

	if cfg.OnStart != nil {
		cfg.OnStart(ctx)
	}

	defer func() {
		if cfg.OnStop != nil {
			cfg.OnStop()
		}

		logger.Info().Str(logFieldWorker, cfg.Name).Msg("worker loop stopped")
	}()

	for {
		if err := checkCanceled(ctx, cfg.Name); err != nil {
			return err
		}

		failed, err := runProcessStep(ctx, cfg, logger)
		if err != nil {
			return err
		}

		if err := Wait(ctx, nextDelay(cfg, failed)); err != nil {
			return fmt.Errorf("worker loop %s: %w", cfg.Name, err)
		}
	}
}

func nextDelay(cfg Config, failed bool) time.Duration {
	if failed && cfg.ErrorBackoff > 0 {
		return cfg.ErrorBackoff
	}

	return cfg.PollInterval
}

// runProcessStep reports whether the iteration failed, and returns an error
// only when the loop must exit.
func runProcessStep(ctx context.Context, cfg Config, logger *zerolog.Logger) (bool, error) {
	if cfg.Process == nil {
		return false, nil
	}

	err := safeProcess(ctx, cfg.Process)
	if err == nil {
		return false, nil
	}

	if ctx.Err() != nil {
		return true, fmt.Errorf("worker loop %s: %w", cfg.Name, ctx.Err())
	}

	if cfg.OnError != nil {
		if !cfg.OnError(err) {
			return true, err
		}

		return true, nil
	}

	logger.Error().Err(err).Str(logFieldWorker, cfg.Name).Msg("process error")

	return true, nil
}

// PanicError wraps a value recovered from a panicking Process call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("recovered panic: %v", e.Value)
}

func safeProcess(ctx context.Context, fn ProcessFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	return fn(ctx)
}

func checkCanceled(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("worker loop %s: %w", name, ctx.Err())
	default:
		return nil
	}
}

// Wait blocks until duration elapses or context is canceled.
// Returns a wrapped context error if context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
