package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testWorkerName = "test-worker"

var errProcess = errors.New("process failed")

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32

	done := make(chan error, 1)

	go func() {
		done <- Loop(ctx, Config{
			Name:         testWorkerName,
			PollInterval: time.Millisecond,
			Process: func(context.Context) error {
				if calls.Add(1) == 3 {
					cancel()
				}

				return nil
			},
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}

	require.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestLoopExitsWhenOnErrorDeclines(t *testing.T) {
	err := Loop(context.Background(), Config{
		Name:    testWorkerName,
		Process: func(context.Context) error { return errProcess },
		OnError: func(error) bool { return false },
	})

	require.ErrorIs(t, err, errProcess)
}

func TestLoopRecoversPanic(t *testing.T) {
	var seen error

	err := Loop(context.Background(), Config{
		Name:    testWorkerName,
		Process: func(context.Context) error { panic("boom") },
		OnError: func(err error) bool {
			seen = err
			return false
		},
	})

	var panicErr *PanicError

	require.ErrorAs(t, err, &panicErr)
	require.Equal(t, "boom", panicErr.Value)
	require.Equal(t, err, seen)
}

func TestNextDelay(t *testing.T) {
	cfg := Config{PollInterval: 10 * time.Minute, ErrorBackoff: time.Minute}

	require.Equal(t, 10*time.Minute, nextDelay(cfg, false))
	require.Equal(t, time.Minute, nextDelay(cfg, true))

	cfg.ErrorBackoff = 0
	require.Equal(t, 10*time.Minute, nextDelay(cfg, true))
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
