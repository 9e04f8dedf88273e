package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotaflow/quotaflow/internal/core"
)

func TestRetryExecutorSucceedsAfterFailures(t *testing.T) {
	var delays []time.Duration
	executor := &RetryExecutor{
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	calls := 0
	resp, attempts, err := executor.Execute(context.Background(), func(ctx context.Context) (*core.Response, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("boom")
		}
		return &core.Response{StatusCode: 200}, nil
	}, 3, time.Second)

	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, 3, attempts)
	require.Equal(t, 3, calls)
	// Exact powers of two: base, then base*2.
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestRetryExecutorExhaustion(t *testing.T) {
	var delays []time.Duration
	executor := &RetryExecutor{
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	terminal := errors.New("always fails")
	calls := 0
	_, attempts, err := executor.Execute(context.Background(), func(ctx context.Context) (*core.Response, error) {
		calls++
		return nil, terminal
	}, 2, 100*time.Millisecond)

	// Initial attempt plus two retries, then the terminal error as-is.
	require.Equal(t, 3, calls)
	require.Equal(t, 3, attempts)
	require.ErrorIs(t, err, terminal)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}

func TestRetryExecutorZeroRetries(t *testing.T) {
	executor := &RetryExecutor{}

	calls := 0
	_, attempts, err := executor.Execute(context.Background(), func(ctx context.Context) (*core.Response, error) {
		calls++
		return nil, errors.New("boom")
	}, 0, time.Second)

	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, attempts)
}

func TestRetryExecutorStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	executor := &RetryExecutor{
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	calls := 0
	_, _, err := executor.Execute(ctx, func(ctx context.Context) (*core.Response, error) {
		calls++
		return nil, errors.New("boom")
	}, 5, time.Second)

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
