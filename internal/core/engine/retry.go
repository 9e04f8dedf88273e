package engine

import (
	"context"
	"time"

	"github.com/quotaflow/quotaflow/internal/core"
)

// RetryExecutor wraps a call in a bounded, exponentially backed off retry
// loop. Failures are not classified: every error is retried identically up
// to the bound, and the terminal error is propagated unchanged.
type RetryExecutor struct {
	// Sleep waits for d or until ctx is done. Overridable in tests; the
	// default is a timer, never a busy wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Execute attempts call up to 1+maxRetries times, waiting
// baseDelay * 2^attempt between failures. It returns the last response,
// the terminal error if retries are exhausted, and the number of attempts
// made.
func (r *RetryExecutor) Execute(ctx context.Context, call func(ctx context.Context) (*core.Response, error), maxRetries int, baseDelay time.Duration) (*core.Response, int, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempts := 0
	for attempt := 0; ; attempt++ {
		attempts++
		resp, err := call(ctx)
		if err == nil {
			return resp, attempts, nil
		}

		if attempt == maxRetries {
			return nil, attempts, err
		}

		if sleepErr := r.sleep(ctx, baseDelay<<attempt); sleepErr != nil {
			return nil, attempts, sleepErr
		}
	}
}

func (r *RetryExecutor) sleep(ctx context.Context, d time.Duration) error {
	if r != nil && r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
