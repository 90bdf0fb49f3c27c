package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"splitmerge/internal/logging"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// Policy controls how many times an operation is attempted and how long to
// wait between attempts. Delays grow linearly: BaseDelay * attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger
	// Sleeper replaces the timer-based wait (tests).
	Sleeper func(time.Duration)
}

// DefaultPolicy returns three attempts with a one second base delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: defaultMaxAttempts, BaseDelay: defaultBaseDelay}
}

// Attempts returns the effective attempt count (at least one).
func (p Policy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait applied after the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt <= 0 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempt)
}

// Do invokes op until retryable reports false for its result, an error is
// returned, or the attempt budget is spent. Errors are never retried. When the
// budget is exhausted the last result is returned with a nil error so callers
// can treat it as a final value.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error), retryable func(T) bool) (T, error) {
	var zero T
	if op == nil {
		return zero, errors.New("retry: nil operation")
	}
	attempts := policy.Attempts()
	logger := policy.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var last T
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err != nil {
			return result, err
		}
		if retryable == nil || !retryable(result) {
			return result, nil
		}
		last = result
		if attempt == attempts {
			break
		}
		delay := policy.Delay(attempt)
		logging.WithContext(ctx, logger).Info("retrying",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
		)
		if err := policy.sleep(ctx, delay); err != nil {
			return last, err
		}
	}
	logging.WarnWithContext(logging.WithContext(ctx, logger), "retries exhausted", "retry_exhausted",
		logging.Int("max_attempts", attempts),
		logging.String(logging.FieldErrorHint, "provider still overloaded; try again later or lower split.max_parallel"),
		logging.String(logging.FieldImpact, "result reported as overloaded"),
	)
	return last, nil
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if p.Sleeper != nil {
		p.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
