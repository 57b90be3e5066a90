package retry

import (
	"context"
	"fmt"
	"time"
)

type Backoff int

const (
	BackoffNone Backoff = iota
	BackoffFixed
)

func ParseBackoff(s string) Backoff {
	if s == "fixed" {
		return BackoffFixed
	}

	return BackoffNone
}

// Policy retries a call while Retryable classifies its error as recoverable.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	Delay       time.Duration
	// Retryable reports whether err warrants another attempt. Nil means never retry.
	Retryable func(err error) bool
	// OnRetry runs after every retryable failure, including the last one.
	OnRetry func(attempt int, err error)
}

// Do calls fn with attempt numbers starting at 0 until it succeeds, fails with
// a non-retryable error, or runs out of attempts. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}

		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		if attempt == attempts-1 {
			break
		}

		if err := p.wait(ctx); err != nil {
			return err
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}

func (p Policy) wait(ctx context.Context) error {
	if p.Backoff != BackoffFixed || p.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
