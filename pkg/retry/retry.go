// Package retry provides bounded retry with exponential backoff for
// operations against flaky external services, currently the notification
// channels.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"ldreader/pkg/logger"
)

// BackoffStrategy computes the delay before a given retry attempt.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically with jitter.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff returns 1s base, 30s cap, doubling, 10% jitter.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay returns the delay before attempt (1-based).
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}
	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Config controls a retried operation.
type Config struct {
	// MaxAttempts bounds the total attempts; values < 1 mean a single try.
	MaxAttempts int
	Backoff     BackoffStrategy
	Context     context.Context
	Logger      logger.Logger
}

// DefaultConfig retries three times with exponential backoff.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// Do runs op, retrying on error until it succeeds or MaxAttempts is reached.
func Do(op func() error, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := time.Duration(0)
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}
		if cfg.Logger != nil {
			cfg.Logger.WithError(lastErr).WithFields(map[string]interface{}{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
			}).Warn("retrying operation")
		}
		if err := Wait(cfg.Context, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", attempts, lastErr)
}

// Wait sleeps for delay or until ctx is cancelled.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
