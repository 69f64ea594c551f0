// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrExhausted is matched by the error returned once every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// Config defines a fixed-interval retry loop
type Config struct {
	MaxAttempts int                          // Total attempts, at least 1
	Delay       time.Duration                // Fixed pause after a failed attempt
	Retryable   func(err error) bool         // Failures not accepted here abort the loop
	OnRetry     func(attempt int, err error) // Called for every retryable failure
}

// ExhaustedError reports that all attempts failed with retryable errors.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("download failed after %d retries: %v", e.Attempts, e.Last)
}

// Unwrap exposes both the sentinel and the last failure.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Fixed calls fn until it succeeds, fails with a non-retryable error, or
// MaxAttempts is reached. The pause between attempts is always cfg.Delay.
func Fixed(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				log.Debug().Int("attempts", attempt).Msg("Retry succeeded")
			}
			return nil
		}
		lastErr = err

		if cfg.Retryable == nil || !cfg.Retryable(err) {
			log.Debug().Err(err).Int("attempt", attempt).Msg("Error is not retryable")
			return err
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("delay", cfg.Delay).
			Msg("Attempt failed, retrying")

		if attempt == attempts || cfg.Delay <= 0 {
			continue
		}
		timer := time.NewTimer(cfg.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return &ExhaustedError{Attempts: attempts, Last: lastErr}
}
