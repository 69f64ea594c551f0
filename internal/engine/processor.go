// internal/engine/processor.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/law-makers/crawlflow/internal/metrics"
	"github.com/law-makers/crawlflow/internal/reqctx"
	"github.com/law-makers/crawlflow/internal/retry"
)

// Options are the retry settings applied to every pipeline invocation.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Execute drives one unit through before, fetch with retry, transform and
// after. After runs exactly once whatever the outcome. The returned error,
// if any, is an *EngineError.
func Execute[I, O, R any](ctx context.Context, p Pipeline[I, O, R], u *Unit[I, O], opts Options) (result R, err error) {
	if u == nil {
		return result, NewEngineError(ErrCodeValidation, "unit is nil", nil)
	}
	ctx = reqctx.WithUnit(ctx, u.ID)
	logger := reqctx.Logger(ctx)
	start := time.Now()

	if hook, ok := any(p).(AfterHook[I, O, R]); ok {
		defer func() {
			hook.After(ctx, u, result, err)
		}()
	}

	logger.Debug().Str("url", u.URL).Msg("Starting unit")

	if hook, ok := any(p).(BeforeHook[I, O]); ok {
		if err = hook.Before(ctx, u); err != nil {
			err = wrap(ErrCodeFetch, "before hook failed", err)
			return result, err
		}
	}

	if err = fetchWithRetry(ctx, p, u, opts); err != nil {
		logger.Warn().Err(err).Str("url", u.URL).Msg("Fetch failed")
		return result, err
	}

	result, err = p.Transform(ctx, u)
	if err != nil {
		err = wrap(ErrCodeTransform, "transform failed", err)
		logger.Warn().Err(err).Str("url", u.URL).Msg("Transform failed")
		return result, err
	}

	logger.Debug().
		Str("url", u.URL).
		Dur("elapsed", time.Since(start)).
		Msg("Unit completed")
	return result, nil
}

func fetchWithRetry[I, O, R any](ctx context.Context, p Pipeline[I, O, R], u *Unit[I, O], opts Options) error {
	policy := PolicyOf(p)

	err := retry.Fixed(ctx, retry.Config{
		MaxAttempts: opts.MaxRetries,
		Delay:       opts.RetryDelay,
		Retryable: func(err error) bool {
			return errors.Is(err, ErrEmptyOutput) || policy.Allows(err)
		},
		OnRetry: func(_ int, err error) {
			metrics.ObserveRetry(string(CodeOf(err)))
		},
	}, func(attempt int) error {
		out, err := p.Fetch(ctx, u)
		if err != nil {
			return wrap(ErrCodeFetch, "fetch failed", err)
		}
		if isZero(out) {
			return NewEngineError(ErrCodeEmptyOutput, "fetch returned no output", nil).
				WithDetail("attempt", attempt)
		}
		u.Output = out
		return nil
	})

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return NewEngineError(ErrCodeExhausted,
			fmt.Sprintf("download failed after %d retries", exhausted.Attempts), exhausted.Last)
	}
	if err != nil {
		return wrap(ErrCodeFetch, "fetch aborted", err)
	}
	return nil
}

func isZero[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}
