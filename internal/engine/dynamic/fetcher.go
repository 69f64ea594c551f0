// internal/engine/dynamic/fetcher.go
package dynamic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/reqctx"
)

// SessionSource hands out pooled sessions. *Pool implements it.
type SessionSource interface {
	Acquire(ctx context.Context) (*Session, error)
	Release(s *Session)
}

// BrowserFetcher is the pooled-browser fetch strategy. Pipelines embed it
// and supply NewUnit and Transform; the unit's output slot holds the session
// bound to the unit for all of its retries.
type BrowserFetcher[I, R any] struct {
	Sessions          SessionSource
	NavigationTimeout time.Duration
	BeforeNavigate    chromedp.Action // Runs before the first navigation only
	Wait              WaitStrategy    // Defaults to WaitNetworkIdle(DefaultQuietPeriod)
	AfterNavigate     chromedp.Action // Runs after the wait settles
}

// Fetch navigates to the unit's URL, or reloads the page when the unit
// already holds a session from a previous attempt.
func (f *BrowserFetcher[I, R]) Fetch(ctx context.Context, u *engine.Unit[I, *Session]) (*Session, error) {
	s := u.Output
	reload := s != nil
	if !reload {
		var err error
		if s, err = f.Sessions.Acquire(ctx); err != nil {
			return nil, err
		}
		u.Output = s
	}

	navCtx, cancel := ctx, context.CancelFunc(func() {})
	if f.NavigationTimeout > 0 {
		navCtx, cancel = context.WithTimeout(ctx, f.NavigationTimeout)
	}
	defer cancel()

	logger := reqctx.Logger(ctx)
	logger.Debug().
		Str("url", u.URL).
		Int("session_id", s.ID()).
		Bool("reload", reload).
		Msg("Navigating")

	if err := s.Run(navCtx, f.navigate(u.URL, reload)); err != nil {
		return nil, classifyNavigation(navCtx, u.URL, err)
	}
	return s, nil
}

// After returns the unit's session to the pool.
func (f *BrowserFetcher[I, R]) After(_ context.Context, u *engine.Unit[I, *Session], _ R, _ error) {
	if u.Output != nil {
		f.Sessions.Release(u.Output)
		u.Output = nil
	}
}

// RetryPolicy implements engine.PolicyProvider.
func (f *BrowserFetcher[I, R]) RetryPolicy() engine.RetryPolicy {
	return engine.BrowserPolicy
}

func (f *BrowserFetcher[I, R]) navigate(url string, reload bool) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if !reload && f.BeforeNavigate != nil {
			if err := f.BeforeNavigate.Do(ctx); err != nil {
				return err
			}
		}

		strategy := f.Wait
		if strategy == nil {
			strategy = WaitNetworkIdle(DefaultQuietPeriod)
		}
		wait, err := strategy.Arm(ctx)
		if err != nil {
			return err
		}

		if reload {
			err = chromedp.Reload().Do(ctx)
		} else {
			err = chromedp.Navigate(url).Do(ctx)
		}
		if err != nil {
			return err
		}
		if err := wait(ctx); err != nil {
			return err
		}

		if f.AfterNavigate != nil {
			return f.AfterNavigate.Do(ctx)
		}
		return nil
	})
}

// classifyNavigation maps navigation failures onto failure kinds: timeouts
// and network-level page load errors are transient, the rest is fatal.
func classifyNavigation(navCtx context.Context, url string, err error) error {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || navCtx.Err() == context.DeadlineExceeded {
		return engine.NewEngineError(engine.ErrCodeNavigationTimeout, "navigation timed out", err).
			WithDetail("url", url)
	}
	if strings.Contains(err.Error(), "net::ERR_") {
		return engine.RetryError("page load error", err).WithDetail("url", url)
	}
	return engine.NewEngineError(engine.ErrCodeFetch, "navigation failed", err).WithDetail("url", url)
}
