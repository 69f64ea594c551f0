// internal/engine/dynamic/actions.go
package dynamic

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// DefaultQuietPeriod is how long the network must stay idle for WaitNetworkIdle.
const DefaultQuietPeriod = 500 * time.Millisecond

// SetIdentity overrides the user agent of the page and sends it as an extra
// header on every request.
func SetIdentity(ua string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetUserAgentOverride(ua).Do(ctx); err != nil {
			return err
		}
		return network.SetExtraHTTPHeaders(network.Headers{"User-Agent": ua}).Do(ctx)
	})
}

// ScrollToBottom scrolls the page to the end of the document.
func ScrollToBottom() chromedp.Action {
	return chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil)
}

// DismissDialogs dismisses every JavaScript dialog opened while the
// surrounding Run is active.
func DismissDialogs() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
				log.Debug().Str("message", e.Message).Msg("Dismissing dialog")
				go func() {
					if err := chromedp.Run(ctx, page.HandleJavaScriptDialog(false)); err != nil {
						log.Debug().Err(err).Msg("Dismissing dialog failed")
					}
				}()
			}
		})
		return nil
	})
}

// Document parses the rendered HTML of the session's page.
func Document(ctx context.Context, s *Session) (*goquery.Document, error) {
	var html string
	if err := s.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// WaitStrategy decides when a navigation has settled. Arm is called before
// the navigation starts and returns the function that blocks after it.
type WaitStrategy interface {
	Arm(ctx context.Context) (func(context.Context) error, error)
}

// WaitFunc adapts a function to WaitStrategy.
type WaitFunc func(ctx context.Context) (func(context.Context) error, error)

// Arm implements WaitStrategy.
func (f WaitFunc) Arm(ctx context.Context) (func(context.Context) error, error) {
	return f(ctx)
}

// WaitLoad relies on the load event that navigation already waits for.
func WaitLoad() WaitStrategy {
	return WaitFunc(func(context.Context) (func(context.Context) error, error) {
		return func(context.Context) error { return nil }, nil
	})
}

// WaitVisible waits until sel is visible.
func WaitVisible(sel string) WaitStrategy {
	return WaitFunc(func(context.Context) (func(context.Context) error, error) {
		return func(ctx context.Context) error {
			return chromedp.WaitVisible(sel, chromedp.ByQuery).Do(ctx)
		}, nil
	})
}

// WaitNetworkIdle waits until no request has been in flight for quiet.
func WaitNetworkIdle(quiet time.Duration) WaitStrategy {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return WaitFunc(func(ctx context.Context) (func(context.Context) error, error) {
		if err := network.Enable().Do(ctx); err != nil {
			return nil, err
		}

		var mu sync.Mutex
		inflight := make(map[network.RequestID]struct{})
		last := time.Now()

		chromedp.ListenTarget(ctx, func(ev interface{}) {
			mu.Lock()
			defer mu.Unlock()
			switch e := ev.(type) {
			case *network.EventRequestWillBeSent:
				inflight[e.RequestID] = struct{}{}
			case *network.EventLoadingFinished:
				delete(inflight, e.RequestID)
			case *network.EventLoadingFailed:
				delete(inflight, e.RequestID)
			default:
				return
			}
			last = time.Now()
		})

		return func(ctx context.Context) error {
			ticker := time.NewTicker(quiet / 5)
			defer ticker.Stop()
			for {
				mu.Lock()
				idle := len(inflight) == 0 && time.Since(last) >= quiet
				mu.Unlock()
				if idle {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		}, nil
	})
}
