// internal/engine/static/fetcher.go
package static

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/fetch"
)

// BodySource returns the body of a URL. *fetch.ProxyClient implements it.
type BodySource interface {
	Get(ctx context.Context, url string) (string, error)
}

// Requester performs a direct HTTP request. *fetch.Client implements it.
type Requester interface {
	Do(ctx context.Context, url string, req fetch.Request) (*fetch.Response, error)
}

// BodyFetcher is the proxy-HTTP fetch strategy: the output is the raw body.
// An empty body is a zero output and gets retried.
type BodyFetcher[I any] struct {
	Source BodySource
}

// Fetch implements the fetch phase of engine.Pipeline.
func (f *BodyFetcher[I]) Fetch(ctx context.Context, u *engine.Unit[I, string]) (string, error) {
	return f.Source.Get(ctx, u.URL)
}

// RetryPolicy implements engine.PolicyProvider.
func (f *BodyFetcher[I]) RetryPolicy() engine.RetryPolicy {
	return engine.HTTPPolicy
}

// DocumentFetcher is the static-HTML fetch strategy: the body is parsed into
// a goquery document.
type DocumentFetcher[I any] struct {
	Source BodySource
}

// Fetch implements the fetch phase of engine.Pipeline.
func (f *DocumentFetcher[I]) Fetch(ctx context.Context, u *engine.Unit[I, *goquery.Document]) (*goquery.Document, error) {
	body, err := f.Source.Get(ctx, u.URL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, engine.RetryError("empty document", nil).WithDetail("url", u.URL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeFetch, "failed to parse HTML", err).
			WithDetail("url", u.URL)
	}
	return doc, nil
}

// RetryPolicy implements engine.PolicyProvider.
func (f *DocumentFetcher[I]) RetryPolicy() engine.RetryPolicy {
	return engine.HTTPPolicy
}

// RequestFetcher is the generic HTTP fetch strategy. The unit input is the
// request to send.
type RequestFetcher struct {
	Client Requester
}

// Fetch implements the fetch phase of engine.Pipeline.
func (f *RequestFetcher) Fetch(ctx context.Context, u *engine.Unit[*fetch.Request, *fetch.Response]) (*fetch.Response, error) {
	if u.Input == nil {
		return nil, engine.NewEngineError(engine.ErrCodeValidation, "params cannot be nil", nil).
			WithDetail("url", u.URL)
	}
	return f.Client.Do(ctx, u.URL, *u.Input)
}

// RetryPolicy implements engine.PolicyProvider.
func (f *RequestFetcher) RetryPolicy() engine.RetryPolicy {
	return engine.HTTPPolicy
}
