// internal/fetch/proxy.go
package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/law-makers/crawlflow/internal/cache"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/executor"
	"github.com/law-makers/crawlflow/internal/identity"
	"github.com/law-makers/crawlflow/internal/metrics"
	"github.com/law-makers/crawlflow/internal/ratelimit"
	"github.com/law-makers/crawlflow/internal/reqctx"
	urlutil "github.com/law-makers/crawlflow/internal/utils/url"
)

// DefaultReferer is sent with every proxied request.
const DefaultReferer = "https://www.google.com/"

// ProxyOptions configures a ProxyClient. Executor is required; Limiter and
// Cache are optional.
type ProxyOptions struct {
	Proxy      ProxyConfig
	HTTP       HTTPOptions
	Timeout    time.Duration // Per request, enforced around the executor job
	Identities *identity.Rotator
	Executor   *executor.Pool
	Limiter    ratelimit.RateLimiter
	Cache      cache.Cache
	CacheTTL   time.Duration
}

// ProxyClient issues GET requests through an authenticated proxy on a
// dedicated executor, with a hard per-request timeout. The executor must not
// be the one running the callers, or a full pool waits on itself.
type ProxyClient struct {
	client     *http.Client
	timeout    time.Duration
	identities *identity.Rotator
	exec       *executor.Pool
	limiter    ratelimit.RateLimiter
	cache      cache.Cache
	cacheTTL   time.Duration
}

// NewProxyClient creates a client for opts.
func NewProxyClient(opts ProxyOptions) (*ProxyClient, error) {
	if opts.Executor == nil {
		return nil, engine.NewEngineError(engine.ErrCodeValidation, "proxy client needs an executor", nil)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &ProxyClient{
		client:     NewHTTPClient(opts.HTTP, opts.Proxy.URL()),
		timeout:    opts.Timeout,
		identities: opts.Identities,
		exec:       opts.Executor,
		limiter:    opts.Limiter,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
	}, nil
}

// Get fetches rawURL and returns its body. Only the query string is encoded.
// A request that outlives the timeout is cancelled and reported as a
// retryable REQUEST_TIMEOUT; TLS handshake failures are reported as
// TLS_HANDSHAKE.
func (c *ProxyClient) Get(ctx context.Context, rawURL string) (string, error) {
	target := urlutil.EncodeQuery(rawURL)
	logger := reqctx.Logger(ctx)

	if c.cache != nil {
		if body, ok := c.cache.Get(target); ok {
			metrics.ObserveProxyRequest("cached", 0)
			return body, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, target); err != nil {
			return "", classify(target, err)
		}
	}

	start := time.Now()
	f, err := executor.Submit(ctx, c.exec, func(ctx context.Context) (string, error) {
		return c.do(ctx, target)
	})
	if err != nil {
		if errors.Is(err, executor.ErrRejected) {
			return "", engine.NewEngineError(engine.ErrCodeQueueFull, "proxy request rejected", err).
				WithDetail("url", target)
		}
		return "", engine.NewEngineError(engine.ErrCodeFetch, "proxy request not submitted", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-f.Done():
	case <-timer.C:
		f.Cancel()
		metrics.ObserveProxyRequest("timeout", time.Since(start))
		logger.Warn().Str("url", target).Dur("timeout", c.timeout).Msg("Proxy request timed out")
		return "", engine.NewEngineError(engine.ErrCodeRequestTimeout, "request timeout", nil).
			WithDetail("url", target)
	case <-ctx.Done():
		f.Cancel()
		metrics.ObserveProxyRequest("cancelled", time.Since(start))
		return "", classify(target, ctx.Err())
	}

	body, err, _, _ := f.Peek()
	if err != nil {
		metrics.ObserveProxyRequest(string(engine.CodeOf(err)), time.Since(start))
		logger.Warn().Err(err).Str("url", target).Msg("Proxy request failed")
		return "", err
	}

	metrics.ObserveProxyRequest("ok", time.Since(start))
	if c.cache != nil {
		c.cache.Set(target, body, c.cacheTTL)
	}
	return body, nil
}

func (c *ProxyClient) do(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", engine.NewEngineError(engine.ErrCodeValidation, "invalid url", err).
			WithDetail("url", target)
	}
	req.Header.Set("Referer", DefaultReferer)
	if ua := c.identities.Next(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classify(target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(target, err)
	}
	if err := checkStatus(target, resp.StatusCode); err != nil {
		return "", err
	}
	return string(data), nil
}

// Close releases idle connections.
func (c *ProxyClient) Close() {
	c.client.CloseIdleConnections()
}
