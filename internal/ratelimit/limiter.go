// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/law-makers/crawlflow/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound requests per host.
type RateLimiter interface {
	// Wait blocks until a request for urlStr may proceed or ctx ends.
	Wait(ctx context.Context, urlStr string) error

	// Allow reports whether a request for urlStr may proceed right now,
	// consuming a token if so.
	Allow(urlStr string) bool
}

// DomainLimiter keeps one token bucket per host.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perHost  rate.Limit // Requests per second per host
	burst    int        // Burst capacity
}

// NewDomainLimiter creates a limiter allowing requestsPerSecond per host with
// the given burst.
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5.0
	}
	if burst <= 0 {
		burst = 10
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait implements RateLimiter. URLs without a host are not limited.
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	host := hostOf(urlStr)
	if host == "" {
		return nil
	}

	start := time.Now()
	if err := dl.limiter(host).Wait(ctx); err != nil {
		return err
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
		log.Debug().Str("host", host).Dur("waited", waited).Msg("Rate limited")
	}
	return nil
}

// Allow implements RateLimiter.
func (dl *DomainLimiter) Allow(urlStr string) bool {
	host := hostOf(urlStr)
	if host == "" {
		return true
	}
	return dl.limiter(host).Allow()
}

// SetLimit overrides the rate for one host.
func (dl *DomainLimiter) SetLimit(host string, requestsPerSecond float64, burst int) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if l, ok := dl.limiters[host]; ok {
		l.SetLimit(rate.Limit(requestsPerSecond))
		l.SetBurst(burst)
		return
	}
	dl.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (dl *DomainLimiter) limiter(host string) *rate.Limiter {
	dl.mu.RLock()
	l, ok := dl.limiters[host]
	dl.mu.RUnlock()
	if ok {
		return l
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if l, ok := dl.limiters[host]; ok {
		return l
	}
	l = rate.NewLimiter(dl.perHost, dl.burst)
	dl.limiters[host] = l
	return l
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Host
}
