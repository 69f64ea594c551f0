// Package fetch holds the networked fetch primitives: the proxy GET client
// used by scraping pipelines and the direct HTTP client used by API
// pipelines.
package fetch

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPOptions tunes the connection pool and timeouts shared by both clients.
type HTTPOptions struct {
	ConnectTimeout     time.Duration // Dial timeout
	SocketTimeout      time.Duration // Wait for response headers after the request is written
	RequestTimeout     time.Duration // Whole request including body, 0 for none
	MaxTotalConns      int
	MaxConnsPerRoute   int
	InsecureSkipVerify bool
}

// ProxyConfig is an authenticated HTTP proxy. An empty Host means direct.
type ProxyConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// URL returns the proxy URL with its credentials, or nil without a host.
// net/http answers the proxy's challenge with these as basic
// Proxy-Authorization.
func (p ProxyConfig) URL() *url.URL {
	if p.Host == "" {
		return nil
	}
	u := &url.URL{Scheme: "http", Host: p.Host}
	if p.Port > 0 {
		u.Host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// String hides the password.
func (p ProxyConfig) String() string {
	if p.Host == "" {
		return "direct"
	}
	return fmt.Sprintf("%s:%d (user %q)", p.Host, p.Port, p.Username)
}

// NewHTTPClient builds a pooled client, routed through proxy when set.
func NewHTTPClient(opts HTTPOptions, proxy *url.URL) *http.Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.MaxTotalConns <= 0 {
		opts.MaxTotalConns = 100
	}
	if opts.MaxConnsPerRoute <= 0 {
		opts.MaxConnsPerRoute = 10
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          opts.MaxTotalConns,
		MaxIdleConnsPerHost:   opts.MaxConnsPerRoute,
		MaxConnsPerHost:       opts.MaxConnsPerRoute,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.SocketTimeout,
		ForceAttemptHTTP2:     true,
	}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in
	}

	return &http.Client{
		Timeout:   opts.RequestTimeout,
		Transport: transport,
	}
}
