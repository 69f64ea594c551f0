package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error")
	}
	if c.Proxy.Host != "" && (c.Proxy.Port <= 0 || c.Proxy.Port > 65535) {
		return fmt.Errorf("proxy port must be between 1 and 65535")
	}
	if c.HTTP.ConnectTimeout <= 0 || c.HTTP.SocketTimeout <= 0 || c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http timeouts must be > 0")
	}
	if c.Worker.Core < 0 || c.Worker.Max < 0 || c.Worker.Queue < 0 {
		return fmt.Errorf("worker sizes must be >= 0")
	}
	if c.Worker.Max > 0 && c.Worker.Max < c.Worker.Core {
		return fmt.Errorf("worker max must be >= worker core")
	}
	if c.Browser.PoolSize <= 0 || c.Browser.PoolSize > DefaultMaxBrowserPoolSize {
		return fmt.Errorf("browser pool size must be between 1 and %d", DefaultMaxBrowserPoolSize)
	}
	if c.Crawl.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1")
	}
	if c.Crawl.RetryDelay < 0 || c.Crawl.SubmitDelay < 0 {
		return fmt.Errorf("delays must be >= 0")
	}
	if c.Crawl.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be > 0")
	}
	if c.Crawl.BatchTimeout <= 0 {
		return fmt.Errorf("batch timeout must be > 0")
	}
	if c.Crawl.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must be >= 0")
	}
	switch c.Tasks.Article.Wait {
	case "", "idle", "load":
	default:
		return fmt.Errorf("article wait must be idle or load")
	}
	if c.Cache.Enabled && c.Cache.MaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	return nil
}
