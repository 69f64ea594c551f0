package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel = "info"
	DefaultJSONLog  = false

	DefaultConnectTimeout   = 10 * time.Second
	DefaultSocketTimeout    = 30 * time.Second
	DefaultRequestTimeout   = 60 * time.Second
	DefaultMaxTotalConns    = 200
	DefaultMaxConnsPerRoute = 20

	DefaultWorkerQueue     = 1024
	DefaultWorkerKeepAlive = time.Minute

	DefaultBrowserHeadless     = true
	DefaultBrowserPoolSize     = 3
	DefaultMaxBrowserPoolSize  = 32
	DefaultNavigationTimeout   = 30 * time.Second
	DefaultScanBackoff         = 25 * time.Millisecond
	DefaultMaxRetries          = 3
	DefaultRetryDelay          = time.Second
	DefaultFetchTimeout        = 30 * time.Second
	DefaultBatchTimeout        = 5 * time.Minute
	DefaultSubmitDelay         = time.Duration(0)
	DefaultRateLimitRPS        = 5.0
	DefaultRateLimitBurst      = 10
	DefaultCacheEnabled        = true
	DefaultCacheTTL            = 5 * time.Minute
	DefaultCacheMaxSizeBytes   = 100 * 1024 * 1024 // 100MB
	DefaultAPIMethod           = "GET"
	DefaultAPIFormat           = "json"
	DefaultLinksLimit          = 0
	DefaultArticleSelector     = "article, main, #content, body"
	DefaultArticleWait         = "idle"
	DefaultKeyringService      = "crawlflow"
	DefaultEnvPrefix           = "CRAWLFLOW"
	DefaultMetricsReadTimeout  = 5 * time.Second
	DefaultShutdownGracePeriod = 10 * time.Second
)

// DefaultUserAgents is the identity rotation used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
}
