package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds application configuration values
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Browser BrowserConfig `mapstructure:"browser"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tasks   TasksConfig   `mapstructure:"tasks"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ProxyConfig is the authenticated forward proxy used by the proxy fetch
// client and the browsers. An empty host disables the proxy.
type ProxyConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type HTTPConfig struct {
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	SocketTimeout      time.Duration `mapstructure:"socket_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MaxTotalConns      int           `mapstructure:"max_total_conns"`
	MaxConnsPerRoute   int           `mapstructure:"max_conns_per_route"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// WorkerConfig sizes the shared executor. Zero core means derived from the
// CPU count.
type WorkerConfig struct {
	Core      int           `mapstructure:"core"`
	Max       int           `mapstructure:"max"`
	Queue     int           `mapstructure:"queue"`
	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	ExecutablePath    string        `mapstructure:"executable_path"`
	PoolSize          int           `mapstructure:"pool_size"`
	UserAgents        []string      `mapstructure:"user_agents"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	MaxScan           int           `mapstructure:"max_scan"`
	ScanBackoff       time.Duration `mapstructure:"scan_backoff"`
}

type CrawlConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`
	SubmitDelay    time.Duration `mapstructure:"submit_delay"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type CacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TTL          time.Duration `mapstructure:"ttl"`
	MaxSizeBytes int64         `mapstructure:"max_size_bytes"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TasksConfig seeds the built-in tasks.
type TasksConfig struct {
	Links   LinksTaskConfig   `mapstructure:"links"`
	Article ArticleTaskConfig `mapstructure:"article"`
	Raw     RawTaskConfig     `mapstructure:"raw"`
	API     APITaskConfig     `mapstructure:"api"`
}

type LinksTaskConfig struct {
	URLs     []string `mapstructure:"urls"`
	SameHost bool     `mapstructure:"same_host"`
	Limit    int      `mapstructure:"limit"`
}

// ArticleTaskConfig selects how a rendered page is considered settled:
// WaitSelector wins when set, otherwise Wait is "idle" or "load".
type ArticleTaskConfig struct {
	URL          string `mapstructure:"url"`
	Selector     string `mapstructure:"selector"`
	Wait         string `mapstructure:"wait"`
	WaitSelector string `mapstructure:"wait_selector"`
}

type RawTaskConfig struct {
	URLs     []string `mapstructure:"urls"`
	KeepBody bool     `mapstructure:"keep_body"`
}

type APITaskConfig struct {
	URL     string         `mapstructure:"url"`
	Method  string         `mapstructure:"method"`
	Format  string         `mapstructure:"format"`
	Params  map[string]any `mapstructure:"params"`
	Headers []string       `mapstructure:"headers"`
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"json":          "log.json",
	"proxy-host":    "proxy.host",
	"proxy-port":    "proxy.port",
	"proxy-user":    "proxy.username",
	"chrome-path":   "browser.executable_path",
	"headless":      "browser.headless",
	"pool-size":     "browser.pool_size",
	"max-retries":   "crawl.max_retries",
	"timeout":       "crawl.timeout",
	"batch-timeout": "crawl.batch_timeout",
	"submit-delay":  "crawl.submit_delay",
	"metrics-addr":  "metrics.addr",
}

// Load builds a Config by combining defaults, an optional config file,
// CRAWLFLOW_* environment variables and CLI flags, in increasing priority.
// Caller should pass the running *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cmd != nil {
		if f := cmd.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
			cfg.Log.Level = "debug"
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultJSONLog)

	v.SetDefault("proxy.host", "")
	v.SetDefault("proxy.port", 0)
	v.SetDefault("proxy.username", "")
	v.SetDefault("proxy.password", "")

	v.SetDefault("http.connect_timeout", DefaultConnectTimeout)
	v.SetDefault("http.socket_timeout", DefaultSocketTimeout)
	v.SetDefault("http.request_timeout", DefaultRequestTimeout)
	v.SetDefault("http.max_total_conns", DefaultMaxTotalConns)
	v.SetDefault("http.max_conns_per_route", DefaultMaxConnsPerRoute)
	v.SetDefault("http.insecure_skip_verify", false)

	v.SetDefault("worker.core", 0)
	v.SetDefault("worker.max", 0)
	v.SetDefault("worker.queue", DefaultWorkerQueue)
	v.SetDefault("worker.keep_alive", DefaultWorkerKeepAlive)

	v.SetDefault("browser.headless", DefaultBrowserHeadless)
	v.SetDefault("browser.executable_path", "")
	v.SetDefault("browser.pool_size", DefaultBrowserPoolSize)
	v.SetDefault("browser.user_agents", DefaultUserAgents)
	v.SetDefault("browser.navigation_timeout", DefaultNavigationTimeout)
	v.SetDefault("browser.max_scan", 0)
	v.SetDefault("browser.scan_backoff", DefaultScanBackoff)

	v.SetDefault("crawl.max_retries", DefaultMaxRetries)
	v.SetDefault("crawl.retry_delay", DefaultRetryDelay)
	v.SetDefault("crawl.timeout", DefaultFetchTimeout)
	v.SetDefault("crawl.batch_timeout", DefaultBatchTimeout)
	v.SetDefault("crawl.submit_delay", DefaultSubmitDelay)
	v.SetDefault("crawl.rate_limit_rps", DefaultRateLimitRPS)
	v.SetDefault("crawl.rate_limit_burst", DefaultRateLimitBurst)

	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.max_size_bytes", DefaultCacheMaxSizeBytes)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("tasks.links.urls", []string{})
	v.SetDefault("tasks.links.same_host", false)
	v.SetDefault("tasks.links.limit", DefaultLinksLimit)
	v.SetDefault("tasks.article.url", "")
	v.SetDefault("tasks.article.selector", DefaultArticleSelector)
	v.SetDefault("tasks.article.wait", DefaultArticleWait)
	v.SetDefault("tasks.article.wait_selector", "")
	v.SetDefault("tasks.raw.urls", []string{})
	v.SetDefault("tasks.raw.keep_body", false)
	v.SetDefault("tasks.api.url", "")
	v.SetDefault("tasks.api.method", DefaultAPIMethod)
	v.SetDefault("tasks.api.format", DefaultAPIFormat)
	v.SetDefault("tasks.api.params", map[string]any{})
	v.SetDefault("tasks.api.headers", []string{})
}
