// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/crawlflow/internal/auth"
	"github.com/law-makers/crawlflow/internal/cache"
	"github.com/law-makers/crawlflow/internal/config"
	"github.com/law-makers/crawlflow/internal/dispatch"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/batch"
	"github.com/law-makers/crawlflow/internal/engine/dynamic"
	"github.com/law-makers/crawlflow/internal/executor"
	"github.com/law-makers/crawlflow/internal/fetch"
	"github.com/law-makers/crawlflow/internal/identity"
	"github.com/law-makers/crawlflow/internal/metrics"
	"github.com/law-makers/crawlflow/internal/ratelimit"
	"github.com/law-makers/crawlflow/internal/tasks"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Cache       cache.Cache
	RateLimiter *ratelimit.DomainLimiter
	Executor    *executor.Pool
	// FetchExecutor runs proxied requests. Units of a batch block on these
	// requests, so they must not share workers with Executor.
	FetchExecutor *executor.Pool
	Orchestrator  *batch.Orchestrator
	Proxy         *fetch.ProxyClient
	HTTP          *fetch.Client
	Registry      *dispatch.Registry
	Dispatcher    *dispatch.Dispatcher

	// Launcher starts the browsers of the driver pool. It may be replaced
	// before the first browser task runs.
	Launcher dynamic.Launcher

	pool      *dynamic.Pool
	poolMu    sync.Mutex
	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// Browsers are not started here: the driver pool is created on the first
// session request of a browser task.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	SetupLogging(cfg.Log, os.Stderr)
	metrics.Init()

	password, err := auth.NewStore().ResolveProxyPassword(cfg.Proxy.Username, cfg.Proxy.Password)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read proxy password from keyring")
	}
	proxyCfg := fetch.ProxyConfig{
		Host:     cfg.Proxy.Host,
		Port:     cfg.Proxy.Port,
		Username: cfg.Proxy.Username,
		Password: password,
	}

	var memCache cache.Cache
	if cfg.Cache.Enabled {
		memCache = cache.NewMemoryCache(cfg.Cache.MaxSizeBytes, time.Minute)
		log.Debug().
			Int64("max_size_bytes", cfg.Cache.MaxSizeBytes).
			Dur("ttl", cfg.Cache.TTL).
			Msg("Memory cache initialized")
	}

	rateLimiter := ratelimit.NewDomainLimiter(cfg.Crawl.RateLimitRPS, cfg.Crawl.RateLimitBurst)

	exec := executor.New(workerOptions(cfg.Worker))
	fetchExec := executor.New(workerOptions(cfg.Worker))

	httpOpts := fetch.HTTPOptions{
		ConnectTimeout:     cfg.HTTP.ConnectTimeout,
		SocketTimeout:      cfg.HTTP.SocketTimeout,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		MaxTotalConns:      cfg.HTTP.MaxTotalConns,
		MaxConnsPerRoute:   cfg.HTTP.MaxConnsPerRoute,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
	}

	proxy, err := fetch.NewProxyClient(fetch.ProxyOptions{
		Proxy:      proxyCfg,
		HTTP:       httpOpts,
		Timeout:    cfg.Crawl.Timeout,
		Identities: identity.NewRotator(cfg.Browser.UserAgents),
		Executor:   fetchExec,
		Limiter:    rateLimiter,
		Cache:      memCache,
		CacheTTL:   cfg.Cache.TTL,
	})
	if err != nil {
		_ = exec.Shutdown(ctx)
		_ = fetchExec.Shutdown(ctx)
		return nil, err
	}
	log.Debug().Str("proxy", proxyCfg.String()).Dur("timeout", cfg.Crawl.Timeout).Msg("Proxy client initialized")

	app := &Application{
		Config:        cfg,
		Cache:         memCache,
		RateLimiter:   rateLimiter,
		Executor:      exec,
		FetchExecutor: fetchExec,
		Orchestrator:  batch.New(exec, cfg.Crawl.SubmitDelay, cfg.Crawl.BatchTimeout),
		Proxy:         proxy,
		HTTP:          fetch.NewClient(httpOpts, rateLimiter),
		Registry:      dispatch.NewRegistry(),
		Launcher: dynamic.NewChromeLauncher(dynamic.LaunchOptions{
			Headless: cfg.Browser.Headless,
			ExecPath: cfg.Browser.ExecutablePath,
			Proxy:    browserProxy(cfg.Proxy),
		}),
		startTime: time.Now(),
	}

	err = tasks.Register(app.Registry, cfg.Tasks, tasks.Deps{
		Proxy:        app.Proxy,
		HTTP:         app.HTTP,
		Sessions:     app,
		Orchestrator: app.Orchestrator,
		Options: engine.Options{
			MaxRetries: cfg.Crawl.MaxRetries,
			RetryDelay: cfg.Crawl.RetryDelay,
		},
		NavigationTimeout: cfg.Browser.NavigationTimeout,
	})
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.Dispatcher = dispatch.New(app.Registry)

	log.Info().Int("tasks", len(app.Registry.Tasks())).Msg("Application initialized successfully")
	return app, nil
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(cfg config.LogConfig, w io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.JSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	log.Debug().
		Str("level", level.String()).
		Bool("json", cfg.JSON).
		Msg("Logger initialized")
}

func workerOptions(w config.WorkerConfig) executor.Options {
	return executor.Options{
		Core:      w.Core,
		Max:       w.Max,
		QueueSize: w.Queue,
		KeepAlive: w.KeepAlive,
	}
}

// browserProxy returns the proxy address handed to Chrome. Chrome takes no
// credentials on the command line.
func browserProxy(p config.ProxyConfig) string {
	if p.Host == "" {
		return ""
	}
	return "http://" + net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// EnsureBrowserPool lazily creates the driver pool if it has not already been
// initialized. Callers should provide a context with an appropriate timeout.
func (a *Application) EnsureBrowserPool(ctx context.Context) (*dynamic.Pool, error) {
	if a == nil {
		return nil, fmt.Errorf("application is nil")
	}

	a.poolMu.Lock()
	defer a.poolMu.Unlock()

	if a.pool != nil {
		return a.pool, nil
	}

	log.Debug().Msg("Initializing driver pool on demand")
	pool, err := dynamic.NewPool(ctx, a.Launcher, dynamic.PoolOptions{
		Size:        a.Config.Browser.PoolSize,
		Identities:  identity.NewRotator(a.Config.Browser.UserAgents),
		MaxScan:     a.Config.Browser.MaxScan,
		ScanBackoff: a.Config.Browser.ScanBackoff,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create driver pool on demand")
		return nil, err
	}

	a.pool = pool
	log.Info().Int("pool_size", pool.Size()).Msg("Driver pool initialized on demand")
	return pool, nil
}

// Acquire implements dynamic.SessionSource, starting the pool when needed.
func (a *Application) Acquire(ctx context.Context) (*dynamic.Session, error) {
	pool, err := a.EnsureBrowserPool(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Acquire(ctx)
}

// Release implements dynamic.SessionSource.
func (a *Application) Release(s *dynamic.Session) {
	a.poolMu.Lock()
	pool := a.pool
	a.poolMu.Unlock()
	if pool != nil {
		pool.Release(s)
	}
}

// Close gracefully shuts down the application and all its resources.
//
// It stops the driver pool, drains the executor until ctx expires, then
// releases the HTTP clients and the cache. Errors are logged and do not stop
// the remaining steps.
func (a *Application) Close(ctx context.Context) error {
	log.Debug().Msg("Shutting down application")

	a.poolMu.Lock()
	if a.pool != nil {
		if err := a.pool.Stop(); err != nil {
			log.Warn().Err(err).Msg("Error stopping driver pool")
		}
		a.pool = nil
	}
	a.poolMu.Unlock()

	var shutdownErr error
	if a.Executor != nil {
		if shutdownErr = a.Executor.Shutdown(ctx); shutdownErr != nil {
			log.Warn().Err(shutdownErr).Msg("Executor did not drain in time")
		}
	}
	if a.FetchExecutor != nil {
		if err := a.FetchExecutor.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Fetch executor did not drain in time")
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
	}

	if a.Proxy != nil {
		a.Proxy.Close()
	}
	if a.HTTP != nil {
		a.HTTP.Close()
	}
	if a.Cache != nil {
		a.Cache.Close()
	}

	log.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return shutdownErr
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
