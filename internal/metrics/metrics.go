// Package metrics exposes Prometheus collectors for the fetch engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	poolInUse              prometheus.Gauge
	poolAcquireWaitSeconds prometheus.Histogram
	executorActiveWorkers  prometheus.Gauge
	executorQueueDepth     prometheus.Gauge
	fetchRetriesTotal      *prometheus.CounterVec
	batchUnitsTotal        *prometheus.CounterVec
	batchDurationSeconds   prometheus.Histogram
	proxyRequestsTotal     *prometheus.CounterVec
	proxyRequestSeconds    prometheus.Histogram
	rateLimitDelaySeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		poolInUse = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "crawlflow_pool_sessions_in_use",
			Help: "Driver sessions currently checked out.",
		})
		poolAcquireWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crawlflow_pool_acquire_wait_seconds",
			Help:    "Time spent waiting for a driver session.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		})
		executorActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "crawlflow_executor_active_workers",
			Help: "Worker goroutines currently alive in the executor.",
		})
		executorQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "crawlflow_executor_queue_depth",
			Help: "Tasks waiting in the executor queue.",
		})
		fetchRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crawlflow_fetch_retries_total",
			Help: "Retried fetch attempts, labeled by failure kind.",
		}, []string{"kind"})
		batchUnitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crawlflow_batch_units_total",
			Help: "Batch units collected, labeled by outcome status.",
		}, []string{"status"})
		batchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crawlflow_batch_duration_seconds",
			Help:    "Wall time of a batch from first submission to collection.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		})
		proxyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crawlflow_proxy_requests_total",
			Help: "Proxy fetches, labeled by result.",
		}, []string{"result"})
		proxyRequestSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crawlflow_proxy_request_seconds",
			Help:    "Latency of proxy fetches.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		})
		rateLimitDelaySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawlflow_rate_limit_delay_seconds",
			Help:    "Time spent waiting on per-host rate limits.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"host"})
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetPoolInUse records the number of checked out sessions.
func SetPoolInUse(n int) {
	Init()
	poolInUse.Set(float64(n))
}

// ObservePoolAcquire records how long an acquirer waited.
func ObservePoolAcquire(wait time.Duration) {
	Init()
	poolAcquireWaitSeconds.Observe(wait.Seconds())
}

// IncActiveWorkers increments the executor worker gauge.
func IncActiveWorkers() {
	Init()
	executorActiveWorkers.Inc()
}

// DecActiveWorkers decrements the executor worker gauge.
func DecActiveWorkers() {
	Init()
	executorActiveWorkers.Dec()
}

// SetQueueDepth records the executor queue length.
func SetQueueDepth(n int) {
	Init()
	executorQueueDepth.Set(float64(n))
}

// ObserveRetry counts a retried attempt of the given kind.
func ObserveRetry(kind string) {
	Init()
	fetchRetriesTotal.WithLabelValues(kind).Inc()
}

// ObserveUnit counts a collected batch unit.
func ObserveUnit(status string) {
	Init()
	batchUnitsTotal.WithLabelValues(status).Inc()
}

// ObserveBatch records a batch duration.
func ObserveBatch(d time.Duration) {
	Init()
	batchDurationSeconds.Observe(d.Seconds())
}

// ObserveProxyRequest counts a proxy fetch and its latency.
func ObserveProxyRequest(result string, d time.Duration) {
	Init()
	proxyRequestsTotal.WithLabelValues(result).Inc()
	proxyRequestSeconds.Observe(d.Seconds())
}

// ObserveRateLimitDelay records a rate limit wait for host.
func ObserveRateLimitDelay(host string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}
