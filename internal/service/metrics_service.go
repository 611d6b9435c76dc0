package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/unipass-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	walletOperations *prometheus.CounterVec
	walletDuration   *prometheus.HistogramVec
	notifications    *prometheus.CounterVec

	queuesMu sync.Mutex
	queues   map[string]func() int

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	walletCount          uint64
	walletFailureCount   uint64
	notificationCount    uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	walletOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_operations_total",
		Help: "Wallet provider calls by platform, operation and result",
	}, []string{"platform", "operation", "result"})

	walletDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallet_operation_duration_seconds",
		Help:    "Duration of wallet provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform", "operation"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pass_notifications_total",
		Help: "Pass notifications dispatched by platform and result",
	}, []string{"platform", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		walletOperations, walletDuration, notifications, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		walletOperations: walletOperations,
		walletDuration:   walletDuration,
		notifications:    notifications,
		queues:           make(map[string]func() int),
	}
}

// QueueGauge is implemented by job queues whose backlog is exported.
type QueueGauge interface {
	Name() string
	Depth() int
}

// RegisterQueue exports the backlog of q as queue_depth{queue=<name>}.
// Registering the same name twice keeps the first queue.
func (m *MetricsService) RegisterQueue(q QueueGauge) {
	if m == nil || q == nil {
		return
	}
	m.queuesMu.Lock()
	defer m.queuesMu.Unlock()
	if _, ok := m.queues[q.Name()]; ok {
		return
	}
	m.queues[q.Name()] = q.Depth
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "queue_depth",
		Help:        "Jobs buffered in an in-memory queue",
		ConstLabels: prometheus.Labels{"queue": q.Name()},
	}, func() float64 {
		return float64(q.Depth())
	}))
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveWalletOperation records one wallet provider call.
func (m *MetricsService) ObserveWalletOperation(platform models.WalletPlatform, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
		atomic.AddUint64(&m.walletFailureCount, 1)
	}
	m.walletOperations.WithLabelValues(string(platform), operation, result).Inc()
	m.walletDuration.WithLabelValues(string(platform), operation).Observe(duration.Seconds())
	atomic.AddUint64(&m.walletCount, 1)
}

// RecordNotification counts a dispatched pass notification.
func (m *MetricsService) RecordNotification(platform models.WalletPlatform, delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	} else {
		atomic.AddUint64(&m.notificationCount, 1)
	}
	m.notifications.WithLabelValues(string(platform), result).Inc()
}

// Snapshot returns aggregated metrics suitable for the admin dashboard.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		WalletOperations:         atomic.LoadUint64(&m.walletCount),
		WalletFailures:           atomic.LoadUint64(&m.walletFailureCount),
		NotificationsSent:        atomic.LoadUint64(&m.notificationCount),
		QueueDepths:              m.queueDepths(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func (m *MetricsService) queueDepths() map[string]int {
	m.queuesMu.Lock()
	defer m.queuesMu.Unlock()
	if len(m.queues) == 0 {
		return nil
	}
	depths := make(map[string]int, len(m.queues))
	for name, depth := range m.queues {
		depths[name] = depth()
	}
	return depths
}
