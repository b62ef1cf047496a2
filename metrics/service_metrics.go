package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsPrefix is the prefix used for all metrics
const MetricsPrefix = "pricewatch_"

// Service constants
const (
	ServiceMarkets     = "markets"
	ServiceCoinDetail  = "coin-detail"
	ServiceMarketChart = "market-chart"
	ServiceSearch      = "search"
	ServiceBadge       = "badge"
	ServiceWatchlist   = "watchlist"
)

var (
	// Global upstream request counter (all services)
	// Cardinality: ~6 (success, error, rate_limited, timeout, locked, parse_error)
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "upstream_requests_total",
			Help: "Total number of HTTP requests to the price API across all services",
		},
		[]string{"status"},
	)

	// Service-specific upstream request counter
	// Cardinality: ~24 (4 services × 6 statuses)
	ServiceUpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "service_upstream_requests_total",
			Help: "Total number of HTTP requests to the price API per service",
		},
		[]string{"service", "status"},
	)

	// Request latency per service
	// Cardinality: ~4 (number of services)
	RequestLatencyHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: MetricsPrefix + "request_latency_seconds",
			Help: "Upstream request latency by service",
		},
		[]string{"service"},
	)

	// Data fetch cycle duration per service
	// Cardinality: ~2 (watchlist, badge)
	DataFetchCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: MetricsPrefix + "data_fetch_cycle_duration_seconds",
			Help: "Time taken to complete a full refresh cycle",
		},
		[]string{"service"},
	)

	// Cache lookups by result
	// Cardinality: ~4 (2 services × hit/miss)
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "cache_lookups_total",
			Help: "Number of cache lookups by service and result",
		},
		[]string{"service", "result"},
	)

	// Service cache size
	// Cardinality: ~2 (number of cached services)
	ServiceCacheSizeGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricsPrefix + "service_cache_size",
			Help: "Number of items in service cache",
		},
		[]string{"service"},
	)

	// Rate limit hits counter
	// Cardinality: ~4 (number of services)
	RateLimitCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "rate_limit_hits_total",
			Help: "Total number of rate limit hits per service",
		},
		[]string{"service"},
	)
)

// MetricsWriter provides a unified interface for recording service metrics
type MetricsWriter struct {
	serviceName string
}

// NewMetricsWriter creates a new MetricsWriter for the specified service
func NewMetricsWriter(serviceName string) *MetricsWriter {
	return &MetricsWriter{
		serviceName: serviceName,
	}
}

// GetServiceName returns the service name
func (mw *MetricsWriter) GetServiceName() string {
	return mw.serviceName
}

// RecordUpstreamRequest records an upstream request outcome
func (mw *MetricsWriter) RecordUpstreamRequest(status string) {
	UpstreamRequestsTotal.WithLabelValues(status).Inc()
	ServiceUpstreamRequestsTotal.WithLabelValues(mw.serviceName, status).Inc()
	if status == StatusRateLimited {
		RateLimitCounter.WithLabelValues(mw.serviceName).Inc()
	}
}

// RecordRequestLatency records how long an upstream request took
func (mw *MetricsWriter) RecordRequestLatency(duration time.Duration) {
	RequestLatencyHistogram.WithLabelValues(mw.serviceName).Observe(duration.Seconds())
}

// RecordDataFetchCycle records the duration of a refresh cycle
func (mw *MetricsWriter) RecordDataFetchCycle(duration time.Duration) {
	DataFetchCycleDuration.WithLabelValues(mw.serviceName).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss
func (mw *MetricsWriter) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(mw.serviceName, result).Inc()
}

// RecordCacheSize records the number of items in service cache
func (mw *MetricsWriter) RecordCacheSize(size int) {
	ServiceCacheSizeGauge.WithLabelValues(mw.serviceName).Set(float64(size))
}

// OnRequest implements the upstream status handler
func (mw *MetricsWriter) OnRequest(status string, duration time.Duration) {
	mw.RecordUpstreamRequest(status)
	if duration > 0 {
		mw.RecordRequestLatency(duration)
	}
}

// TrackDataFetchCycle starts timing a refresh cycle; call the returned func when it ends
func (mw *MetricsWriter) TrackDataFetchCycle() func() {
	start := time.Now()
	return func() {
		mw.RecordDataFetchCycle(time.Since(start))
	}
}
