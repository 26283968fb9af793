package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Donation outcomes recorded by MetricsService.RecordDonation.
const (
	DonationOutcomeConfirmed = "confirmed"
	DonationOutcomeRejected  = "rejected"
	DonationOutcomeFailed    = "failed"
)

// MetricsSnapshot is a compact view of process counters for the admin summary endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	FeedCacheHits            uint64    `json:"feed_cache_hits"`
	FeedCacheMisses          uint64    `json:"feed_cache_misses"`
	FeedCacheHitRatio        float64   `json:"feed_cache_hit_ratio"`
	PostsCreated             uint64    `json:"posts_created"`
	DonationsConfirmed       uint64    `json:"donations_confirmed"`
	DonationsRejected        uint64    `json:"donations_rejected"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and keeps counters for snapshots.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	postsCreated      prometheus.Counter
	acceptanceChanges *prometheus.CounterVec
	donations         *prometheus.CounterVec
	donatedKg         prometheus.Counter
	pickups           *prometheus.CounterVec

	cacheHitCount         uint64
	cacheMissCount        uint64
	requestCount          uint64
	requestDurationTotal  uint64
	postsCreatedCount     uint64
	donationsConfirmedCnt uint64
	donationsRejectedCnt  uint64
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
		Name:    "feed_cache_latency_seconds",
		Help:    "Latency for feed cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_cache_write_seconds",
		Help:    "Latency for feed cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_cache_hit_ratio",
		Help: "Ratio of feed cache hits to total lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_cache_hits_total",
		Help: "Total feed cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_cache_misses_total",
		Help: "Total feed cache misses",
	})

	postsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_created_total",
		Help: "Total posts published",
	})

	acceptanceChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "post_acceptance_transitions_total",
		Help: "Post acceptance transitions by resulting status",
	}, []string{"status"})

	donations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "donations_total",
		Help: "Donation confirmations by outcome",
	}, []string{"outcome"})

	donatedKg := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "donated_kilograms_total",
		Help: "Kilograms disbursed to institutions",
	})

	pickups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickup_confirmations_total",
		Help: "Pickup confirmations by resulting stock status",
	}, []string{"stock_status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		postsCreated, acceptanceChanges, donations, donatedKg, pickups, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		postsCreated:      postsCreated,
		acceptanceChanges: acceptanceChanges,
		donations:         donations,
		donatedKg:         donatedKg,
		pickups:           pickups,
	}
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
	m.cacheLatency.Observe(duration.Seconds())
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
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordPostCreated counts a published post.
func (m *MetricsService) RecordPostCreated() {
	if m == nil {
		return
	}
	m.postsCreated.Inc()
	atomic.AddUint64(&m.postsCreatedCount, 1)
}

// RecordAcceptance counts a post moving to status.
func (m *MetricsService) RecordAcceptance(status string) {
	if m == nil {
		return
	}
	m.acceptanceChanges.WithLabelValues(status).Inc()
}

// RecordPickup counts a pickup confirmation.
func (m *MetricsService) RecordPickup(stockStatus string) {
	if m == nil {
		return
	}
	m.pickups.WithLabelValues(stockStatus).Inc()
}

// RecordDonation counts a confirmation attempt. kg is only added for confirmed donations.
func (m *MetricsService) RecordDonation(outcome string, kg float64) {
	if m == nil {
		return
	}
	m.donations.WithLabelValues(outcome).Inc()
	switch outcome {
	case DonationOutcomeConfirmed:
		m.donatedKg.Add(kg)
		atomic.AddUint64(&m.donationsConfirmedCnt, 1)
	case DonationOutcomeRejected:
		atomic.AddUint64(&m.donationsRejectedCnt, 1)
	}
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if hits+misses > 0 {
		cacheRatio = float64(hits) / float64(hits+misses)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		FeedCacheHits:            hits,
		FeedCacheMisses:          misses,
		FeedCacheHitRatio:        cacheRatio,
		PostsCreated:             atomic.LoadUint64(&m.postsCreatedCount),
		DonationsConfirmed:       atomic.LoadUint64(&m.donationsConfirmedCnt),
		DonationsRejected:        atomic.LoadUint64(&m.donationsRejectedCnt),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
