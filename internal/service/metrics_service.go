package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/course-media-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	blobUploads     *prometheus.CounterVec
	blobDuration    *prometheus.HistogramVec
	orphanCleanups  *prometheus.CounterVec
	batchItems      *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	uploadCount          uint64
	uploadFailureCount   uint64
	itemSuccessCount     uint64
	itemFailureCount     uint64
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

	blobUploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_blob_uploads_total",
		Help: "Blob store uploads by media kind and outcome",
	}, []string{"media_kind", "outcome"})

	blobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "media_blob_upload_seconds",
		Help:    "Duration of single blob uploads",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"media_kind"})

	orphanCleanups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_orphan_cleanups_total",
		Help: "Best-effort deletes of blobs left by failed attach batches",
	}, []string{"outcome"})

	batchItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_batch_items_total",
		Help: "Enrollment batch items by operation and outcome",
	}, []string{"operation", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		blobUploads, blobDuration, orphanCleanups, batchItems, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		blobUploads:     blobUploads,
		blobDuration:    blobDuration,
		orphanCleanups:  orphanCleanups,
		batchItems:      batchItems,
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
	if total := hits + misses; total > 0 {
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

// ObserveBlobUpload records one blob store upload.
func (m *MetricsService) ObserveBlobUpload(kind models.MediaKind, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.blobUploads.WithLabelValues(string(kind), outcomeLabel(success)).Inc()
	m.blobDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
	if success {
		atomic.AddUint64(&m.uploadCount, 1)
	} else {
		atomic.AddUint64(&m.uploadFailureCount, 1)
	}
}

// RecordOrphanCleanup counts deletes of blobs left by a failed batch.
func (m *MetricsService) RecordOrphanCleanup(success bool) {
	if m == nil {
		return
	}
	m.orphanCleanups.WithLabelValues(outcomeLabel(success)).Inc()
}

// RecordBatchResult counts the items of an enrollment batch.
func (m *MetricsService) RecordBatchResult(operation string, result *models.BatchResult) {
	if m == nil || result == nil {
		return
	}
	m.batchItems.WithLabelValues(operation, "success").Add(float64(result.SuccessCount))
	m.batchItems.WithLabelValues(operation, "failure").Add(float64(result.FailCount))
	atomic.AddUint64(&m.itemSuccessCount, uint64(result.SuccessCount))
	atomic.AddUint64(&m.itemFailureCount, uint64(result.FailCount))
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
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
		BlobUploads:              atomic.LoadUint64(&m.uploadCount),
		BlobUploadFailures:       atomic.LoadUint64(&m.uploadFailureCount),
		EnrollmentItemsSucceeded: atomic.LoadUint64(&m.itemSuccessCount),
		EnrollmentItemsFailed:    atomic.LoadUint64(&m.itemFailureCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
