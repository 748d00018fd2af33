package models

import "time"

// SystemMetrics is a point-in-time summary of the instrumentation counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BlobUploads              uint64    `json:"blob_uploads"`
	BlobUploadFailures       uint64    `json:"blob_upload_failures"`
	EnrollmentItemsSucceeded uint64    `json:"enrollment_items_succeeded"`
	EnrollmentItemsFailed    uint64    `json:"enrollment_items_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
