// Package metrics provides Prometheus metrics for the storage core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Storage backend operations
	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papaya_storage_operations_total",
			Help: "Total number of storage backend operations",
		},
		[]string{"backend", "operation", "status"},
	)

	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "papaya_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// Transfer volume
	bytesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papaya_bytes_uploaded_total",
			Help: "Total bytes written to storage backends",
		},
		[]string{"backend"},
	)

	bytesDownloaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papaya_bytes_downloaded_total",
			Help: "Total bytes read from storage backends",
		},
		[]string{"backend"},
	)

	// Move protocol
	movesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papaya_moves_total",
			Help: "Total number of file relocations by outcome",
		},
		[]string{"outcome"},
	)

	moveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "papaya_move_duration_seconds",
			Help:    "End-to-end file relocation duration in seconds",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		},
	)

	verificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papaya_verification_failures_total",
			Help: "Total destination verification failures by kind",
		},
		[]string{"kind"},
	)

	// Library crawls
	crawlFilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "papaya_crawl_files_total",
			Help: "Total files discovered by library crawls",
		},
	)

	crawlDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "papaya_crawl_duration_seconds",
			Help:    "Library crawl duration in seconds",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		},
	)

	intentRecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papaya_intent_recoveries_total",
			Help: "Crash-recovery branches taken when resuming a stored move intent",
		},
		[]string{"branch"},
	)
)

// RecordStorageOp records one backend operation.
func RecordStorageOp(backend, operation string, duration time.Duration, success bool) {
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	storageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

// AddBytesUploaded adds to the upload volume counter.
func AddBytesUploaded(backend string, n int64) {
	if n > 0 {
		bytesUploaded.WithLabelValues(backend).Add(float64(n))
	}
}

// AddBytesDownloaded adds to the download volume counter.
func AddBytesDownloaded(backend string, n int64) {
	if n > 0 {
		bytesDownloaded.WithLabelValues(backend).Add(float64(n))
	}
}

// RecordMove records a completed relocation attempt.
// Outcome is one of "moved", "noop", "aborted".
func RecordMove(outcome string, duration time.Duration) {
	movesTotal.WithLabelValues(outcome).Inc()
	moveDuration.Observe(duration.Seconds())
}

// RecordVerificationFailure records a size or checksum mismatch.
func RecordVerificationFailure(kind string) {
	verificationFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordCrawl records a finished library crawl.
func RecordCrawl(files int, duration time.Duration) {
	crawlFilesTotal.Add(float64(files))
	crawlDuration.Observe(duration.Seconds())
}

// RecordIntentRecovery records which crash-recovery branch was taken.
// Branch is one of "resume_old", "commit_new", "lost", "both_present".
func RecordIntentRecovery(branch string) {
	intentRecoveriesTotal.WithLabelValues(branch).Inc()
}

// Handler returns the Prometheus metrics HTTP handler for the owning
// process to mount.
func Handler() http.Handler {
	return promhttp.Handler()
}
