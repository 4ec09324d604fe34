package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genstudio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genstudio_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	ProgressStreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genstudio_progress_streams_active",
			Help: "Number of open progress event streams",
		},
	)
)

// Generation queue metrics
var (
	QueueEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genstudio_queue_enqueued_total",
			Help: "Total number of generation jobs enqueued",
		},
	)

	QueueDuplicateStartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genstudio_queue_duplicate_starts_total",
			Help: "Start attempts ignored because the job was already in flight",
		},
	)

	GenerationOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_generation_outcomes_total",
			Help: "Settled generate calls by outcome",
		},
		[]string{"outcome"}, // "succeeded", "failed", "error"
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genstudio_generation_duration_seconds",
			Help:    "Wall time of generate calls",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120, 300},
		},
		[]string{"outcome"},
	)

	QueueJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genstudio_queue_jobs",
			Help: "Tracked generation jobs by status",
		},
		[]string{"status"}, // "queued", "generating", "failed"
	)
)

// Media preprocessing metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_conversions_total",
			Help: "Legacy format conversions by status",
		},
		[]string{"status"},
	)

	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genstudio_conversion_duration_seconds",
			Help:    "Time spent converting legacy images to PNG",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	ResizesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_resizes_total",
			Help: "Resize step results",
		},
		[]string{"result"}, // "skipped", "resized", "over_budget", "error"
	)

	ResizeEncodeAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genstudio_resize_encode_attempts",
			Help:    "JPEG encode attempts per resized image",
			Buckets: []float64{1, 2, 3, 4},
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_uploads_total",
			Help: "Reference image uploads by status",
		},
		[]string{"status"},
	)
)

// Storage metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genstudio_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genstudio_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	ModelsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genstudio_models_total",
			Help: "Number of models in the registry",
		},
	)

	StoredUploadsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genstudio_stored_uploads_total",
			Help: "Number of reference images in the upload store",
		},
	)

	StoredUploadBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genstudio_stored_upload_bytes",
			Help: "Total size of stored reference images",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genstudio_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_filesystem_operation_errors_total",
			Help: "Failed filesystem operations by volume",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_filesystem_retry_attempts_total",
			Help: "Retries after NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genstudio_filesystem_stale_errors_total",
			Help: "NFS stale file handle errors encountered",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genstudio_memory_usage_ratio",
			Help: "Heap allocation as a share of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genstudio_memory_paused",
			Help: "1 while image preprocessing is paused for memory pressure",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genstudio_memory_pauses_total",
			Help: "Times image preprocessing was paused for memory pressure",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genstudio_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
