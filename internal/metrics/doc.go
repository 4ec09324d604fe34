// Package metrics provides Prometheus instrumentation for genstudio.
//
// All metrics are registered with the default registry through promauto and
// prefixed with "genstudio_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of requests being processed
//   - ProgressStreamsActive: Gauge of open progress event streams
//
// ## Generation Queue Metrics
//
//   - QueueEnqueuedTotal: Counter of enqueued jobs
//   - QueueDuplicateStartsTotal: Counter of start attempts rejected by the in-flight guard
//   - GenerationOutcomesTotal: Counter of settled calls by outcome
//   - GenerationDuration: Histogram of generate call wall time by outcome
//   - QueueJobs: Gauge of tracked jobs by status
//
// ## Preprocessing Metrics
//
//   - ConversionsTotal, ConversionDuration: legacy format conversion
//   - ResizesTotal, ResizeEncodeAttempts: resize step results and quality back-off
//   - UploadsTotal: reference image uploads
//
// ## Storage Metrics
//
//   - DBQueryTotal, DBQueryDuration: SQLite query counts and latency
//   - DBSizeBytes: database file sizes (main, WAL, SHM)
//   - ModelsTotal, StoredUploadsTotal, StoredUploadBytes: registry and upload store size
//
// # Observers
//
// The queue and media packages do not import this package. Instead they
// expose an Observer interface which is wired at startup:
//
//	queue.SetObserver(metrics.NewQueueObserver())
//	media.SetObserver(metrics.NewMediaObserver())
//
// # Collector
//
// [Collector] periodically reads a [StatsProvider] and the database file
// sizes and updates the corresponding gauges:
//
//	collector := metrics.NewCollector(db, dbPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Generation failure ratio:
//
//	sum(rate(genstudio_generation_outcomes_total{outcome!="succeeded"}[15m])) /
//	sum(rate(genstudio_generation_outcomes_total[15m]))
//
// P95 generation time:
//
//	histogram_quantile(0.95, sum(rate(genstudio_generation_duration_seconds_bucket[1h])) by (le))
//
// Images that could not be brought under the upload budget:
//
//	increase(genstudio_resizes_total{result="over_budget"}[1d])
package metrics
