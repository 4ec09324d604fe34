package metrics

import "genstudio/internal/queue"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	volumes := []string{"uploads", "database", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "open", "rename"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, outcome := range []string{queue.OutcomeSucceeded, queue.OutcomeFailed, queue.OutcomeError} {
		GenerationOutcomesTotal.WithLabelValues(outcome)
		GenerationDuration.WithLabelValues(outcome)
	}

	for _, status := range []queue.Status{queue.StatusQueued, queue.StatusGenerating, queue.StatusFailed} {
		QueueJobs.WithLabelValues(string(status))
	}

	for _, status := range []string{"success", "error"} {
		ConversionsTotal.WithLabelValues(status)
		UploadsTotal.WithLabelValues(status)
	}

	for _, result := range []string{"skipped", "resized", "over_budget", "error"} {
		ResizesTotal.WithLabelValues(result)
	}

	for _, op := range []string{"initialize_schema", "lookup_model", "upsert_model",
		"list_models", "record_upload", "get_upload", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
