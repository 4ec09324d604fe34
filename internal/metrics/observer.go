package metrics

import (
	"genstudio/internal/filesystem"
	"genstudio/internal/media"
	"genstudio/internal/queue"
)

// queueObserver implements queue.Observer.
type queueObserver struct{}

// NewQueueObserver creates an observer that records generation queue metrics.
func NewQueueObserver() queue.Observer {
	return &queueObserver{}
}

func (o *queueObserver) ObserveEnqueue() {
	QueueEnqueuedTotal.Inc()
}

func (o *queueObserver) ObserveDuplicate() {
	QueueDuplicateStartsTotal.Inc()
}

func (o *queueObserver) ObserveOutcome(outcome string, durationSeconds float64) {
	GenerationOutcomesTotal.WithLabelValues(outcome).Inc()
	GenerationDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

func (o *queueObserver) ObserveCounts(queued, generating, failed int) {
	QueueJobs.WithLabelValues(string(queue.StatusQueued)).Set(float64(queued))
	QueueJobs.WithLabelValues(string(queue.StatusGenerating)).Set(float64(generating))
	QueueJobs.WithLabelValues(string(queue.StatusFailed)).Set(float64(failed))
}

// mediaObserver implements media.Observer.
type mediaObserver struct{}

// NewMediaObserver creates an observer that records preprocessing metrics.
func NewMediaObserver() media.Observer {
	return &mediaObserver{}
}

func (o *mediaObserver) ObserveConversion(err error, durationSeconds float64) {
	ConversionsTotal.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		ConversionDuration.Observe(durationSeconds)
	}
}

func (o *mediaObserver) ObserveResize(resized bool, attempts int, overBudget bool, err error) {
	switch {
	case err != nil:
		ResizesTotal.WithLabelValues("error").Inc()
		return
	case !resized:
		ResizesTotal.WithLabelValues("skipped").Inc()
		return
	case overBudget:
		ResizesTotal.WithLabelValues("over_budget").Inc()
	default:
		ResizesTotal.WithLabelValues("resized").Inc()
	}
	ResizeEncodeAttempts.Observe(float64(attempts))
}

func (o *mediaObserver) ObserveUpload(err error) {
	UploadsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// filesystemObserver implements filesystem.Observer.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records filesystem retry metrics.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (o *filesystemObserver) ObserveRetryAttempt(retryOp, volume string) {
	FilesystemRetryAttempts.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetrySuccess(retryOp, volume string) {
	FilesystemRetrySuccess.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetryFailure(retryOp, volume string) {
	FilesystemRetryFailures.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveStaleError(retryOp, volume string) {
	FilesystemStaleErrors.WithLabelValues(retryOp, volume).Inc()
}
