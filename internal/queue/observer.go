package queue

// Observer records queue metrics. Implemented by the metrics package.
type Observer interface {
	ObserveEnqueue()
	ObserveDuplicate()
	ObserveOutcome(outcome string, durationSeconds float64)
	ObserveCounts(queued, generating, failed int)
}

// defaultObserver is set at startup; nil skips recording.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
