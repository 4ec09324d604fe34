package media

// Observer records preprocessing metrics. The metrics package provides the
// implementation so this package does not import Prometheus.
type Observer interface {
	ObserveConversion(err error, durationSeconds float64)
	ObserveResize(resized bool, attempts int, overBudget bool, err error)
	ObserveUpload(err error)
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
