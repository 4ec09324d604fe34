package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that fixes the worker count.
const OverrideEnv = "VIPS_WORKERS"

// Count returns the number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count. Use 0 for no limit.
//
// Can be overridden with the VIPS_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(OverrideEnv); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU), such as the
// libvips thread pool.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU), such as
// preprocessing batches that decode, encode and write to disk.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Limiter bounds how many callers may run a section at once.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a Limiter with n slots (at least 1).
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or done is closed. It reports whether
// a slot was taken.
func (l *Limiter) Acquire(done <-chan struct{}) bool {
	select {
	case l.slots <- struct{}{}:
		return true
	case <-done:
		return false
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.slots
}

// Size returns the number of slots.
func (l *Limiter) Size() int {
	return cap(l.slots)
}
