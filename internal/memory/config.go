package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"genstudio/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for libvips, which allocates outside it.
const DefaultMemoryRatio = 0.75

// Limit describes how GOMEMLIMIT was configured.
type Limit struct {
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source string
	// ContainerLimit is the MEMORY_LIMIT value in bytes, 0 when unset.
	ContainerLimit int64
	// GoMemLimit is the effective soft limit in bytes, 0 when unset.
	GoMemLimit int64
	Ratio      float64
}

// Configured reports whether a soft limit is in effect.
func (l Limit) Configured() bool {
	return l.GoMemLimit > 0
}

// ApplyLimitFromEnv sets GOMEMLIMIT from the container limit. Call it before
// significant allocations.
//
//   - GOMEMLIMIT, when set, wins and is only reported.
//   - MEMORY_LIMIT is the container limit in bytes (Kubernetes Downward API).
//   - MEMORY_RATIO scales MEMORY_LIMIT, in (0, 1]; default 0.75.
func ApplyLimitFromEnv() Limit {
	if raw := os.Getenv("GOMEMLIMIT"); raw != "" {
		limit := Limit{Source: "GOMEMLIMIT"}
		if current := debug.SetMemoryLimit(-1); current > 0 && current < math.MaxInt64 {
			limit.GoMemLimit = current
		}
		logging.Info("GOMEMLIMIT set via environment: %s", raw)
		return limit
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving GOMEMLIMIT unconfigured")
		return Limit{Source: "none"}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return Limit{Source: "none"}
	}

	ratio := parseRatio(os.Getenv("MEMORY_RATIO"))
	goLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		FormatBytes(goLimit), ratio*100, FormatBytes(containerLimit))

	return Limit{
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// FormatBytes renders b with binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
