// Package progress estimates how far along a generating job is from elapsed
// time alone. The service never pushes progress, so the estimate is capped
// below 100 until the job is observed to have completed.
package progress

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DisplayCap is the highest percentage shown while a job is still running.
	DisplayCap = 95.0
	// CompletePercent is only shown after an explicit completion signal.
	CompletePercent = 100.0
	// TickInterval is how often a running job is re-sampled.
	TickInterval = 100 * time.Millisecond

	// asymptoticScale stretches the time constant so ~63% is reached at
	// 0.7 of the estimate.
	asymptoticScale = 0.7
)

// Curve maps elapsed time against an estimate to a percentage in [0, DisplayCap].
type Curve interface {
	Name() string
	Percent(elapsed, estimated time.Duration) float64
}

// Linear grows proportionally and flattens at the cap.
type Linear struct{}

// Name implements Curve.
func (Linear) Name() string { return "linear" }

// Percent implements Curve.
func (Linear) Percent(elapsed, estimated time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if estimated <= 0 {
		return DisplayCap
	}
	return math.Min(DisplayCap, 100*elapsed.Seconds()/estimated.Seconds())
}

// Asymptotic approaches 100 exponentially and is clamped at the cap.
type Asymptotic struct{}

// Name implements Curve.
func (Asymptotic) Name() string { return "asymptotic" }

// Percent implements Curve.
func (Asymptotic) Percent(elapsed, estimated time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if estimated <= 0 {
		return DisplayCap
	}
	tau := asymptoticScale * estimated.Seconds()
	return math.Min(DisplayCap, 100*(1-math.Exp(-elapsed.Seconds()/tau)))
}

// CurveByName resolves a configured curve name.
func CurveByName(name string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return Linear{}, nil
	case "", "asymptotic", "exponential":
		return Asymptotic{}, nil
	}
	return nil, fmt.Errorf("unknown progress curve %q", name)
}

// Remaining is the estimate minus elapsed, floored at zero.
func Remaining(elapsed, estimated time.Duration) time.Duration {
	if d := estimated - elapsed; d > 0 {
		return d
	}
	return 0
}

// FormatRemaining renders whole seconds under a minute ("42s") and
// minutes plus seconds above ("2m 5s").
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}

// View is what a renderer needs for one job at one instant.
type View struct {
	Percent       float64       `json:"percent"`
	Elapsed       time.Duration `json:"-"`
	Remaining     time.Duration `json:"-"`
	RemainingText string        `json:"remaining"`
	Completed     bool          `json:"completed"`
}

// Estimate builds a View from elapsed time.
func Estimate(c Curve, elapsed, estimated time.Duration) View {
	rem := Remaining(elapsed, estimated)
	return View{
		Percent:       c.Percent(elapsed, estimated),
		Elapsed:       elapsed,
		Remaining:     rem,
		RemainingText: FormatRemaining(rem),
	}
}

// Completed is the only View that reports 100%.
func Completed() View {
	return View{Percent: CompletePercent, RemainingText: FormatRemaining(0), Completed: true}
}
