package generation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// AspectRatio is a ratio token accepted by the generation service.
type AspectRatio string

// Recognized aspect ratios.
const (
	AspectSquare     AspectRatio = "1:1"
	Aspect2x3        AspectRatio = "2:3"
	Aspect3x2        AspectRatio = "3:2"
	Aspect3x4        AspectRatio = "3:4"
	Aspect4x3        AspectRatio = "4:3"
	Aspect4x5        AspectRatio = "4:5"
	Aspect5x4        AspectRatio = "5:4"
	Aspect9x16       AspectRatio = "9:16"
	Aspect16x9       AspectRatio = "16:9"
	Aspect21x9       AspectRatio = "21:9"
	AspectMatchInput AspectRatio = "match_input_image"
)

// AspectRatios lists every accepted ratio in display order.
var AspectRatios = []AspectRatio{
	AspectMatchInput, AspectSquare, Aspect2x3, Aspect3x2, Aspect3x4, Aspect4x3,
	Aspect4x5, Aspect5x4, Aspect9x16, Aspect16x9, Aspect21x9,
}

// Resolution is the output resolution tier.
type Resolution string

const (
	Resolution1K Resolution = "1K"
	Resolution2K Resolution = "2K"
	Resolution4K Resolution = "4K"
)

// Resolutions lists the accepted resolution tiers.
var Resolutions = []Resolution{Resolution1K, Resolution2K, Resolution4K}

// OutputFormat is the encoding of generated images.
type OutputFormat string

const (
	FormatPNG OutputFormat = "png"
	FormatJPG OutputFormat = "jpg"
)

// OutputFormats lists the accepted output formats.
var OutputFormats = []OutputFormat{FormatPNG, FormatJPG}

const (
	// MaxOutputs caps NumOutputs per request.
	MaxOutputs = 4
	// MaxImageInputs caps the number of reference images per request.
	MaxImageInputs = 8
)

// ErrInvalidRequest is wrapped by every validation failure.
var ErrInvalidRequest = errors.New("invalid generation request")

// Options holds the per-request knobs shared by every model.
//
// Defaults applied by Normalize:
//   - AspectRatio: match_input_image when reference images are attached, 1:1 otherwise
//   - Resolution: 1K
//   - OutputFormat: png
type Options struct {
	AspectRatio  AspectRatio  `json:"aspectRatio,omitempty"`
	Resolution   Resolution   `json:"resolution,omitempty"`
	OutputFormat OutputFormat `json:"outputFormat,omitempty"`
}

// Normalize fills empty fields with their defaults. hasImages selects the
// aspect ratio default.
func (o Options) Normalize(hasImages bool) Options {
	o.AspectRatio = AspectRatio(strings.TrimSpace(string(o.AspectRatio)))
	o.Resolution = Resolution(strings.ToUpper(strings.TrimSpace(string(o.Resolution))))
	o.OutputFormat = OutputFormat(strings.ToLower(strings.TrimSpace(string(o.OutputFormat))))

	if o.AspectRatio == "" {
		if hasImages {
			o.AspectRatio = AspectMatchInput
		} else {
			o.AspectRatio = AspectSquare
		}
	}
	if o.Resolution == "" {
		o.Resolution = Resolution1K
	}
	if o.OutputFormat == "" {
		o.OutputFormat = FormatPNG
	}
	if o.OutputFormat == "jpeg" {
		o.OutputFormat = FormatJPG
	}
	return o
}

// Validate reports values outside the recognized sets.
func (o Options) Validate() error {
	if !contains(AspectRatios, o.AspectRatio) {
		return fmt.Errorf("%w: unsupported aspect ratio %q", ErrInvalidRequest, o.AspectRatio)
	}
	if !contains(Resolutions, o.Resolution) {
		return fmt.Errorf("%w: unsupported resolution %q", ErrInvalidRequest, o.Resolution)
	}
	if !contains(OutputFormats, o.OutputFormat) {
		return fmt.Errorf("%w: unsupported output format %q", ErrInvalidRequest, o.OutputFormat)
	}
	return nil
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Request is one generation submission. ID is supplied by the caller and is
// also used as the job id.
type Request struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model"`
	ImageInputs []string `json:"imageInputs,omitempty"`
	Options
	NumOutputs int    `json:"numOutputs,omitempty"`
	Seed       *int64 `json:"seed,omitempty"`
}

// Normalize trims the request and applies option defaults.
func (r Request) Normalize() Request {
	return r.NormalizePending(0)
}

// NormalizePending is Normalize for a request whose pendingImages reference
// files are still being prepared; they count toward the aspect default.
func (r Request) NormalizePending(pendingImages int) Request {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Model = strings.TrimSpace(r.Model)
	if r.NumOutputs <= 0 {
		r.NumOutputs = 1
	}
	r.Options = r.Options.Normalize(len(r.ImageInputs)+pendingImages > 0)
	return r
}

// Validate checks a normalized request.
func (r Request) Validate() error {
	return r.ValidatePending(0)
}

// ValidatePending checks a normalized request, counting pendingImages
// reference files that have not been uploaded yet.
func (r Request) ValidatePending(pendingImages int) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	if r.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if r.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidRequest)
	}
	if r.NumOutputs < 1 || r.NumOutputs > MaxOutputs {
		return fmt.Errorf("%w: numOutputs must be between 1 and %d", ErrInvalidRequest, MaxOutputs)
	}
	images := len(r.ImageInputs) + pendingImages
	if images > MaxImageInputs {
		return fmt.Errorf("%w: at most %d reference images", ErrInvalidRequest, MaxImageInputs)
	}
	if r.AspectRatio == AspectMatchInput && images == 0 {
		return fmt.Errorf("%w: %s requires a reference image", ErrInvalidRequest, AspectMatchInput)
	}
	return r.Options.Validate()
}

// Status is the outcome reported by the generation service.
type Status string

const (
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusProcessing Status = "processing"
	StatusCanceled   Status = "canceled"
)

// Response is what the generation service returns once a call settles.
type Response struct {
	ID     string   `json:"id"`
	Status Status   `json:"status"`
	Images []string `json:"images,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Generator is the remote generation boundary.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

const (
	// DefaultAvgGenerationTime is used when a model has no recorded average.
	DefaultAvgGenerationTime = 30 * time.Second
	// MaxAvgGenerationTime is the largest average a registry entry may hold.
	MaxAvgGenerationTime = 24 * time.Hour
)

// ValidAverage reports whether seconds can be stored as a model average.
func ValidAverage(seconds float64) bool {
	return !math.IsNaN(seconds) && seconds >= 0 && seconds <= MaxAvgGenerationTime.Seconds()
}

// Model is a registry entry.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// AvgGenerationTime in seconds; nil means unknown.
	AvgGenerationTime *float64 `json:"avgGenerationTime"`
}

// AverageDuration returns the model's average, or the default when unknown,
// non-positive or NaN. Averages above MaxAvgGenerationTime are clamped.
func (m *Model) AverageDuration() time.Duration {
	if m == nil || m.AvgGenerationTime == nil {
		return DefaultAvgGenerationTime
	}
	avg := *m.AvgGenerationTime
	if math.IsNaN(avg) || avg <= 0 {
		return DefaultAvgGenerationTime
	}
	if avg >= MaxAvgGenerationTime.Seconds() {
		return MaxAvgGenerationTime
	}
	return time.Duration(avg * float64(time.Second))
}

// EstimatedDuration is the average duration plus a fixed safety buffer.
func (m *Model) EstimatedDuration(buffer time.Duration) time.Duration {
	if buffer < 0 {
		buffer = 0
	}
	return m.AverageDuration() + buffer
}
