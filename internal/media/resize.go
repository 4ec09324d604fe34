package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"genstudio/internal/logging"

	// Decoders for formats browsers commonly hand us
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// SizeBudget is the largest file uploaded without resizing (5 MiB).
	SizeBudget int64 = 5 * 1024 * 1024

	// MaxDimension caps the longer side of a resized image.
	MaxDimension = 2048

	// MaxDecodePixels bounds width x height of an image we are willing to
	// decode; 50 MP is about 200 MB as RGBA.
	MaxDecodePixels = 50_000_000

	// Encode qualities are percentages: 0.85 start, 0.10 step, 0.5 floor.
	InitialQuality = 85
	QualityStep    = 10
	QualityFloor   = 50
)

// EncodeFunc encodes img at quality (1-100) into a lossy format.
type EncodeFunc func(img image.Image, quality int) ([]byte, error)

// EncodeJPEG is the default EncodeFunc.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Preprocessor holds the resize policy. The zero value is not usable; use
// NewPreprocessor.
type Preprocessor struct {
	SizeBudget   int64
	MaxDimension int
	// MaxPixels rejects images whose header declares more pixels.
	MaxPixels int
	Encode    EncodeFunc
}

// NewPreprocessor returns a Preprocessor with the default budget, dimension
// cap and JPEG encoder.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		SizeBudget:   SizeBudget,
		MaxDimension: MaxDimension,
		MaxPixels:    MaxDecodePixels,
		Encode:       EncodeJPEG,
	}
}

// ResizeResult describes what ResizeIfNeeded did.
type ResizeResult struct {
	File         File
	Resized      bool
	OriginalSize int64
	NewSize      int64
	Width        int
	Height       int
	// Quality of the returned encode, 0 when not resized.
	Quality int
	// Attempts lists every quality tried, in order.
	Attempts []int
}

// OverBudget reports whether the returned file still exceeds the budget.
func (r *ResizeResult) OverBudget(budget int64) bool {
	return r.NewSize > budget
}

// NeedsResize reports whether f is larger than the size budget.
func (p *Preprocessor) NeedsResize(f File) bool {
	return f.Size() > p.SizeBudget
}

// TargetDimensions scales width x height so the longer side is at most
// maxDim, preserving aspect ratio. Images already within the cap are
// returned unchanged.
func TargetDimensions(width, height, maxDim int) (int, int) {
	if width <= maxDim && height <= maxDim {
		return width, height
	}
	if width >= height {
		h := int(math.Round(float64(height) * float64(maxDim) / float64(width)))
		return maxDim, max(h, 1)
	}
	w := int(math.Round(float64(width) * float64(maxDim) / float64(height)))
	return max(w, 1), maxDim
}

// qualitySchedule lists the qualities tried, highest first, never below the
// floor.
func qualitySchedule() []int {
	var qs []int
	for q := InitialQuality; q >= QualityFloor; q -= QualityStep {
		qs = append(qs, q)
	}
	return qs
}

// ResizeIfNeeded returns f untouched when it fits the budget. Otherwise it
// decodes, scales to MaxDimension and re-encodes, lowering quality until the
// output fits or the floor is reached. The last attempt is returned even if
// it is still over budget.
func (p *Preprocessor) ResizeIfNeeded(ctx context.Context, f File) (*ResizeResult, error) {
	res, err := p.resize(ctx, f)
	if o := observe(); o != nil {
		if err != nil {
			o.ObserveResize(false, 0, false, err)
		} else {
			o.ObserveResize(res.Resized, len(res.Attempts), res.OverBudget(p.SizeBudget), nil)
		}
	}
	return res, err
}

func (p *Preprocessor) resize(ctx context.Context, f File) (*ResizeResult, error) {
	original := f.Size()
	if !p.NeedsResize(f) {
		return &ResizeResult{File: f, OriginalSize: original, NewSize: original}, nil
	}

	if err := p.checkDimensions(f); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ResizeError{Name: f.Name, Stage: "decode", Err: err}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, &ResizeError{Name: f.Name, Stage: "decode", Err: errEmptyImage}
	}
	targetW, targetH := TargetDimensions(width, height, p.MaxDimension)

	var scaled image.Image = img
	if targetW != width || targetH != height {
		logging.Debug("Resizing %s from %dx%d to %dx%d", f.Name, width, height, targetW, targetH)
		scaled = imaging.Resize(img, targetW, targetH, imaging.Lanczos)
	}

	// JPEG has no alpha; flatten onto white so transparent areas do not turn black.
	canvas := imaging.New(targetW, targetH, color.White)
	canvas = imaging.Overlay(canvas, scaled, image.Pt(0, 0), 1.0)

	encode := p.Encode
	if encode == nil {
		encode = EncodeJPEG
	}

	res := &ResizeResult{
		Resized:      true,
		OriginalSize: original,
		Width:        targetW,
		Height:       targetH,
	}

	var out []byte
	for _, q := range qualitySchedule() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err = encode(canvas, q)
		if err != nil {
			return nil, &ResizeError{Name: f.Name, Stage: "encode", Err: err}
		}
		res.Attempts = append(res.Attempts, q)
		res.Quality = q
		logging.Debug("Encoded %s at quality %d: %d bytes (budget %d)", f.Name, q, len(out), p.SizeBudget)
		if int64(len(out)) <= p.SizeBudget {
			break
		}
	}

	if int64(len(out)) > p.SizeBudget {
		logging.Warn("%s is still %d bytes after resizing (budget %d), uploading anyway", f.Name, len(out), p.SizeBudget)
	}

	res.File = File{Name: withExt(f.Name, ".jpg"), MimeType: "image/jpeg", Data: out}
	res.NewSize = int64(len(out))
	return res, nil
}

// checkDimensions reads only the image header and rejects images too large
// to decode safely.
func (p *Preprocessor) checkDimensions(f File) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return &ResizeError{Name: f.Name, Stage: "decode", Err: err}
	}

	maxPixels := p.MaxPixels
	if maxPixels <= 0 {
		maxPixels = MaxDecodePixels
	}
	pixels := int64(cfg.Width) * int64(cfg.Height)
	logging.Debug("Image %s dimensions: %dx%d (%d pixels)", f.Name, cfg.Width, cfg.Height, pixels)
	if pixels > int64(maxPixels) {
		return &ResizeError{Name: f.Name, Stage: "decode", Err: fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)}
	}
	return nil
}
