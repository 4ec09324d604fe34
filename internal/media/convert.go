package media

import (
	"context"
	"errors"
	"time"

	"genstudio/internal/logging"
)

// ConversionQuality is the fixed quality used when converting legacy images.
const ConversionQuality = 90

var errEmptyConversion = errors.New("converter produced no output")

// Converter decodes a legacy container and re-encodes it as PNG.
type Converter interface {
	ToPNG(ctx context.Context, data []byte, quality int) ([]byte, error)
}

// ConvertLegacyToStandard returns f unchanged unless it is a legacy format,
// in which case it returns a new PNG file named after the original.
func ConvertLegacyToStandard(ctx context.Context, conv Converter, f File) (File, error) {
	if !IsLegacyFormat(f) {
		return f, nil
	}

	start := time.Now()
	var (
		out []byte
		err error
	)
	if conv == nil {
		err = ErrVipsUnavailable
	} else {
		out, err = conv.ToPNG(ctx, f.Data, ConversionQuality)
		if err == nil && len(out) == 0 {
			err = errEmptyConversion
		}
	}
	if o := observe(); o != nil {
		o.ObserveConversion(err, time.Since(start).Seconds())
	}
	if err != nil {
		return File{}, &ConversionError{Name: f.Name, Err: err}
	}

	logging.Debug("Converted %s to PNG in %v", f.Name, time.Since(start))
	return File{
		Name:     withExt(f.Name, ".png"),
		MimeType: "image/png",
		Data:     out,
	}, nil
}
