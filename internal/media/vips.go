package media

import (
	"context"
	"fmt"
	"sync"

	"genstudio/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogHandler bridges libvips messages into our logger, filtered to the
// application level.
func vipsLogHandler(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	switch appLevel {
	case logging.LevelDebug:
		return vips.LogLevelInfo, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelInfo, logging.LevelWarn:
		return vips.LogLevelWarning, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	default:
		return vips.LogLevelCritical, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	}
}

// InitVips starts libvips once. concurrency bounds libvips worker threads.
func InitVips(concurrency int) error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	level, handler := vipsLogHandler(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s, concurrency: %d)", vips.Version, concurrency)
	return nil
}

// ShutdownVips releases libvips. It cannot be started again afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsConverter decodes legacy containers with libvips and re-encodes them
// as PNG.
type VipsConverter struct{}

// ToPNG implements Converter.
func (VipsConverter) ToPNG(ctx context.Context, data []byte, quality int) ([]byte, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		logging.Debug("vips auto-rotate failed, keeping original orientation: %v", err)
	}

	params := vips.NewPngExportParams()
	params.Quality = quality
	params.StripMetadata = true

	out, _, err := ref.ExportPng(params)
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	logging.Debug("vips converted %dx%d legacy image to PNG (%d -> %d bytes)",
		ref.Width(), ref.Height(), len(data), len(out))
	return out, nil
}
