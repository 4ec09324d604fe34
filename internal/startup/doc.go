// Package startup loads and validates the server configuration.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// Variables from a .env file (path in ENV_FILE, default ".env") are loaded
// first and never override the real environment.
//
//   - DATABASE_DIR: Path to database directory (default: /database)
//   - UPLOAD_DIR: Path where reference images are stored (default: /uploads)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - PUBLIC_BASE_URL: Base of the URLs handed to the generation service (default: http://localhost:$PORT)
//   - GENERATE_URL: Generation service endpoint; empty fails every job
//   - GENERATE_TIMEOUT: Per-call timeout as Go duration (default: 10m)
//   - ESTIMATE_BUFFER: Added to model averages, 0s-3s (default: 2s)
//   - PROGRESS_CURVE: linear or asymptotic (default: asymptotic)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log /uploads requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - VIPS_WORKERS: libvips worker override
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    logging.Fatal("Configuration error: %v", err)
//	}
//	startup.LogRoutes(router)
package startup
