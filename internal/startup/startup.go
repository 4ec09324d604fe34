package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"genstudio/internal/logging"
	"genstudio/internal/progress"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo is one method and path template served by a router.
type RouteInfo struct {
	Method string
	Path   string
}

const (
	defaultGenerateTimeout = 10 * time.Minute
	defaultEstimateBuffer  = 2 * time.Second
	maxEstimateBuffer      = 3 * time.Second
)

// Config holds all application configuration
type Config struct {
	DatabaseDir     string
	UploadDir       string
	Port            string
	MetricsPort     string
	PublicBaseURL   string
	GenerateURL     string
	GenerateTimeout time.Duration
	EstimateBuffer  time.Duration
	ProgressCurve   string
	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool

	// Derived paths
	DatabasePath string
}

// LoadEnvFile loads variables from a .env file into the environment without
// overriding values that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		logging.Debug("Loaded environment from %s", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	logging.Info("genstudio %s (commit %s, %s, %s/%s, %d CPUs)",
		Version, Commit, GoVersion, runtime.GOOS, runtime.GOARCH, runtime.GOMAXPROCS(0))

	if err := LoadEnvFile(getEnv("ENV_FILE", ".env")); err != nil {
		logging.Warn("%v", err)
	}

	databaseDir := getEnv("DATABASE_DIR", "/database")
	uploadDir := getEnv("UPLOAD_DIR", "/uploads")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	publicBaseURL := getEnv("PUBLIC_BASE_URL", "http://localhost:"+port)
	generateURL := getEnv("GENERATE_URL", "")
	generateTimeout := getEnvDuration("GENERATE_TIMEOUT", defaultGenerateTimeout)
	estimateBuffer := getEnvDuration("ESTIMATE_BUFFER", defaultEstimateBuffer)
	progressCurve := getEnv("PROGRESS_CURVE", "asymptotic")
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("Generation: url=%s timeout=%v buffer=%v curve=%s",
		redactURL(generateURL), generateTimeout, estimateBuffer, progressCurve)
	logging.Info("HTTP: port=%s public=%s metrics=%v (port %s) log-uploads=%v log-health=%v",
		port, publicBaseURL, metricsEnabled, metricsPort, logStaticFiles, logHealthChecks)

	if estimateBuffer < 0 || estimateBuffer > maxEstimateBuffer {
		logging.Warn("ESTIMATE_BUFFER must be between 0s and %v, using default: %v", maxEstimateBuffer, defaultEstimateBuffer)
		estimateBuffer = defaultEstimateBuffer
	}

	if _, err := progress.CurveByName(progressCurve); err != nil {
		return nil, fmt.Errorf("invalid PROGRESS_CURVE: %w", err)
	}

	if err := validateBaseURL(publicBaseURL); err != nil {
		return nil, fmt.Errorf("invalid PUBLIC_BASE_URL: %w", err)
	}
	publicBaseURL = strings.TrimRight(publicBaseURL, "/")

	if generateURL == "" {
		logging.Warn("GENERATE_URL is not set; every generation will fail")
	} else if err := validateBaseURL(generateURL); err != nil {
		return nil, fmt.Errorf("invalid GENERATE_URL: %w", err)
	}

	databaseDir, err := filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	uploadDir, err = filepath.Abs(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory path: %w", err)
	}

	config := &Config{
		DatabaseDir:     databaseDir,
		UploadDir:       uploadDir,
		Port:            port,
		MetricsPort:     metricsPort,
		PublicBaseURL:   publicBaseURL,
		GenerateURL:     generateURL,
		GenerateTimeout: generateTimeout,
		EstimateBuffer:  estimateBuffer,
		ProgressCurve:   progressCurve,
		LogStaticFiles:  logStaticFiles,
		LogHealthChecks: logHealthChecks,
		MetricsEnabled:  metricsEnabled,
		DatabasePath:    filepath.Join(databaseDir, "genstudio.db"),
	}

	for _, dir := range []struct{ path, name string }{
		{databaseDir, "database"},
		{uploadDir, "upload"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("Using %s directory %s", dir.name, dir.path)
	}

	return config, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// redactURL hides credentials and query strings which may carry API tokens.
func redactURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid)"
	}
	if u.User != nil {
		u.User = url.User("redacted")
	}
	if u.RawQuery != "" {
		u.RawQuery = "****"
	}
	return u.String()
}

// GetRoutes lists the routes of router, one entry per method. Routes
// without a method restriction are reported as "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: path})
		}
		return nil
	})
	return routes, err
}

// LogRoutes lists the registered routes at debug level.
func LogRoutes(router *mux.Router) {
	if !logging.IsDebugEnabled() {
		return
	}
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	for _, route := range routes {
		logging.Debug("Route %-6s %s", route.Method, route.Path)
	}
}

func ensureDirectory(path, name string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("Creating %s directory %s", name, path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseEnv parses the value of key, falling back to def when it is unset
// or malformed.
func parseEnv[T any](key string, def T, parse func(string) (T, error)) T {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := parse(value)
	if err != nil {
		logging.Warn("Invalid value for %s: %q, using default: %v", key, value, def)
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	return parseEnv(key, def, strconv.ParseBool)
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	return parseEnv(key, def, time.ParseDuration)
}
