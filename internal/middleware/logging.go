package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// statusRecorder captures the status code and body size for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the access log.
type LoggingConfig struct {
	SkipPaths []string
	// StoredPrefixes are paths serving uploaded blobs, logged only when
	// LogStaticFiles is set.
	StoredPrefixes  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig returns the default configuration.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		StoredPrefixes:  []string{"/uploads/"},
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health": true,
	"/livez":  true,
	"/readyz": true,
}

const generationsPrefix = "/api/generations/"

type jobNoteKey struct{}

// jobNote carries the generation a request acted on to the access log.
type jobNote struct {
	id    string
	model string
}

// NoteGeneration records the generation id and model a handler acted on so
// the access log line names them. It is a no-op outside Logger.
func NoteGeneration(ctx context.Context, id, model string) {
	if note, ok := ctx.Value(jobNoteKey{}).(*jobNote); ok {
		note.id = id
		note.model = model
	}
}

// Logger returns access log middleware. Each line has the fields
//
//	date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken sc(Content-Encoding) cs(User-Agent) x-job x-model
//
// where x-job and x-model name the generation a request created or
// addressed, or "-".
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			note := &jobNote{}
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), jobNoteKey{}, note)))

			if note.id == "" {
				note.id = generationFromPath(r.URL.Path)
			}
			logRequest(r, rec, note, time.Since(start))
		})
	}
}

// generationFromPath returns the id segment of /api/generations/{id}.
func generationFromPath(path string) string {
	id, ok := strings.CutPrefix(path, generationsPrefix)
	if !ok || id == "" || id == "events" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func logRequest(r *http.Request, rec *statusRecorder, note *jobNote, took time.Duration) {
	now := time.Now().UTC()

	line := fmt.Sprintf("%s %s %s %s %s %s %d %d %d %s %s %s %s",
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		orDash(sanitizeLogField(getClientIP(r))),
		sanitizeLogField(r.Method),
		sanitizeLogField(r.URL.Path),
		orDash(sanitizeLogField(r.URL.RawQuery)),
		rec.status,
		rec.bytes,
		took.Milliseconds(),
		orDash(rec.Header().Get("Content-Encoding")),
		orDash(quoteField(sanitizeLogField(r.Header.Get("User-Agent")))),
		orDash(quoteField(sanitizeLogField(note.id))),
		orDash(quoteField(sanitizeLogField(note.model))),
	)

	//nolint:gosec // G706: every client-controlled field passes through sanitizeLogField.
	log.Println(line)
}

// sanitizeLogField strips control characters that could forge log lines or
// inject terminal escapes. Newlines become spaces; tabs are kept.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\x00' || r == '\x1b':
			continue
		case r < 0x20 && r != '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}

	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}

	if !config.LogStaticFiles {
		for _, prefix := range config.StoredPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}

	return false
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// quoteField wraps values containing blanks or quotes in double quotes,
// doubling inner quotes.
func quoteField(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
