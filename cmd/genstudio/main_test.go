package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"genstudio/internal/database"
	"genstudio/internal/handlers"
	"genstudio/internal/media"
	"genstudio/internal/progress"
	"genstudio/internal/queue"
	"genstudio/internal/startup"
	"genstudio/internal/upload"
	"genstudio/internal/workers"

	"github.com/gorilla/mux"
)

func newTestHandlers(t *testing.T) *handlers.Handlers {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := upload.NewLocalStore(filepath.Join(dir, "uploads"), "http://localhost", db)
	if err != nil {
		t.Fatal(err)
	}

	q := queue.New(nil, db, queue.DefaultConfig())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		q.Shutdown(ctx)
	})

	return handlers.New(q, media.NewPipeline(nil, nil, store), db, store, progress.Asymptotic{}, workers.NewLimiter(1))
}

func TestSetupRouterRoutes(t *testing.T) {
	router := setupRouter(newTestHandlers(t))

	routes, err := startup.GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes: %v", err)
	}

	got := make(map[string]bool)
	for _, r := range routes {
		got[r.Method+" "+r.Path] = true
	}

	want := []string{
		"GET /health",
		"GET /livez",
		"HEAD /livez",
		"GET /readyz",
		"GET /version",
		"GET /uploads/{key}",
		"GET /api/generations",
		"POST /api/generations",
		"GET /api/generations/events",
		"GET /api/generations/{id}",
		"DELETE /api/generations/{id}",
		"POST /api/uploads",
		"GET /api/models",
		"PUT /api/models/{id:.+}",
	}
	for _, w := range want {
		if !got[w] {
			keys := make([]string, 0, len(got))
			for k := range got {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			t.Errorf("missing route %q; have %v", w, keys)
		}
	}
}

func TestRouterDispatch(t *testing.T) {
	router := setupRouter(newTestHandlers(t))

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"livez", http.MethodGet, "/livez", http.StatusOK},
		{"livez head", http.MethodHead, "/livez", http.StatusOK},
		{"list generations", http.MethodGet, "/api/generations", http.StatusOK},
		{"unknown generation", http.MethodGet, "/api/generations/missing", http.StatusNotFound},
		{"dismiss", http.MethodDelete, "/api/generations/missing", http.StatusNoContent},
		{"models", http.MethodGet, "/api/models", http.StatusOK},
		{"bad upload key", http.MethodGet, "/uploads/nope", http.StatusBadRequest},
		{"wrong method", http.MethodPatch, "/api/models", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, http.NoBody))
			if w.Code != tt.status {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.status)
			}
		})
	}
}

func TestModelIDWithSlash(t *testing.T) {
	h := newTestHandlers(t)
	router := setupRouter(h)

	var matched mux.RouteMatch
	req := httptest.NewRequest(http.MethodPut, "/api/models/google/nano-banana", http.NoBody)
	if !router.Match(req, &matched) {
		t.Fatal("PUT /api/models/google/nano-banana did not match")
	}
	if id := matched.Vars["id"]; id != "google/nano-banana" {
		t.Errorf("id = %q, want google/nano-banana", id)
	}
}

func TestMetricsRouter(t *testing.T) {
	router := setupMetricsRouter(newTestHandlers(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("/metrics = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("metrics router served /api/models with %d", w.Code)
	}
}

func TestBuildHandler(t *testing.T) {
	h := newTestHandlers(t)
	handler := buildHandler(setupRouter(h), &startup.Config{MetricsEnabled: true})

	tests := []struct {
		name     string
		path     string
		status   int
		encoding string
	}{
		// The registry listing is below the compression threshold.
		{"small json", "/api/models", http.StatusOK, ""},
		{"livez", "/livez", http.StatusOK, ""},
		{"unknown", "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			req.Header.Set("Accept-Encoding", "gzip")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if got := w.Header().Get("Content-Encoding"); got != tt.encoding {
				t.Errorf("Content-Encoding = %q, want %q", got, tt.encoding)
			}
		})
	}
}
