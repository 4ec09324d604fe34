package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"genstudio/internal/database"
	"genstudio/internal/filesystem"
	"genstudio/internal/generation"
	"genstudio/internal/handlers"
	"genstudio/internal/logging"
	"genstudio/internal/media"
	"genstudio/internal/memory"
	"genstudio/internal/metrics"
	"genstudio/internal/middleware"
	"genstudio/internal/progress"
	"genstudio/internal/queue"
	"genstudio/internal/startup"
	"genstudio/internal/upload"
	"genstudio/internal/workers"

	"github.com/gorilla/mux"
)

const (
	metricsInterval = time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	startTime := time.Now()

	memory.ApplyLimitFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"uploads":  config.UploadDir,
		"database": config.DatabaseDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	queue.SetObserver(metrics.NewQueueObserver())
	media.SetObserver(metrics.NewMediaObserver())
	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	logging.Info("Database ready in %v", time.Since(dbStart))

	imageWorkers := workers.ForCPU(0)
	if err := media.InitVips(imageWorkers); err != nil {
		logging.Warn("libvips initialization failed: %v", err)
	}
	if media.IsVipsAvailable() {
		logging.Info("libvips ready (%d workers)", imageWorkers)
	} else {
		logging.Warn("libvips unavailable; HEIC/HEIF references will be rejected")
	}

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	store, err := upload.NewLocalStore(config.UploadDir, config.PublicBaseURL, db)
	if err != nil {
		logging.Fatal("Failed to initialize upload store: %v", err)
	}

	var converter media.Converter
	if media.IsVipsAvailable() {
		converter = media.VipsConverter{}
	}
	pipeline := media.NewPipeline(media.NewPreprocessor(), converter, store)

	curve, err := progress.CurveByName(config.ProgressCurve)
	if err != nil {
		logging.Fatal("Invalid progress curve: %v", err)
	}

	generator := generation.NewHTTPGenerator(config.GenerateURL, config.GenerateTimeout)
	q := queue.New(generator, db, queue.Config{Buffer: config.EstimateBuffer, Now: time.Now})
	q.OnSuccess(func(job queue.Job, resp *generation.Response) {
		logging.Info("Generation %s produced %d image(s): %s", job.ID, len(resp.Images), strings.Join(resp.Images, ", "))
	})
	logging.Info("Generation queue ready (curve %s, buffer %v)", curve.Name(), config.EstimateBuffer)

	collector := metrics.NewCollector(db, config.DatabasePath, metricsInterval)
	collector.Start()

	h := handlers.New(q, pipeline, db, store, curve, workers.NewLimiter(workers.ForMixed(0)))
	h.SetMemoryGate(memMonitor)

	router := setupRouter(h)
	startup.LogRoutes(router)

	handler := buildHandler(router, config)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0, // event streams stay open
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      setupMetricsRouter(h),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, q, collector, memMonitor)
		close(shutdownDone)
	}()

	logging.Info("Listening on :%s (started in %v)", config.Port, time.Since(startTime))
	if config.MetricsEnabled {
		logging.Info("Metrics on :%s/metrics", config.MetricsPort)
	}
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
	<-shutdownDone
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health checks
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Stored reference images
	r.HandleFunc("/uploads/{key}", h.ServeUpload).Methods("GET", "HEAD")

	api := r.PathPrefix("/api").Subrouter()

	// Generations; events is registered before {id} so it is not captured.
	api.HandleFunc("/generations", h.ListGenerations).Methods("GET")
	api.HandleFunc("/generations", h.CreateGeneration).Methods("POST")
	api.HandleFunc("/generations/events", h.GenerationEvents).Methods("GET")
	api.HandleFunc("/generations/{id}", h.GetGeneration).Methods("GET")
	api.HandleFunc("/generations/{id}", h.DismissGeneration).Methods("DELETE")

	// Reference images
	api.HandleFunc("/uploads", h.UploadImages).Methods("POST")

	// Model registry; ids contain a slash.
	api.HandleFunc("/models", h.ListModels).Methods("GET")
	api.HandleFunc("/models/{id:.+}", h.UpsertModel).Methods("PUT")

	return r
}

func setupMetricsRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	return r
}

// buildHandler wraps the router with metrics, logging and compression.
func buildHandler(router *mux.Router, config *startup.Config) http.Handler {
	var handler http.Handler = router

	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	return middleware.Compression(middleware.DefaultCompressionConfig())(handler)
}

func handleShutdown(srv, metricsSrv *http.Server, q *queue.Manager, collector *metrics.Collector, memMonitor *memory.Monitor) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("Received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("HTTP server shutdown error: %v", err)
	}
	logging.Debug("HTTP server stopped")

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Error("Metrics server shutdown error: %v", err)
		}
		logging.Debug("Metrics server stopped")
	}

	if err := q.Shutdown(ctx); err != nil {
		logging.Warn("Generation queue did not drain: %v", err)
	}
	logging.Debug("Generation queue stopped")

	collector.Stop()
	memMonitor.Stop()
	media.ShutdownVips()

	logging.Info("Shutdown complete")
}
