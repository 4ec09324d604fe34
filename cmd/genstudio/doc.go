// Package main is the GenStudio server.
//
// GenStudio accepts image generation requests, preprocesses attached
// reference images, and tracks every request in an in-memory queue while a
// remote generation service works on it. Clients follow progress through a
// server-sent event stream; progress is estimated from elapsed time against
// each model's recorded average.
//
// # Application Lifecycle
//
//  1. Memory: sets GOMEMLIMIT from MEMORY_LIMIT when running in a container
//  2. Configuration: reads the environment (and .env), validates directories
//  3. Database: opens the SQLite model registry and upload index
//  4. Components:
//     - libvips for HEIC/HEIF conversion
//     - Memory monitor gating image preprocessing
//     - Upload store under UPLOAD_DIR
//     - Generation queue backed by the HTTP generator
//     - Metrics collector
//  5. HTTP: API server plus a separate metrics server
//  6. Shutdown: SIGINT/SIGTERM stops both servers, cancels in-flight
//     generations, then releases libvips
//
// # Endpoints
//
//	POST   /api/generations          queue a generation (JSON or multipart)
//	GET    /api/generations          list jobs with progress
//	GET    /api/generations/events   server-sent job and progress events
//	GET    /api/generations/{id}     one job
//	DELETE /api/generations/{id}     dismiss a job
//	POST   /api/uploads              preprocess and store reference images
//	GET    /api/models               model registry
//	PUT    /api/models/{id}          create or update a model
//	GET    /uploads/{key}            stored reference image
//	GET    /health, /livez, /readyz, /version
//
// Metrics are served on METRICS_PORT at /metrics.
package main
