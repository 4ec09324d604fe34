package handlers

import (
	"context"
	"os"
	"time"

	"genstudio/internal/generation"
	"genstudio/internal/media"
	"genstudio/internal/metrics"
	"genstudio/internal/progress"
	"genstudio/internal/queue"
	"genstudio/internal/workers"
)

const (
	// maxRequestBytes bounds a multipart submission including every image.
	maxRequestBytes = 200 << 20
	// multipartMemory is how much of a multipart body is held in memory
	// before spilling to temporary files.
	multipartMemory = 32 << 20
)

// ModelStore is the model registry as the API sees it.
type ModelStore interface {
	ListModels(ctx context.Context) ([]generation.Model, error)
	LookupModel(ctx context.Context, id string) (*generation.Model, error)
	UpsertModel(ctx context.Context, m generation.Model) error
	Ping(ctx context.Context) error
	GetStats() metrics.Stats
}

// BlobStore serves stored reference images back by key.
type BlobStore interface {
	Open(key string) (*os.File, error)
}

// MemoryGate holds back preprocessing under memory pressure.
type MemoryGate interface {
	Wait(ctx context.Context) error
}

type Handlers struct {
	queue     *queue.Manager
	pipeline  *media.Pipeline
	models    ModelStore
	blobs     BlobStore
	curve     progress.Curve
	limiter   *workers.Limiter
	memory    MemoryGate
	startTime time.Time
	now       func() time.Time
	// tick overrides the progress sampler interval in tests.
	tick time.Duration
}

// New wires the API. curve defaults to asymptotic and limiter to one slot
// per CPU worker.
func New(q *queue.Manager, pipeline *media.Pipeline, models ModelStore, blobs BlobStore, curve progress.Curve, limiter *workers.Limiter) *Handlers {
	if curve == nil {
		curve = progress.Asymptotic{}
	}
	if limiter == nil {
		limiter = workers.NewLimiter(workers.ForCPU(0))
	}
	return &Handlers{
		queue:     q,
		pipeline:  pipeline,
		models:    models,
		blobs:     blobs,
		curve:     curve,
		limiter:   limiter,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// SetMemoryGate makes preprocessing wait on gate before decoding images.
func (h *Handlers) SetMemoryGate(gate MemoryGate) {
	h.memory = gate
}
