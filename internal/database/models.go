package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"genstudio/internal/generation"
	"genstudio/internal/logging"
)

// ErrInvalidModel is returned by UpsertModel for an empty id or a negative
// average.
var ErrInvalidModel = errors.New("invalid model")

const modelsSeededKey = "models_seeded_at"

func avg(seconds float64) *float64 { return &seconds }

// DefaultModels is written to an empty registry on first start.
var DefaultModels = []generation.Model{
	{ID: "google/nano-banana", Name: "Nano Banana", AvgGenerationTime: avg(20)},
	{ID: "google/nano-banana-pro", Name: "Nano Banana Pro", AvgGenerationTime: avg(45)},
	{ID: "bytedance/seedream-4", Name: "Seedream 4", AvgGenerationTime: avg(40)},
	{ID: "black-forest-labs/flux-kontext-pro", Name: "FLUX Kontext Pro", AvgGenerationTime: avg(15)},
	{ID: "qwen/qwen-image-edit", Name: "Qwen Image Edit", AvgGenerationTime: nil},
}

// LookupModel returns the registry entry for id, or nil when the model is
// unknown.
func (d *Database) LookupModel(ctx context.Context, id string) (*generation.Model, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	var m generation.Model
	var avgTime sql.NullFloat64
	err := d.db.QueryRowContext(ctx,
		"SELECT id, name, avg_generation_time FROM models WHERE id = ?", id,
	).Scan(&m.ID, &m.Name, &avgTime)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("lookup_model", start, nil)
		return nil, nil
	}
	recordQuery("lookup_model", start, err)
	if err != nil {
		return nil, err
	}
	if avgTime.Valid {
		m.AvgGenerationTime = &avgTime.Float64
	}
	return &m, nil
}

// Lookup implements queue.Registry.
func (d *Database) Lookup(ctx context.Context, modelID string) (*generation.Model, error) {
	return d.LookupModel(ctx, modelID)
}

// UpsertModel creates or replaces a registry entry. A nil average clears the
// recorded value. An empty name keeps the existing one, or falls back to the
// id for new entries.
func (d *Database) UpsertModel(ctx context.Context, m generation.Model) error {
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidModel)
	}
	if m.AvgGenerationTime != nil && !generation.ValidAverage(*m.AvgGenerationTime) {
		return fmt.Errorf("%w: average generation time must be between 0 and %v seconds",
			ErrInvalidModel, generation.MaxAvgGenerationTime.Seconds())
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var avgTime sql.NullFloat64
	if m.AvgGenerationTime != nil {
		avgTime = sql.NullFloat64{Float64: *m.AvgGenerationTime, Valid: true}
	}

	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO models (id, name, avg_generation_time, updated_at)
		VALUES (?, COALESCE(NULLIF(?, ''), ?), ?, strftime('%s', 'now'))
		ON CONFLICT(id) DO UPDATE SET
			name = COALESCE(NULLIF(?, ''), models.name),
			avg_generation_time = excluded.avg_generation_time,
			updated_at = excluded.updated_at
	`, m.ID, m.Name, m.ID, avgTime, m.Name)
	recordQuery("upsert_model", start, err)
	if err != nil {
		return err
	}

	logging.Debug("Upserted model %s", m.ID)
	return nil
}

// ListModels returns all registry entries ordered by id.
func (d *Database) ListModels(ctx context.Context) ([]generation.Model, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	rows, err := d.db.QueryContext(ctx, "SELECT id, name, avg_generation_time FROM models ORDER BY id")
	if err != nil {
		recordQuery("list_models", start, err)
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	models := []generation.Model{}
	for rows.Next() {
		var m generation.Model
		var avgTime sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.Name, &avgTime); err != nil {
			recordQuery("list_models", start, err)
			return nil, err
		}
		if avgTime.Valid {
			v := avgTime.Float64
			m.AvgGenerationTime = &v
		}
		models = append(models, m)
	}
	err = rows.Err()
	recordQuery("list_models", start, err)
	return models, err
}

// seedModels writes DefaultModels once. Later edits, including deletions
// made directly in SQLite, are never overwritten.
func (d *Database) seedModels(ctx context.Context) error {
	if _, err := d.GetMetadata(ctx, modelsSeededKey); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	for _, m := range DefaultModels {
		if existing, err := d.LookupModel(ctx, m.ID); err != nil {
			return err
		} else if existing != nil {
			continue
		}
		if err := d.UpsertModel(ctx, m); err != nil {
			return fmt.Errorf("seed %s: %w", m.ID, err)
		}
	}

	logging.Info("Seeded model registry with %d models", len(DefaultModels))
	return d.SetMetadata(ctx, modelsSeededKey, time.Now().UTC().Format(time.RFC3339))
}
