package database

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"genstudio/internal/generation"
)

// setupTestDB creates a database in a temporary directory.
func setupTestDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return db
}

func seconds(v float64) *float64 { return &v }

func withAvg(m generation.Model, v float64) *generation.Model {
	m.AvgGenerationTime = seconds(v)
	return &m
}

func TestRecordQuery(t *testing.T) {
	t.Parallel()

	// Should not panic for either status.
	recordQuery("test_operation", time.Now(), nil)
	recordQuery("test_operation", time.Now(), errors.New("test error"))
}

func TestNewSeedsDefaultModels(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	models, err := db.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() failed: %v", err)
	}
	if len(models) != len(DefaultModels) {
		t.Fatalf("got %d models, want %d", len(models), len(DefaultModels))
	}
	for i := 1; i < len(models); i++ {
		if models[i-1].ID > models[i].ID {
			t.Errorf("models not sorted by id: %s before %s", models[i-1].ID, models[i].ID)
		}
	}

	if _, err := db.GetMetadata(ctx, modelsSeededKey); err != nil {
		t.Errorf("seed marker missing: %v", err)
	}
}

func TestSeedRunsOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	ctx := context.Background()

	db, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := db.UpsertModel(ctx, *withAvg(DefaultModels[0], 99)); err != nil {
		t.Fatalf("UpsertModel() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = New(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	m, err := db.LookupModel(ctx, DefaultModels[0].ID)
	if err != nil {
		t.Fatalf("LookupModel() failed: %v", err)
	}
	if m == nil || m.AvgGenerationTime == nil || *m.AvgGenerationTime != 99 {
		t.Errorf("reopen overwrote edited model: %+v", m)
	}
}

func TestLookupModel(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m, err := db.LookupModel(ctx, "google/nano-banana")
	if err != nil {
		t.Fatalf("LookupModel() failed: %v", err)
	}
	if m == nil || m.AvgGenerationTime == nil || *m.AvgGenerationTime != 20 {
		t.Errorf("nano-banana = %+v, want avg 20", m)
	}

	m, err = db.Lookup(ctx, "unknown/model")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if m != nil {
		t.Errorf("unknown model = %+v, want nil", m)
	}
}

func TestUpsertModel(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		id       string
		newName  string
		avg      *float64
		wantName string
		wantAvg  *float64
	}{
		{"new with name", "acme/one", "One", seconds(12), "One", seconds(12)},
		{"new without name", "acme/two", "", nil, "acme/two", nil},
		{"update keeps name", "acme/one", "", seconds(8.5), "One", seconds(8.5)},
		{"update clears average", "acme/one", "Renamed", nil, "Renamed", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultModels[0]
			m.ID, m.Name, m.AvgGenerationTime = tt.id, tt.newName, tt.avg
			if err := db.UpsertModel(ctx, m); err != nil {
				t.Fatalf("UpsertModel() failed: %v", err)
			}

			got, err := db.LookupModel(ctx, tt.id)
			if err != nil || got == nil {
				t.Fatalf("LookupModel() = %+v, %v", got, err)
			}
			if got.Name != tt.wantName {
				t.Errorf("name = %q, want %q", got.Name, tt.wantName)
			}
			switch {
			case tt.wantAvg == nil && got.AvgGenerationTime != nil:
				t.Errorf("avg = %v, want nil", *got.AvgGenerationTime)
			case tt.wantAvg != nil && (got.AvgGenerationTime == nil || *got.AvgGenerationTime != *tt.wantAvg):
				t.Errorf("avg = %v, want %v", got.AvgGenerationTime, *tt.wantAvg)
			}
		})
	}
}

func TestUpsertModelRejectsInvalid(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := DefaultModels[0]
	m.ID = "  "
	if err := db.UpsertModel(ctx, m); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("empty id: err = %v, want ErrInvalidModel", err)
	}

	for _, avg := range []float64{-1, 1e12, math.Inf(1), math.NaN()} {
		if err := db.UpsertModel(ctx, *withAvg(DefaultModels[0], avg)); !errors.Is(err, ErrInvalidModel) {
			t.Errorf("avg %v: err = %v, want ErrInvalidModel", avg, err)
		}
	}

	got, err := db.LookupModel(ctx, DefaultModels[0].ID)
	if err != nil || got == nil {
		t.Fatalf("LookupModel: %v, %v", got, err)
	}
	if *got.AvgGenerationTime != *DefaultModels[0].AvgGenerationTime {
		t.Errorf("rejected upserts changed the average to %v", *got.AvgGenerationTime)
	}
}

func TestRecordAndGetUpload(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	key := "ab12.jpg"
	if err := db.RecordUpload(ctx, key, "cat.jpg", "image/jpeg", 2048); err != nil {
		t.Fatalf("RecordUpload() failed: %v", err)
	}
	if err := db.RecordUpload(ctx, key, "cat-again.jpg", "image/jpeg", 2048); err != nil {
		t.Fatalf("RecordUpload() repeat failed: %v", err)
	}

	rec, err := db.GetUpload(ctx, key)
	if err != nil {
		t.Fatalf("GetUpload() failed: %v", err)
	}
	if rec.Name != "cat-again.jpg" || rec.Size != 2048 || rec.MimeType != "image/jpeg" {
		t.Errorf("record = %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if _, err := db.GetUpload(ctx, "missing.png"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing key: err = %v, want sql.ErrNoRows", err)
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.RecordUpload(ctx, "a.png", "a.png", "image/png", 100); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordUpload(ctx, "b.png", "b.png", "image/png", 250); err != nil {
		t.Fatal(err)
	}

	stats := db.GetStats()
	if stats.TotalModels != len(DefaultModels) {
		t.Errorf("TotalModels = %d, want %d", stats.TotalModels, len(DefaultModels))
	}
	if stats.TotalUploads != 2 || stats.TotalUploadBytes != 350 {
		t.Errorf("uploads = %d/%d bytes, want 2/350", stats.TotalUploads, stats.TotalUploadBytes)
	}
}

func TestMetadata(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetMetadata(ctx, "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing key: err = %v, want sql.ErrNoRows", err)
	}
	if err := db.SetMetadata(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	if v, err := db.GetMetadata(ctx, "k"); err != nil || v != "v2" {
		t.Errorf("GetMetadata = %q, %v; want v2", v, err)
	}
}

func TestPingAndPath(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
	if filepath.Base(db.Path()) != "test.db" {
		t.Errorf("Path() = %s", db.Path())
	}
}

func TestNewFailsOnMissingDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "x.db"))
	if err == nil {
		t.Error("New() succeeded for a missing directory")
	}
}
