package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UploadRecord describes one stored reference image.
type UploadRecord struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordUpload implements upload.Recorder. Re-uploading identical content
// refreshes the name and keeps the original creation time.
func (d *Database) RecordUpload(ctx context.Context, key, name, mimeType string, size int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO uploads (key, name, mime_type, size) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			size = excluded.size
	`, key, name, mimeType, size)
	recordQuery("record_upload", start, err)
	return err
}

// GetUpload returns the record for key, or sql.ErrNoRows.
func (d *Database) GetUpload(ctx context.Context, key string) (*UploadRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	var rec UploadRecord
	var created int64
	err := d.db.QueryRowContext(ctx,
		"SELECT key, name, mime_type, size, created_at FROM uploads WHERE key = ?", key,
	).Scan(&rec.Key, &rec.Name, &rec.MimeType, &rec.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("get_upload", start, nil)
		return nil, sql.ErrNoRows
	}
	recordQuery("get_upload", start, err)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(created, 0)
	return &rec, nil
}
