package upload

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"genstudio/internal/filesystem"
	"genstudio/internal/logging"
	"genstudio/internal/mediatypes"

	"golang.org/x/crypto/blake2b"
)

// Blob is a finished image ready to be stored.
type Blob struct {
	Name     string
	MimeType string
	Data     []byte
}

// Result is what a successful upload returns.
type Result struct {
	ImageURL string `json:"imageUrl"`
	Key      string `json:"key"`
}

// Client is the upload boundary. Uploads are never retried by callers.
type Client interface {
	Upload(ctx context.Context, blob Blob) (*Result, error)
}

// Recorder indexes stored blobs. The database implements it.
type Recorder interface {
	RecordUpload(ctx context.Context, key, name, mimeType string, size int64) error
}

var (
	// ErrEmptyBlob is returned for zero-length uploads.
	ErrEmptyBlob = errors.New("empty upload")
	// ErrInvalidKey is returned when a key does not name a stored blob.
	ErrInvalidKey = errors.New("invalid upload key")
)

var keyPattern = regexp.MustCompile(`^[0-9a-f]{64}\.[a-z0-9]{2,5}$`)

// LocalStore writes blobs to a directory, content-addressed by their
// BLAKE2b-256 digest.
type LocalStore struct {
	dir      string
	baseURL  string
	recorder Recorder
}

// NewLocalStore creates the directory if needed. recorder may be nil.
func NewLocalStore(dir, baseURL string, recorder Recorder) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		recorder: recorder,
	}, nil
}

// Key returns the storage key for a blob.
func Key(blob Blob) string {
	sum := blake2b.Sum256(blob.Data)
	return hex.EncodeToString(sum[:]) + mediatypes.ExtensionForMime(blob.MimeType)
}

// Upload implements Client. Identical content maps to the same key, so a
// repeated upload rewrites nothing.
func (s *LocalStore) Upload(ctx context.Context, blob Blob) (*Result, error) {
	if len(blob.Data) == 0 {
		return nil, ErrEmptyBlob
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := Key(blob)
	path := filepath.Join(s.dir, key)

	if _, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig()); errors.Is(err, os.ErrNotExist) {
		if err := writeAtomic(s.dir, path, blob.Data); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", blob.Name, err)
		}
		logging.Debug("Stored upload %s (%s, %d bytes)", key, blob.Name, len(blob.Data))
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordUpload(ctx, key, blob.Name, mediatypes.NormalizeMime(blob.MimeType), int64(len(blob.Data))); err != nil {
			logging.Warn("failed to index upload %s: %v", key, err)
		}
	}

	return &Result{ImageURL: s.baseURL + "/uploads/" + key, Key: key}, nil
}

// Path resolves a key to its file, rejecting anything that is not a key.
func (s *LocalStore) Path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key), nil
}

// Open returns the stored blob for key. The caller closes the file.
func (s *LocalStore) Open(key string) (*os.File, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	return filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := filesystem.RenameWithRetry(tmpName, path, filesystem.DefaultRetryConfig()); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
