package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

type recordedOp struct {
	volume string
	op     string
	err    error
}

type fakeObserver struct {
	mu       sync.Mutex
	ops      []recordedOp
	attempts int
	success  int
	failure  int
	stale    int
}

func (f *fakeObserver) ObserveOperation(volume, operation string, _ float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, recordedOp{volume: volume, op: operation, err: err})
}

func (f *fakeObserver) ObserveRetryAttempt(_, _ string) { f.mu.Lock(); f.attempts++; f.mu.Unlock() }
func (f *fakeObserver) ObserveRetrySuccess(_, _ string) { f.mu.Lock(); f.success++; f.mu.Unlock() }
func (f *fakeObserver) ObserveRetryFailure(_, _ string) { f.mu.Lock(); f.failure++; f.mu.Unlock() }
func (f *fakeObserver) ObserveStaleError(_, _ string)   { f.mu.Lock(); f.stale++; f.mu.Unlock() }

func withObserver(t *testing.T) *fakeObserver {
	t.Helper()
	o := &fakeObserver{}
	prev := defaultObserver
	SetObserver(o)
	t.Cleanup(func() { SetObserver(prev) })
	return o
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	c := DefaultRetryConfig()
	if c.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", c.MaxRetries)
	}
	if c.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", c.InitialBackoff)
	}
	if c.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", c.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"ESTALE", syscall.ESTALE, true},
		{"wrapped ESTALE", &fs.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, true},
		{"fmt wrapped", fmt.Errorf("open: %w", syscall.ESTALE), true},
		{"ENOENT", syscall.ENOENT, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"uploads":  "/data/uploads",
		"database": "/data/db",
		"data":     "/data",
	})

	tests := []struct {
		path string
		want string
	}{
		{"/data/uploads/abc.jpg", "uploads"},
		{"/data/uploads", "uploads"},
		{"/data/db/genstudio.db", "database"},
		{"/data/other/file", "data"},
		{"/data/uploads-old/file", "data"},
		{"/elsewhere/file", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Nil(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/anything"); got != "unknown" {
		t.Errorf("nil resolver = %q, want unknown", got)
	}
}

func TestRetryConfig_ResolveVolume(t *testing.T) {
	prev := defaultResolver
	t.Cleanup(func() { SetDefaultVolumeResolver(prev) })

	SetDefaultVolumeResolver(NewVolumeResolver(map[string]string{"uploads": "/srv/uploads"}))

	c := RetryConfig{}
	if got := c.resolveVolume("/srv/uploads/x"); got != "uploads" {
		t.Errorf("default resolver: got %q, want uploads", got)
	}

	c.VolumeResolver = NewVolumeResolver(map[string]string{"database": "/srv/uploads"})
	if got := c.resolveVolume("/srv/uploads/x"); got != "database" {
		t.Errorf("config resolver: got %q, want database", got)
	}
}

func TestStatWithRetry(t *testing.T) {
	o := withObserver(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, fastRetry())
	if err != nil {
		t.Fatalf("StatWithRetry: %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("Size = %d, want 4", info.Size())
	}

	_, err = StatWithRetry(filepath.Join(dir, "missing"), fastRetry())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}

	if len(o.ops) != 2 || o.ops[0].op != "stat" || o.ops[1].err == nil {
		t.Errorf("recorded ops = %+v", o.ops)
	}
	if o.attempts != 0 || o.stale != 0 {
		t.Errorf("non-stale errors must not retry: attempts=%d stale=%d", o.attempts, o.stale)
	}
}

func TestOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.png")
	if err := os.WriteFile(path, []byte("png!"), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := OpenWithRetry(path, fastRetry())
	if err != nil {
		t.Fatalf("OpenWithRetry: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 4)
	if _, err := f.Read(buf); err != nil || string(buf) != "png!" {
		t.Errorf("read %q, %v", buf, err)
	}

	if _, err := OpenWithRetry(filepath.Join(dir, "missing"), fastRetry()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}

func TestRenameWithRetry(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tmp")
	dst := filepath.Join(dir, "final")
	if err := os.WriteFile(src, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := RenameWithRetry(src, dst, fastRetry()); err != nil {
		t.Fatalf("RenameWithRetry: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("destination missing: %v", err)
	}
}

func TestWithRetry_RecoversFromStale(t *testing.T) {
	o := withObserver(t)

	calls := 0
	err := withRetry("stat", "/x", fastRetry(), func() error {
		calls++
		if calls < 3 {
			return syscall.ESTALE
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if o.stale != 2 || o.attempts != 2 || o.success != 1 || o.failure != 0 {
		t.Errorf("observer = stale %d attempts %d success %d failure %d",
			o.stale, o.attempts, o.success, o.failure)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	o := withObserver(t)

	calls := 0
	err := withRetry("open", "/x", fastRetry(), func() error {
		calls++
		return syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("err = %v, want ESTALE", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (1 + 3 retries)", calls)
	}
	if o.failure != 1 || o.attempts != 3 {
		t.Errorf("observer = attempts %d failure %d", o.attempts, o.failure)
	}
	if len(o.ops) != 1 || o.ops[0].err == nil {
		t.Errorf("recorded ops = %+v", o.ops)
	}
}
