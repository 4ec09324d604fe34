package streaming

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// stallingWriter blocks every Write until release is closed.
type stallingWriter struct {
	header  http.Header
	release chan struct{}
}

func (w *stallingWriter) Header() http.Header { return w.header }
func (w *stallingWriter) WriteHeader(int)     {}
func (w *stallingWriter) Flush()              {}
func (w *stallingWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

// noFlushWriter hides the recorder's Flush method.
type noFlushWriter struct {
	http.ResponseWriter
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.WriteTimeout != 10*time.Second {
		t.Errorf("Expected WriteTimeout=10s, got %v", config.WriteTimeout)
	}
	if config.MaxDuration != 0 {
		t.Errorf("Expected MaxDuration=0 (unlimited), got %v", config.MaxDuration)
	}
}

func TestNewEventStreamHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	stream, err := NewEventStream(context.Background(), rec, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEventStream: %v", err)
	}
	defer stream.Close()

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	tests := map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"X-Accel-Buffering": "no",
	}
	for header, want := range tests {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if !rec.Flushed {
		t.Error("headers should be flushed immediately")
	}
}

func TestNewEventStreamRequiresFlusher(t *testing.T) {
	_, err := NewEventStream(context.Background(), noFlushWriter{httptest.NewRecorder()}, DefaultConfig())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestSendFramesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	stream, err := NewEventStream(context.Background(), rec, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEventStream: %v", err)
	}
	defer stream.Close()

	if err := stream.Send("progress", map[string]int{"progress": 42}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := stream.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	want := "event: progress\ndata: {\"progress\":42}\n\n: ping\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}

	events, bytesWritten, duration := stream.Stats()
	if events != 1 {
		t.Errorf("events = %d, want 1 (pings are not events)", events)
	}
	if bytesWritten != int64(len(want)) {
		t.Errorf("bytesWritten = %d, want %d", bytesWritten, len(want))
	}
	if duration < 0 {
		t.Errorf("duration = %v", duration)
	}
}

func TestSendRejectsUnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	stream, _ := NewEventStream(context.Background(), rec, DefaultConfig())
	defer stream.Close()

	if err := stream.Send("bad", make(chan int)); err == nil {
		t.Fatal("expected encoding error")
	}
	if err := stream.Ping(); err != nil {
		t.Errorf("encoding failure should not break the stream: %v", err)
	}
}

func TestWriteTimeout(t *testing.T) {
	w := &stallingWriter{header: http.Header{}, release: make(chan struct{})}
	defer close(w.release)

	stream, err := NewEventStream(context.Background(), w, Config{WriteTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewEventStream: %v", err)
	}

	if err := stream.Ping(); !errors.Is(err, ErrWriteTimeout) {
		t.Fatalf("err = %v, want ErrWriteTimeout", err)
	}

	select {
	case <-stream.Done():
	case <-time.After(time.Second):
		t.Fatal("Done should be closed after a timeout")
	}

	if err := stream.Ping(); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("later write err = %v, want ErrStreamCanceled", err)
	}
}

func TestClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := NewEventStream(ctx, httptest.NewRecorder(), DefaultConfig())
	if err != nil {
		t.Fatalf("NewEventStream: %v", err)
	}
	defer stream.Close()

	cancel()
	<-stream.Done()

	if err := stream.Send("job", "x"); !errors.Is(err, ErrClientGone) {
		t.Errorf("err = %v, want ErrClientGone", err)
	}
}

func TestMaxDuration(t *testing.T) {
	stream, err := NewEventStream(context.Background(), httptest.NewRecorder(), Config{MaxDuration: time.Minute})
	if err != nil {
		t.Fatalf("NewEventStream: %v", err)
	}
	stream.startTime = time.Now().Add(-2 * time.Minute)

	if err := stream.Ping(); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("err = %v, want ErrWriteTimeout", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	stream, err := NewEventStream(context.Background(), httptest.NewRecorder(), DefaultConfig())
	if err != nil {
		t.Fatalf("NewEventStream: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := stream.Close(); err != nil {
			t.Errorf("Close #%d: %v", i+1, err)
		}
	}
	if err := stream.Send("job", "x"); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("err = %v, want ErrStreamCanceled", err)
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errs := []error{ErrWriteTimeout, ErrClientGone, ErrStreamCanceled, ErrUnsupported}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
		if strings.TrimSpace(a.Error()) == "" {
			t.Errorf("error %d has empty message", i)
		}
	}
}
