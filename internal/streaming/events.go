package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"genstudio/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write did not complete in time, or that
	// the stream outlived its maximum duration. The client is too slow.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context was canceled.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the stream was closed, or failed earlier.
	ErrStreamCanceled = errors.New("stream canceled")

	// ErrUnsupported is returned when the ResponseWriter cannot flush.
	ErrUnsupported = errors.New("streaming unsupported")
)

// Config configures an EventStream.
type Config struct {
	// WriteTimeout bounds a single event write, flush included.
	WriteTimeout time.Duration
	// MaxDuration is the absolute maximum stream lifetime (0 = unlimited).
	MaxDuration time.Duration
}

// DefaultConfig returns the settings used for browser event streams.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		MaxDuration:  0,
	}
}

// EventStream writes server-sent events to an HTTP response. Every write is
// flushed immediately and bounded by Config.WriteTimeout. After any failed
// write the stream is unusable.
type EventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config

	startTime time.Time

	mu           sync.Mutex
	closed       bool
	events       int
	bytesWritten int64
}

// NewEventStream sends the event-stream headers and returns a stream bound to
// ctx, normally the request context.
func NewEventStream(ctx context.Context, w http.ResponseWriter, config Config) (*EventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrUnsupported
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	streamCtx, cancel := context.WithCancel(ctx)
	return &EventStream{
		w:         w,
		flusher:   flusher,
		ctx:       streamCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
	}, nil
}

// Send writes one named event with v encoded as JSON in its data field.
func (s *EventStream) Send(event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.write([]byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))); err != nil {
		return err
	}

	s.mu.Lock()
	s.events++
	s.mu.Unlock()
	return nil
}

// Ping writes a comment line. Clients ignore it; proxies see traffic.
func (s *EventStream) Ping() error {
	return s.write([]byte(": ping\n\n"))
}

// Done is closed when the client goes away, a write fails, or Close is called.
func (s *EventStream) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *EventStream) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamCanceled
	}
	select {
	case <-s.ctx.Done():
		return s.contextError()
	default:
	}
	if s.config.MaxDuration > 0 && time.Since(s.startTime) > s.config.MaxDuration {
		s.fail()
		return ErrWriteTimeout
	}

	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	// A stalled client blocks inside Write or Flush. The goroutine outlives
	// the timeout in that case and ends when the connection is torn down.
	go func() {
		n, err := s.w.Write(p)
		if err == nil {
			s.flusher.Flush()
		}
		resultCh <- writeResult{n, err}
	}()

	timer := time.NewTimer(s.config.WriteTimeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		s.bytesWritten += int64(result.n)
		if result.err != nil {
			s.fail()
		}
		return result.err

	case <-timer.C:
		logging.Warn("Event stream write timed out after %v", s.config.WriteTimeout)
		s.fail()
		return ErrWriteTimeout

	case <-s.ctx.Done():
		err := s.contextError()
		s.fail()
		return err
	}
}

// fail marks the stream unusable. Callers hold mu.
func (s *EventStream) fail() {
	s.closed = true
	s.cancel()
}

// contextError returns an appropriate error based on context state
func (s *EventStream) contextError() error {
	if s.ctx.Err() == context.Canceled {
		return ErrClientGone
	}
	return ErrStreamCanceled
}

// Close marks the stream closed. It is safe to call more than once.
func (s *EventStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.fail()
	}
	return nil
}

// Stats returns the number of events sent, bytes written and stream age.
func (s *EventStream) Stats() (events int, bytesWritten int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events, s.bytesWritten, time.Since(s.startTime)
}
