package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"genstudio/internal/logging"
	"genstudio/internal/metrics"
	"genstudio/internal/progress"
	"genstudio/internal/queue"
	"genstudio/internal/streaming"
)

const heartbeatInterval = 15 * time.Second

// JobEvent is sent whenever the job list changes.
type JobEvent struct {
	Type   queue.EventType `json:"type"`
	Job    JobView         `json:"job"`
	Images []string        `json:"images,omitempty"`
}

// ProgressEvent carries one progress sample for a generating job.
type ProgressEvent struct {
	ID       string        `json:"id"`
	Progress progress.View `json:"progress"`
}

type progressUpdate struct {
	id   string
	view progress.View
}

// samplers runs one progress sampler per generating job.
type samplers struct {
	ctx     context.Context
	sampler *progress.Sampler
	out     chan progressUpdate
	active  func(id string) bool

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func (s *samplers) start(job queue.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.cancels[job.ID]; running {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancels[job.ID] = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sampler.Run(ctx, job.StartedAt, job.EstimatedDuration,
			func() bool { return s.active(job.ID) },
			func(v progress.View) {
				select {
				case s.out <- progressUpdate{id: job.ID, view: v}:
				case <-ctx.Done():
				}
			})
	}()
}

func (s *samplers) stop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
}

func (s *samplers) stopAll() {
	s.mu.Lock()
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// GenerationEvents streams the job list as server-sent events. The stream
// opens with a "snapshot" event, then sends a "job" event per change and
// "progress" events for generating jobs. A succeeded job gets one final
// completed progress event.
func (h *Handlers) GenerationEvents(w http.ResponseWriter, r *http.Request) {
	stream, err := streaming.NewEventStream(r.Context(), w, streaming.DefaultConfig())
	if err != nil {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logging.Warn("Failed to close event stream: %v", err)
		}
		sent, bytesWritten, duration := stream.Stats()
		logging.Debug("Event stream finished: %d events, %d bytes in %v", sent, bytesWritten, duration)
	}()

	events, unsubscribe := h.queue.Subscribe()
	defer unsubscribe()

	metrics.ProgressStreamsActive.Inc()
	defer metrics.ProgressStreamsActive.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sampler := progress.NewSampler(h.curve)
	sampler.Now = h.now
	if h.tick > 0 {
		sampler.Interval = h.tick
	}
	running := &samplers{
		ctx:     ctx,
		sampler: sampler,
		out:     make(chan progressUpdate, 16),
		active: func(id string) bool {
			job, ok := h.queue.Get(id)
			return ok && job.Status == queue.StatusGenerating
		},
		cancels: make(map[string]context.CancelFunc),
	}
	defer running.stopAll()

	jobs := h.queue.Snapshot()
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, h.jobView(job))
		if job.Status == queue.StatusGenerating {
			running.start(job)
		}
	}
	if err := stream.Send("snapshot", views); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		var err error
		select {
		case <-stream.Done():
			return

		case evt, ok := <-events:
			if !ok {
				return
			}
			err = h.sendJobEvent(stream, running, evt)

		case upd := <-running.out:
			err = stream.Send("progress", ProgressEvent{ID: upd.id, Progress: upd.view})

		case <-heartbeat.C:
			err = stream.Ping()
		}
		if err != nil {
			logging.Debug("Event stream closed: %v", err)
			return
		}
	}
}

func (h *Handlers) sendJobEvent(stream *streaming.EventStream, running *samplers, evt queue.Event) error {
	switch evt.Type {
	case queue.EventStarted:
		running.start(evt.Job)
	case queue.EventSucceeded, queue.EventFailed, queue.EventDismissed:
		running.stop(evt.Job.ID)
	}

	payload := JobEvent{Type: evt.Type, Job: h.jobView(evt.Job)}
	if evt.Response != nil {
		payload.Images = evt.Response.Images
	}
	if evt.Type != queue.EventStarted {
		payload.Job.Progress = nil
	}
	if err := stream.Send("job", payload); err != nil {
		return err
	}

	if evt.Type == queue.EventSucceeded {
		return stream.Send("progress", ProgressEvent{ID: evt.Job.ID, Progress: progress.Completed()})
	}
	return nil
}
