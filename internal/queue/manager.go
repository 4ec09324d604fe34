package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"genstudio/internal/generation"
	"genstudio/internal/logging"
)

// Outcome labels passed to Observer.ObserveOutcome.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeError     = "error"
)

const subscriberBuffer = 64

var (
	// ErrDuplicateID is returned when a record with the same id is still tracked.
	ErrDuplicateID = errors.New("job id already tracked")
	// ErrClosed is returned by Enqueue after Shutdown.
	ErrClosed = errors.New("queue is shut down")
	// ErrNotReserved is returned when a ticket no longer names a record
	// waiting to be dispatched.
	ErrNotReserved = errors.New("job is not awaiting dispatch")
)

// Registry resolves model descriptors. Unknown models may return (nil, nil).
type Registry interface {
	Lookup(ctx context.Context, modelID string) (*generation.Model, error)
}

// Config holds Manager settings.
type Config struct {
	// Buffer is added to every model average (0-3s).
	Buffer time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{Buffer: 2 * time.Second, Now: time.Now}
}

// SuccessFunc is invoked after a job succeeds and its record is removed.
type SuccessFunc func(job Job, resp *generation.Response)

// Manager owns the job list and the in-flight guard.
type Manager struct {
	generator generation.Generator
	registry  Registry
	buffer    time.Duration
	now       func() time.Time

	mu       sync.Mutex
	jobs     map[string]*Job
	order    []string // most recent first
	inFlight map[string]struct{}
	closed   bool
	seq      uint64

	onSuccess []SuccessFunc

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Manager. registry may be nil, in which case every model
// uses the default average.
func New(gen generation.Generator, registry Registry, cfg Config) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		generator: gen,
		registry:  registry,
		buffer:    cfg.Buffer,
		now:       cfg.Now,
		jobs:      make(map[string]*Job),
		inFlight:  make(map[string]struct{}),
		subs:      make(map[int]chan Event),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// OnSuccess registers a callback run after each successful job. Register
// callbacks before enqueuing.
func (m *Manager) OnSuccess(fn SuccessFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSuccess = append(m.onSuccess, fn)
}

// Enqueue records req as a queued job at the head of the list and starts
// processing it in the background. req.ID is the job id and must be unique
// among tracked records and in-flight calls.
func (m *Manager) Enqueue(req generation.Request) (string, error) {
	ticket, err := m.Reserve(req, 0)
	if err != nil {
		return "", err
	}
	if err := m.Dispatch(ticket, req); err != nil {
		return "", err
	}
	return ticket.ID, nil
}

// Reserve records req as a queued job without starting it, for callers
// that still have pendingImages reference files to prepare. The record is
// visible immediately; Dispatch starts it and Fail ends it.
//
// An id is rejected while a record with that id is tracked, and also while
// a dismissed record's generate call is still running.
func (m *Manager) Reserve(req generation.Request, pendingImages int) (Ticket, error) {
	req = req.NormalizePending(pendingImages)
	if err := req.ValidatePending(pendingImages); err != nil {
		return Ticket{}, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Ticket{}, ErrClosed
	}
	if _, exists := m.jobs[req.ID]; exists {
		m.mu.Unlock()
		return Ticket{}, fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
	}
	if _, busy := m.inFlight[req.ID]; busy {
		m.mu.Unlock()
		return Ticket{}, fmt.Errorf("%w: %s is still generating", ErrDuplicateID, req.ID)
	}
	m.seq++
	job := &Job{
		ID:        req.ID,
		Request:   req,
		Status:    StatusQueued,
		CreatedAt: m.now(),
		seq:       m.seq,
	}
	m.jobs[job.ID] = job
	m.order = append([]string{job.ID}, m.order...)
	snapshot := *job
	m.mu.Unlock()

	logging.Info("Queued generation %s (model %s)", job.ID, req.Model)
	if o := observe(); o != nil {
		o.ObserveEnqueue()
	}
	m.publish(Event{Type: EventEnqueued, Job: snapshot})
	m.observeCounts()

	return snapshot.ticket(), nil
}

// Dispatch starts the reserved record with the final request, normally the
// reserved one with its uploaded ImageInputs appended. If the final request
// is invalid or the queue has shut down, the record is failed and the error
// returned. ErrNotReserved means the record was dismissed or already
// settled.
func (m *Manager) Dispatch(t Ticket, req generation.Request) error {
	req.ID = t.ID
	req = req.Normalize()
	invalid := req.Validate()

	m.mu.Lock()
	job, ok := m.reservedLocked(t)
	if !ok {
		m.mu.Unlock()
		return ErrNotReserved
	}
	if invalid == nil && m.closed {
		invalid = ErrClosed
	}
	if invalid != nil {
		m.mu.Unlock()
		m.Fail(t, invalid.Error())
		return invalid
	}
	job.Request = req
	job.dispatched = true
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.processGeneration(m.ctx, t, req)
	}()
	return nil
}

// Fail marks a reserved record failed with msg instead of starting it. It
// reports whether the record was still waiting for dispatch.
func (m *Manager) Fail(t Ticket, msg string) bool {
	m.mu.Lock()
	job, ok := m.reservedLocked(t)
	if !ok {
		m.mu.Unlock()
		return false
	}
	job.Status = StatusFailed
	job.Error = msg
	job.dispatched = true
	snapshot := *job
	m.mu.Unlock()

	logging.Warn("Generation %s failed before starting: %s", t.ID, msg)
	m.publish(Event{Type: EventFailed, Job: snapshot})
	m.observeCounts()
	return true
}

// reservedLocked returns the record t names if it has not been dispatched.
func (m *Manager) reservedLocked(t Ticket) (*Job, bool) {
	job, ok := m.jobs[t.ID]
	if !ok || job.seq != t.seq || job.dispatched {
		return nil, false
	}
	return job, true
}

// processGeneration runs the single permitted generate call for id. A second
// call while the first is in flight returns immediately without effects.
func (m *Manager) processGeneration(ctx context.Context, t Ticket, req generation.Request) {
	id := t.ID
	if !m.acquire(id) {
		logging.Debug("Generation %s already in flight, ignoring duplicate start", id)
		if o := observe(); o != nil {
			o.ObserveDuplicate()
		}
		return
	}
	defer m.release(id)

	estimated := m.estimate(ctx, req.Model)
	started := m.now()

	if job, ok := m.patch(t, func(j *Job) {
		j.Status = StatusGenerating
		j.StartedAt = started
		j.EstimatedDuration = estimated
		j.Error = ""
	}); ok {
		logging.Debug("Generation %s started, estimated %v", id, estimated)
		m.publish(Event{Type: EventStarted, Job: job})
	}
	m.observeCounts()

	resp, err := m.callGenerate(ctx, req)
	outcome := generation.Classify(resp, err)
	elapsed := m.now().Sub(started).Seconds()

	if outcome.Succeeded {
		m.succeed(t, resp, elapsed)
		return
	}

	label := OutcomeFailed
	if err != nil {
		label = OutcomeError
	}
	if o := observe(); o != nil {
		o.ObserveOutcome(label, elapsed)
	}

	msg := outcome.Message()
	if job, ok := m.patch(t, func(j *Job) {
		j.Status = StatusFailed
		j.Error = msg
	}); ok {
		logging.Warn("Generation %s failed: %s", id, msg)
		m.publish(Event{Type: EventFailed, Job: job, Response: resp})
	} else {
		logging.Debug("Generation %s failed after dismissal: %s", id, msg)
	}
	m.observeCounts()
}

func (m *Manager) succeed(t Ticket, resp *generation.Response, elapsed float64) {
	id := t.ID
	m.mu.Lock()
	var (
		job     Job
		present bool
	)
	if current, ok := m.jobs[id]; ok && current.seq == t.seq {
		job, present = m.removeLocked(id)
	}
	callbacks := append([]SuccessFunc(nil), m.onSuccess...)
	m.mu.Unlock()

	if o := observe(); o != nil {
		o.ObserveOutcome(OutcomeSucceeded, elapsed)
	}
	if !present {
		job = Job{ID: id}
	}
	logging.Info("Generation %s succeeded in %.1fs", id, elapsed)
	m.publish(Event{Type: EventSucceeded, Job: job, Response: resp})
	m.observeCounts()

	for _, fn := range callbacks {
		fn(job, resp)
	}
}

// callGenerate converts a panicking generator into an error so the guard is
// still released and the job still fails.
func (m *Manager) callGenerate(ctx context.Context, req generation.Request) (resp *generation.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	if m.generator == nil {
		return nil, generation.ErrGeneratorDisabled
	}
	return m.generator.Generate(ctx, req)
}

func (m *Manager) estimate(ctx context.Context, modelID string) time.Duration {
	var model *generation.Model
	if m.registry != nil {
		found, err := m.registry.Lookup(ctx, modelID)
		if err != nil {
			logging.Warn("Model lookup for %s failed, using default duration: %v", modelID, err)
		} else {
			model = found
		}
	}
	return model.EstimatedDuration(m.buffer)
}

func (m *Manager) acquire(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[id]; busy {
		return false
	}
	m.inFlight[id] = struct{}{}
	return true
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, id)
}

// patch applies fn to the record t names if it is still tracked and
// returns a copy.
func (m *Manager) patch(t Ticket, fn func(*Job)) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[t.ID]
	if !ok || job.seq != t.seq {
		return Job{}, false
	}
	fn(job)
	return *job, true
}

func (m *Manager) removeLocked(id string) (Job, bool) {
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	delete(m.jobs, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return *job, true
}

// Dismiss removes a record regardless of its status. It does not stop an
// in-flight generate call. Absent ids are ignored; the return value
// reports whether anything was removed.
func (m *Manager) Dismiss(id string) bool {
	m.mu.Lock()
	job, ok := m.removeLocked(id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	if job.Status != StatusFailed {
		logging.Debug("Dismissed %s generation %s; its call keeps running", job.Status, id)
	}
	m.publish(Event{Type: EventDismissed, Job: job})
	m.observeCounts()
	return true
}

// Snapshot returns copies of all records, most recent first.
func (m *Manager) Snapshot() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.jobs[id])
	}
	return out
}

// Get returns a copy of one record.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// InFlight reports whether id currently holds the guard.
func (m *Manager) InFlight(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[id]
	return ok
}

// Counts returns the number of records per status.
func (m *Manager) Counts() (queued, generating, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		switch job.Status {
		case StatusQueued:
			queued++
		case StatusGenerating:
			generating++
		case StatusFailed:
			failed++
		}
	}
	return queued, generating, failed
}

func (m *Manager) observeCounts() {
	o := observe()
	if o == nil {
		return
	}
	o.ObserveCounts(m.Counts())
}

// Subscribe returns a channel of events and a function to stop receiving
// them. Slow subscribers miss events rather than block the manager.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) publish(evt Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- evt:
		default:
			logging.Debug("Dropping %s event for %s: subscriber is full", evt.Type, evt.Job.ID)
		}
	}
}

// Wait blocks until every started generation has settled.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown stops accepting jobs and cancels in-flight calls, then waits for
// them to settle or ctx to expire. It is meant for process exit only.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
