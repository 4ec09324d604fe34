package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"genstudio/internal/generation"
	"genstudio/internal/logging"
	"genstudio/internal/media"
	"genstudio/internal/middleware"
	"genstudio/internal/progress"
	"genstudio/internal/queue"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// JobView is a queue record as rendered by the API.
type JobView struct {
	ID               string             `json:"id"`
	Status           queue.Status       `json:"status"`
	Prompt           string             `json:"prompt"`
	Model            string             `json:"model"`
	ImageInputs      []string           `json:"imageInputs,omitempty"`
	Options          generation.Options `json:"options"`
	NumOutputs       int                `json:"numOutputs"`
	CreatedAt        time.Time          `json:"createdAt"`
	StartedAt        *time.Time         `json:"startedAt,omitempty"`
	EstimatedSeconds float64            `json:"estimatedSeconds,omitempty"`
	Error            string             `json:"error,omitempty"`
	Progress         *progress.View     `json:"progress,omitempty"`
}

// CreateGenerationResponse is returned once a job is recorded. Status is
// failed when its reference images could not be uploaded.
type CreateGenerationResponse struct {
	ID           string             `json:"id"`
	Status       queue.Status       `json:"status"`
	Error        string             `json:"error,omitempty"`
	ImageInputs  []string           `json:"imageInputs,omitempty"`
	UploadErrors []media.BatchError `json:"uploadErrors,omitempty"`
}

func (h *Handlers) jobView(job queue.Job) JobView {
	v := JobView{
		ID:          job.ID,
		Status:      job.Status,
		Prompt:      job.Request.Prompt,
		Model:       job.Request.Model,
		ImageInputs: job.Request.ImageInputs,
		Options:     job.Request.Options,
		NumOutputs:  job.Request.NumOutputs,
		CreatedAt:   job.CreatedAt,
		Error:       job.Error,
	}
	if !job.StartedAt.IsZero() {
		started := job.StartedAt
		v.StartedAt = &started
		v.EstimatedSeconds = job.EstimatedDuration.Seconds()
	}
	if job.Status == queue.StatusGenerating {
		view := progress.Estimate(h.curve, job.Elapsed(h.now()), job.EstimatedDuration)
		v.Progress = &view
	}
	return v
}

// CreateGeneration queues a generation. JSON bodies carry already-hosted
// image URLs; multipart bodies may attach files under "images". Attached
// files are prepared and uploaded after the job is recorded. Files that fail
// conversion or resizing are reported and left out of the request; a failed
// upload fails the job.
func (h *Handlers) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var (
		req   generation.Request
		files []media.File
		err   error
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		req, files, err = parseMultipartGeneration(r)
	default:
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			err = fmt.Errorf("%w: %v", errBadBody, err)
		}
	}
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.ID) == "" {
		req.ID = uuid.NewString()
	}
	middleware.NoteGeneration(r.Context(), req.ID, req.Model)

	if len(files) == 0 {
		id, err := h.queue.Enqueue(req)
		if err != nil {
			writeQueueError(w, err)
			return
		}
		writeCreated(w, CreateGenerationResponse{ID: id, Status: queue.StatusQueued, ImageInputs: req.ImageInputs})
		return
	}

	ticket, err := h.queue.Reserve(req, len(files))
	if err != nil {
		writeQueueError(w, err)
		return
	}

	result, err := h.assemble(r, files)
	if errors.Is(err, errBusy) {
		h.queue.Fail(ticket, errBusy.Error())
		writeJSONError(w, "Preprocessing unavailable", http.StatusServiceUnavailable)
		return
	}
	resp := CreateGenerationResponse{ID: ticket.ID, Status: queue.StatusQueued, UploadErrors: result.Errors}
	if err != nil {
		h.queue.Fail(ticket, err.Error())
		resp.Status = queue.StatusFailed
		resp.Error = err.Error()
		writeCreated(w, resp)
		return
	}

	if len(result.Uploaded) == 0 {
		logging.Warn("All %d reference images for %s failed; queueing without them", len(files), ticket.ID)
	}
	req.ImageInputs = append(req.ImageInputs, result.URLs()...)
	resp.ImageInputs = req.ImageInputs

	err = h.queue.Dispatch(ticket, req)
	switch {
	case errors.Is(err, queue.ErrNotReserved):
		writeJSONError(w, "Generation was dismissed while preparing images", http.StatusGone)
		return
	case err != nil:
		resp.Status = queue.StatusFailed
		resp.Error = err.Error()
	}
	writeCreated(w, resp)
}

func writeCreated(w http.ResponseWriter, resp CreateGenerationResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/api/generations/"+resp.ID)
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, resp)
}

func writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, generation.ErrInvalidRequest):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, queue.ErrDuplicateID):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, queue.ErrClosed):
		writeJSONError(w, "Queue is not accepting jobs", http.StatusServiceUnavailable)
	default:
		logging.Error("Failed to queue generation: %v", err)
		writeJSONError(w, "Failed to queue generation", http.StatusInternalServerError)
	}
}

var (
	errBadBody = errors.New("invalid request body")
	errBusy    = errors.New("preprocessing unavailable")
)

func parseMultipartGeneration(r *http.Request) (generation.Request, []media.File, error) {
	var req generation.Request
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return req, nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	defer r.MultipartForm.RemoveAll()

	req.ID = r.FormValue("id")
	req.Prompt = r.FormValue("prompt")
	req.Model = r.FormValue("model")
	req.AspectRatio = generation.AspectRatio(r.FormValue("aspectRatio"))
	req.Resolution = generation.Resolution(r.FormValue("resolution"))
	req.OutputFormat = generation.OutputFormat(r.FormValue("outputFormat"))
	req.ImageInputs = r.MultipartForm.Value["imageInputs"]

	if v := r.FormValue("numOutputs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, nil, fmt.Errorf("%w: numOutputs must be a number", errBadBody)
		}
		req.NumOutputs = n
	}
	if v := r.FormValue("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, nil, fmt.Errorf("%w: seed must be an integer", errBadBody)
		}
		req.Seed = &seed
	}

	files, err := readImages(r.MultipartForm, "images")
	if err != nil {
		return req, nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	return req, files, nil
}

// withSlot runs fn while holding a limiter slot and once the memory gate
// allows it. It returns errBusy if the request ends while waiting.
func (h *Handlers) withSlot(r *http.Request, fn func()) error {
	if !h.limiter.Acquire(r.Context().Done()) {
		return errBusy
	}
	defer h.limiter.Release()

	if h.memory != nil {
		if err := h.memory.Wait(r.Context()); err != nil {
			return errBusy
		}
	}
	fn()
	return nil
}

// preprocess runs an upload batch; failing files are skipped.
func (h *Handlers) preprocess(r *http.Request, files []media.File) (media.BatchResult, error) {
	var result media.BatchResult
	err := h.withSlot(r, func() {
		result = h.pipeline.Process(r.Context(), files)
	})
	return result, err
}

// assemble prepares the reference images of a generation and stops at the
// first failed upload.
func (h *Handlers) assemble(r *http.Request, files []media.File) (media.BatchResult, error) {
	var (
		result    media.BatchResult
		uploadErr error
	)
	if err := h.withSlot(r, func() {
		result, uploadErr = h.pipeline.Assemble(r.Context(), files)
	}); err != nil {
		return result, err
	}
	return result, uploadErr
}

// ListGenerations returns every tracked job, most recent first.
func (h *Handlers) ListGenerations(w http.ResponseWriter, _ *http.Request) {
	jobs := h.queue.Snapshot()
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, h.jobView(job))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, views)
}

// GetGeneration returns one job.
func (h *Handlers) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.queue.Get(id)
	if !ok {
		writeJSONError(w, "Generation not found", http.StatusNotFound)
		return
	}
	middleware.NoteGeneration(r.Context(), id, job.Request.Model)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, h.jobView(job))
}

// DismissGeneration removes a job from the list. Dismissing an unknown or
// already dismissed job succeeds.
func (h *Handlers) DismissGeneration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.queue.Dismiss(id) {
		logging.Debug("Dismiss of unknown generation %s ignored", id)
	}
	w.WriteHeader(http.StatusNoContent)
}
