package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"genstudio/internal/database"
	"genstudio/internal/generation"
	"genstudio/internal/logging"

	"github.com/gorilla/mux"
)

// ModelRequest updates a registry entry. A null avgGenerationTime clears it.
type ModelRequest struct {
	Name              string   `json:"name"`
	AvgGenerationTime *float64 `json:"avgGenerationTime"`
}

// ListModels returns the model registry.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.models.ListModels(r.Context())
	if err != nil {
		http.Error(w, "Failed to list models", http.StatusInternalServerError)
		return
	}

	if models == nil {
		models = []generation.Model{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, models)
}

// UpsertModel creates or replaces the model named in the path.
func (h *Handlers) UpsertModel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req ModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.models.UpsertModel(r.Context(), generation.Model{
		ID:                id,
		Name:              req.Name,
		AvgGenerationTime: req.AvgGenerationTime,
	})
	if errors.Is(err, database.ErrInvalidModel) {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		logging.Error("Failed to upsert model %s: %v", id, err)
		writeJSONError(w, "Failed to save model", http.StatusInternalServerError)
		return
	}

	model, err := h.models.LookupModel(r.Context(), id)
	if err != nil || model == nil {
		writeJSONStatus(w, "ok")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, model)
}
