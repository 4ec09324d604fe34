package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"

	"genstudio/internal/logging"
	"genstudio/internal/mediatypes"
	"genstudio/internal/upload"

	"github.com/gorilla/mux"
)

// UploadImages preprocesses and uploads the multipart files under "images".
// Per-file failures are reported in the result; the request itself only
// fails when nothing could be read.
func (h *Handlers) UploadImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSONError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := readImages(r.MultipartForm, "images")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(files) == 0 {
		writeJSONError(w, "No images attached", http.StatusBadRequest)
		return
	}

	result, err := h.preprocess(r, files)
	if err != nil {
		writeJSONError(w, "Preprocessing unavailable", http.StatusServiceUnavailable)
		return
	}

	status := http.StatusOK
	if len(result.Uploaded) == 0 {
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, result)
}

// ServeUpload serves a stored reference image. Keys are content hashes, so
// responses are cacheable forever.
func (h *Handlers) ServeUpload(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	f, err := h.blobs.Open(key)
	if errors.Is(err, upload.ErrInvalidKey) {
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to open upload %s: %v", key, err)
		http.Error(w, "Failed to open upload", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "Failed to stat upload", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mediatypes.GetMimeType(filepath.Ext(key)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, key, info.ModTime(), f)
}
