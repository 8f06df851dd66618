package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/harborgate/site-api/internal/observability/metrics"
	"github.com/harborgate/site-api/pkg/logging"
)

// Handler accepts multipart uploads and forwards them to object storage.
type Handler struct {
	store    *Store
	maxBytes int64
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewHandler creates an upload handler. maxBytes bounds the size of a
// single file.
func NewHandler(store *Store, maxBytes int64, m *metrics.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:    store,
		maxBytes: maxBytes,
		metrics:  m,
		logger:   logger,
	}
}

type uploadResponse struct {
	Success bool      `json:"success"`
	Data    []*Object `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Upload handles POST /api/upload. Accepts one or more files under the
// "file" form field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.store.Enabled() {
		h.metrics.ObserveUpload("unavailable", 0)
		h.respondError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes*8)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.metrics.ObserveUpload("rejected", 0)
		h.respondError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		h.metrics.ObserveUpload("rejected", 0)
		h.respondError(w, http.StatusBadRequest, "No file provided")
		return
	}

	var stored []*Object
	for _, header := range files {
		if header.Size > h.maxBytes {
			h.metrics.ObserveUpload("rejected", 0)
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("File %q exceeds the size limit", header.Filename))
			return
		}

		obj, err := h.storeFile(r, header)
		if err != nil {
			if errors.Is(err, ErrDisabled) {
				h.metrics.ObserveUpload("unavailable", 0)
				h.respondError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable")
				return
			}
			h.logger.Error("failed to store upload", "error", err, "filename", header.Filename)
			h.metrics.ObserveUpload("error", 0)
			h.respondError(w, http.StatusInternalServerError, "Upload failed")
			return
		}
		h.metrics.ObserveUpload("stored", obj.Size)
		stored = append(stored, obj)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(uploadResponse{Success: true, Data: stored})
}

func (h *Handler) storeFile(r *http.Request, header *multipart.FileHeader) (*Object, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("uploads: open part: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniffed, err := mimetype.DetectReader(file)
		if err == nil {
			contentType = sniffed.String()
		}
		if _, err := file.Seek(0, 0); err != nil {
			return nil, fmt.Errorf("uploads: rewind part: %w", err)
		}
	}

	return h.store.Put(r.Context(), header.Filename, contentType, header.Size, file)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(uploadResponse{Success: false, Error: message})
}
