package ingest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// maxUploadBytes caps the accepted archive size
const maxUploadBytes = 64 << 20

// Handler handles dataset upload HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new ingest handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ingest").Logger(),
	}
}

// HandleUpload accepts a zip archive either as a multipart "file" part or as
// a raw request body, and loads it into the stub dataset.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	blob, err := h.readArchive(w, r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(blob) == 0 {
		h.writeError(w, http.StatusBadRequest, "empty upload")
		return
	}

	result, err := h.service.Ingest(blob, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Info().
		Str("dataset_version", result.DatasetVersion).
		Bool("idempotent", result.Idempotent).
		Msg("Dataset upload handled")

	h.writeJSON(w, http.StatusOK, result)
}

// readArchive extracts the zip payload from the request
func (h *Handler) readArchive(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	return io.ReadAll(r.Body)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{"error": message})
}
