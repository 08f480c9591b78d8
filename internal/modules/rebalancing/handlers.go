package rebalancing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
)

// Handler handles rebalance HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleRebalance proposes orders for the requested accounts
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "", "invalid request body: "+err.Error())
		return
	}

	response, err := h.service.Rebalance(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeEngineError maps the error taxonomy onto HTTP statuses
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case domain.KindDataUnavailable:
		status = http.StatusServiceUnavailable
	case domain.KindInfeasibleConstraints, domain.KindInvalidLiquidity:
		status = http.StatusUnprocessableEntity
	case domain.KindInvalidTransition:
		status = http.StatusConflict
	case domain.KindNotFound:
		status = http.StatusNotFound
	}

	var engineErr *domain.Error
	if !errors.As(err, &engineErr) {
		h.log.Error().Err(err).Msg("Unclassified rebalance failure")
	}

	h.writeError(w, status, kind, err.Error())
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response with a machine-readable kind
func (h *Handler) writeError(w http.ResponseWriter, status int, kind domain.ErrorKind, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
		"kind":  kind,
	})
}
