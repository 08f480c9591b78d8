package orders

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
	"github.com/aristath/robo-trader/internal/events"
)

// AckRequest acknowledges or rejects an order or a whole batch
type AckRequest struct {
	OrderID string `json:"orderId,omitempty"`
	BatchID string `json:"batchId,omitempty"`
	Action  string `json:"action"` // acknowledge | reject
}

// Handler handles order lifecycle HTTP requests
type Handler struct {
	store  *Store
	events *events.Manager
	log    zerolog.Logger
}

// NewHandler creates a new orders handler
func NewHandler(store *Store, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		events: eventManager,
		log:    log.With().Str("handler", "orders").Logger(),
	}
}

// HandleAck applies an acknowledge/reject transition. Repeat calls for an
// already-transitioned order return the same result.
func (h *Handler) HandleAck(w http.ResponseWriter, r *http.Request) {
	var req AckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "", "invalid request body: "+err.Error())
		return
	}

	var target domain.OrderState
	var eventType events.EventType
	switch req.Action {
	case "acknowledge":
		target = domain.OrderAcknowledged
		eventType = events.OrderAcknowledged
	case "reject":
		target = domain.OrderRejected
		eventType = events.OrderRejected
	default:
		h.writeError(w, http.StatusBadRequest, "", "action must be 'acknowledge' or 'reject'")
		return
	}

	switch {
	case req.OrderID != "":
		state, err := h.store.transition(req.OrderID, target)
		if err != nil {
			h.writeTransitionError(w, err, state)
			return
		}
		h.events.Emit(eventType, "orders", map[string]interface{}{"order_id": req.OrderID})
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"order_id": req.OrderID,
			"state":    state,
		})

	case req.BatchID != "":
		states, failures, err := h.store.AcknowledgeBatch(req.BatchID, target)
		if err != nil {
			h.writeTransitionError(w, err, "")
			return
		}

		failed := make(map[string]string, len(failures))
		for id, ferr := range failures {
			failed[id] = ferr.Error()
		}

		h.events.Emit(eventType, "orders", map[string]interface{}{
			"batch_id": req.BatchID,
			"orders":   len(states),
			"failures": len(failures),
		})
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"batch_id": req.BatchID,
			"states":   states,
			"failures": failed,
		})

	default:
		h.writeError(w, http.StatusBadRequest, "", "orderId or batchId is required")
	}
}

// HandleGetOrder returns one order's current state
func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	order, err := h.store.Get(orderID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, domain.KindOf(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// HandleGetBatch returns all orders in a batch
func (h *Handler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")

	batchOrders, err := h.store.GetBatch(batchID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, domain.KindOf(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"batch_id": batchID,
		"orders":   batchOrders,
	})
}

// writeTransitionError distinguishes unknown ids from terminal-state misuse
func (h *Handler) writeTransitionError(w http.ResponseWriter, err error, state domain.OrderState) {
	status := http.StatusConflict
	if domain.IsKind(err, domain.KindNotFound) {
		status = http.StatusNotFound
	}

	h.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"kind":  domain.KindOf(err),
		"state": state,
	})
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
