// Package handlers provides HTTP handlers for agent orders.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/modules/orders"
	"github.com/aristath/paperdesk/internal/session"
)

// Handler handles order HTTP requests
type Handler struct {
	dispatch   *orders.DispatchService
	resolution *orders.ResolutionService
	log        zerolog.Logger
}

// NewHandler creates a new orders handler
func NewHandler(dispatch *orders.DispatchService, resolution *orders.ResolutionService, log zerolog.Logger) *Handler {
	return &Handler{
		dispatch:   dispatch,
		resolution: resolution,
		log:        log.With().Str("handler", "orders").Logger(),
	}
}

// HandleSubmit handles POST /api/orders
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var draft domain.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.dispatch.Submit(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}

// HandleGetDraft handles GET /api/orders/draft
func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.dispatch.Draft(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"draft": draft})
}

// HandleSaveDraft handles PUT /api/orders/draft
func (h *Handler) HandleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var draft domain.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.dispatch.SaveDraft(r.Context(), draft); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListSent handles GET /api/orders/sent
func (h *Handler) HandleListSent(w http.ResponseWriter, r *http.Request) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	list, err := h.dispatch.ListForIssuer(r.Context(), sess.UserID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orderList(list))
}

// HandleListReceived handles GET /api/orders/received
// Agents can pass ?trader_id= to look at one of their traders.
func (h *Handler) HandleListReceived(w http.ResponseWriter, r *http.Request) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	recipientID := sess.UserID
	if raw := r.URL.Query().Get("trader_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid trader_id")
			return
		}
		recipientID = id
	}

	list, err := h.dispatch.ListForTrader(r.Context(), recipientID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orderList(list))
}

// HandleAccept handles POST /api/orders/{id}/accept
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	result, err := h.resolution.Accept(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleReject handles POST /api/orders/{id}/reject
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	result, err := h.resolution.Reject(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid order id")
		return 0, false
	}
	return id, true
}

// orderView adds the display label and badge tone to an order
type orderView struct {
	domain.Order
	StateLabel string      `json:"state_label"`
	Tone       domain.Tone `json:"tone"`
}

func orderList(list []domain.Order) map[string]interface{} {
	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, orderView{Order: o, StateLabel: o.State.Label(), Tone: o.State.Tone()})
	}
	return map[string]interface{}{
		"orders": views,
		"count":  len(views),
	}
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
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("Order request failed")
	}
	h.writeError(w, status, domain.UserMessage(err))
}
