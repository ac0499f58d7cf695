package handlers

import (
	"net/http"

	"ticket-marketplace/internal/middleware"
	"ticket-marketplace/internal/models"
	"ticket-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// SelectionHandler handles the per-view ticket selection of an event page
type SelectionHandler struct {
	selections *services.SelectionService
	cart       *services.CartService
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(selections *services.SelectionService, cart *services.CartService) *SelectionHandler {
	return &SelectionHandler{
		selections: selections,
		cart:       cart,
	}
}

type selectionStepRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
}

// Open starts a selection view for the event
func (h *SelectionHandler) Open(w http.ResponseWriter, r *http.Request) {
	view, err := h.selections.Open(chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// Get returns the view's current selection
func (h *SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.selections.Get(chi.URLParam(r, "viewID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Increment adds one ticket of a type; requests past the limit leave the selection as is
func (h *SelectionHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.selections.Increment)
}

// Decrement removes one ticket of a type
func (h *SelectionHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.selections.Decrement)
}

func (h *SelectionHandler) step(w http.ResponseWriter, r *http.Request, apply func(viewID, ticketTypeID string) (*services.SelectionView, error)) {
	var req selectionStepRequest
	if err := decodeJSON(w, r, &req); err != nil || req.TicketTypeID == "" {
		writeBadRequest(w, "ticket_type_id is required")
		return
	}

	view, err := apply(chi.URLParam(r, "viewID"), req.TicketTypeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Close discards the view
func (h *SelectionHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.selections.Close(chi.URLParam(r, "viewID"))
	w.WriteHeader(http.StatusNoContent)
}

// AddToCart moves the view's selection into the session cart and resets the view
func (h *SelectionHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var cart *models.Cart
	view, err := h.selections.Transfer(chi.URLParam(r, "viewID"), func(sel *models.Selection) error {
		added, err := h.cart.AddSelection(r.Context(), sessionID, sel)
		if err != nil {
			return err
		}
		cart = added
		return nil
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"view": view,
		"cart": newCartResponse(cart),
	})
}
