package handlers

import (
	"net/http"

	"ticket-marketplace/internal/middleware"
	"ticket-marketplace/internal/models"
	"ticket-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// CartHandler handles shopping cart requests
type CartHandler struct {
	cart *services.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart *services.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

type cartEntryResponse struct {
	models.CartEntry
	Subtotal int `json:"subtotal"`
}

type cartResponse struct {
	Entries       []cartEntryResponse `json:"entries"`
	TotalQuantity int                 `json:"total_quantity"`
	TotalPrice    int                 `json:"total_price"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	resp := cartResponse{
		Entries:       make([]cartEntryResponse, len(cart.Entries)),
		TotalQuantity: cart.TotalQuantity(),
		TotalPrice:    cart.TotalPrice(),
	}
	for i, e := range cart.Entries {
		resp.Entries[i] = cartEntryResponse{CartEntry: e, Subtotal: e.Subtotal()}
	}
	return resp
}

type addToCartRequest struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

// Get returns the session's cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cart.GetCart(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

// AddItem sets the quantity of one ticket type in the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if req.EventID == "" || req.TicketTypeID == "" {
		writeBadRequest(w, "event_id and ticket_type_id are required")
		return
	}

	cart, err := h.cart.AddToCart(r.Context(), middleware.GetSessionID(r.Context()), req.EventID, req.TicketTypeID, req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

// RemoveItem removes one entry from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cart.RemoveFromCart(
		r.Context(),
		middleware.GetSessionID(r.Context()),
		chi.URLParam(r, "eventID"),
		chi.URLParam(r, "ticketTypeID"),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

// Clear empties the cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), middleware.GetSessionID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
