package handlers

import (
	"net/http"

	"ticket-marketplace/internal/middleware"
	"ticket-marketplace/internal/services"
)

// CheckoutHandler handles purchase requests
type CheckoutHandler struct {
	checkout *services.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Checkout buys everything in the session's cart
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkout.Checkout(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Status reports whether a checkout is running for the session
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"in_progress": h.checkout.InProgress(middleware.GetSessionID(r.Context())),
	})
}
