package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ticket-marketplace/internal/middleware"
	"ticket-marketplace/internal/models"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeServiceError maps domain errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrEventNotFound):
		middleware.WriteError(w, http.StatusNotFound, "event_not_found", err.Error())
	case errors.Is(err, models.ErrTicketTypeNotFound):
		middleware.WriteError(w, http.StatusNotFound, "ticket_type_not_found", err.Error())
	case errors.Is(err, models.ErrTicketNotFound):
		middleware.WriteError(w, http.StatusNotFound, "ticket_not_found", err.Error())
	case errors.Is(err, models.ErrViewNotFound):
		middleware.WriteError(w, http.StatusNotFound, "view_not_found", err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		middleware.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, models.ErrEmptySelection):
		middleware.WriteError(w, http.StatusBadRequest, "empty_selection", err.Error())
	case errors.Is(err, models.ErrEmptyCart):
		middleware.WriteError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, models.ErrCapacityExceeded):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "capacity_exceeded", err.Error())
	case errors.Is(err, models.ErrInvalidQRCode):
		middleware.WriteError(w, http.StatusBadRequest, "invalid_qr_code", err.Error())
	case errors.Is(err, models.ErrCheckoutInProgress):
		middleware.WriteError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, models.ErrCheckoutFailed):
		middleware.WriteError(w, http.StatusBadGateway, "checkout_failed", "Checkout could not be completed. Your cart was kept; please try again.")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again.")
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	middleware.WriteError(w, http.StatusBadRequest, "invalid_input", message)
}
