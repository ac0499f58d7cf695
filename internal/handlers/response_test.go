package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ticket-marketplace/internal/middleware"
	"ticket-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"event", models.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
		{"wrapped ticket type", fmt.Errorf("lookup: %w", models.ErrTicketTypeNotFound), http.StatusNotFound, "ticket_type_not_found"},
		{"view", models.ErrViewNotFound, http.StatusNotFound, "view_not_found"},
		{"empty cart", models.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
		{"capacity", models.ErrCapacityExceeded, http.StatusUnprocessableEntity, "capacity_exceeded"},
		{"in progress", models.ErrCheckoutInProgress, http.StatusConflict, "checkout_in_progress"},
		{"checkout failed", fmt.Errorf("%w: %w", models.ErrCheckoutFailed, errors.New("timeout")), http.StatusBadGateway, "checkout_failed"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body middleware.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	writeServiceError(w, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var req addToCartRequest

	r := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"event_id":"E","price":1}`))
	assert.Error(t, decodeJSON(httptest.NewRecorder(), r, &req))

	r = httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"event_id":"E","ticket_type_id":"T","quantity":2}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &req))
	assert.Equal(t, 2, req.Quantity)
}
