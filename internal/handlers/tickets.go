package handlers

import (
	"net/http"
	"strconv"

	"ticket-marketplace/internal/middleware"
	"ticket-marketplace/internal/models"
	"ticket-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// TicketHandler serves purchased tickets and door validation
type TicketHandler struct {
	ledger  *services.LedgerService
	catalog services.CatalogServiceInterface
	codec   *services.QRCodec
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ledger *services.LedgerService, catalog services.CatalogServiceInterface, codec *services.QRCodec) *TicketHandler {
	return &TicketHandler{
		ledger:  ledger,
		catalog: catalog,
		codec:   codec,
	}
}

type ticketResponse struct {
	*models.PurchasedTicket
	State    models.TicketState `json:"state"`
	Subtotal int                `json:"subtotal"`
}

func newTicketResponse(t *models.PurchasedTicket) ticketResponse {
	return ticketResponse{PurchasedTicket: t, State: t.State(), Subtotal: t.Subtotal()}
}

func newTicketResponses(tickets []*models.PurchasedTicket) []ticketResponse {
	out := make([]ticketResponse, len(tickets))
	for i, t := range tickets {
		out[i] = newTicketResponse(t)
	}
	return out
}

type validationResponse struct {
	Ticket           ticketResponse         `json:"ticket"`
	AlreadyValidated bool                   `json:"already_validated"`
	CheckIn          services.CheckInStatus `json:"check_in,omitempty"`
}

func newValidationResponse(result *services.ValidationResult) validationResponse {
	return validationResponse{
		Ticket:           newTicketResponse(result.Ticket),
		AlreadyValidated: result.AlreadyValidated,
		CheckIn:          result.CheckIn,
	}
}

type checkInRequest struct {
	QRCode string `json:"qr_code"`
}

// ListMine returns the session's tickets
func (h *TicketHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.ledger.ListBySession(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tickets": newTicketResponses(tickets)})
}

// Get returns one of the session's tickets
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.ledger.GetForSession(r.Context(), chi.URLParam(r, "ticketID"), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTicketResponse(ticket))
}

// QRCode renders one of the session's tickets as a PNG
func (h *TicketHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.ledger.GetForSession(r.Context(), chi.URLParam(r, "ticketID"), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	png, err := h.codec.RenderPNG(ticket.QRCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Validate marks a ticket as used by id
func (h *TicketHandler) Validate(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledger.Validate(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newValidationResponse(result))
}

// CheckIn validates the ticket behind a scanned QR code
func (h *TicketHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decodeJSON(w, r, &req); err != nil || req.QRCode == "" {
		writeBadRequest(w, "qr_code is required")
		return
	}

	result, err := h.ledger.ValidateByQRCode(r.Context(), req.QRCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newValidationResponse(result))
}

// Buyers lists an event's tickets together with sold and validated totals
func (h *TicketHandler) Buyers(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if _, err := h.catalog.Event(eventID); err != nil {
		writeServiceError(w, err)
		return
	}

	tickets, err := h.ledger.ListByEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	summary, err := h.ledger.EventSummary(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Credentials stay with their buyers
	redacted := make([]*models.PurchasedTicket, len(tickets))
	for i, t := range tickets {
		copied := *t
		copied.QRCode = ""
		redacted[i] = &copied
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"tickets": newTicketResponses(redacted),
	})
}
