package handlers

import (
	"net/http"
	"time"

	"ticket-marketplace/internal/models"
	"ticket-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// EventHandler serves the catalog
type EventHandler struct {
	catalog services.CatalogServiceInterface
}

// NewEventHandler creates a new event handler
func NewEventHandler(catalog services.CatalogServiceInterface) *EventHandler {
	return &EventHandler{catalog: catalog}
}

type ticketTypeResponse struct {
	*models.TicketType
	SoldOut       bool `json:"sold_out"`
	MaxSelectable int  `json:"max_selectable"`
}

type eventResponse struct {
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	Description    string               `json:"description,omitempty"`
	Date           time.Time            `json:"date"`
	Venue          models.Venue         `json:"venue"`
	SoldOut        bool                 `json:"sold_out"`
	TotalAvailable int                  `json:"total_available"`
	TicketTypes    []ticketTypeResponse `json:"ticket_types"`
}

func newEventResponse(e *models.Event) eventResponse {
	resp := eventResponse{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Date:           e.Date,
		Venue:          e.Venue,
		SoldOut:        e.IsSoldOut(),
		TotalAvailable: e.TotalAvailable(),
		TicketTypes:    make([]ticketTypeResponse, len(e.TicketTypes)),
	}
	for i, tt := range e.TicketTypes {
		resp.TicketTypes[i] = ticketTypeResponse{
			TicketType:    tt,
			SoldOut:       tt.IsSoldOut(),
			MaxSelectable: tt.MaxSelectable(),
		}
	}
	return resp
}

// List returns every event in the catalog
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events := h.catalog.List()

	resp := make([]eventResponse, len(events))
	for i, e := range events {
		resp[i] = newEventResponse(e)
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": resp})
}

// Get returns one event with availability
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.catalog.Event(chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newEventResponse(event))
}
