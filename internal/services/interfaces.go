package services

import (
	"context"
	"time"

	"ticket-marketplace/internal/models"
)

// LedgerRepository defines the persistence the ledger and checkout need
type LedgerRepository interface {
	AppendAll(ctx context.Context, tickets []*models.PurchasedTicket) error
	GetByID(ctx context.Context, id string) (*models.PurchasedTicket, error)
	GetByQRCode(ctx context.Context, qrCode string) (*models.PurchasedTicket, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.PurchasedTicket, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.PurchasedTicket, error)
	MarkValidated(ctx context.Context, id string, at time.Time) (bool, error)
	SalesByEvent(ctx context.Context, eventID string) ([]models.TicketTypeSales, error)
}

// CartStore persists one cart per session. Load returns an empty cart for an
// unknown session.
type CartStore interface {
	Load(ctx context.Context, sessionID string) (*models.Cart, error)
	Save(ctx context.Context, sessionID string, cart *models.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// CatalogProvider supplies raw event records to the catalog
type CatalogProvider interface {
	LoadEvents(ctx context.Context) ([]models.EventPayload, error)
}

// CheckoutBackend submits a purchase to the remote order backend
type CheckoutBackend interface {
	Submit(ctx context.Context, req *CheckoutRequest) (*CheckoutConfirmation, error)
}

// CheckInClient reports a ticket validation to the remote check-in backend
type CheckInClient interface {
	CheckIn(ctx context.Context, ticketID string) (CheckInStatus, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// CatalogServiceInterface defines the catalog reads used by handlers
type CatalogServiceInterface interface {
	List() []*models.Event
	Event(eventID string) (*models.Event, error)
	Lookup(eventID string) (models.TicketTypeLookup, error)
}

// CheckoutLine is one (event, ticket type, quantity) line of a purchase
type CheckoutLine struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int    `json:"unit_price"`
}

// CheckoutRequest is what gets submitted to the checkout backend
type CheckoutRequest struct {
	OrderID   string         `json:"order_id"`
	SessionID string         `json:"session_id"`
	Lines     []CheckoutLine `json:"lines"`
	Total     int            `json:"total"`
}

// ConfirmedTicket is a backend-issued ticket for one checkout line. ID and
// QRCode are optional; missing values are generated locally.
type ConfirmedTicket struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
	ID           string `json:"id,omitempty"`
	QRCode       string `json:"qr_code,omitempty"`
}

// CheckoutConfirmation is the backend's answer to a CheckoutRequest
type CheckoutConfirmation struct {
	Success   bool              `json:"success"`
	Reference string            `json:"reference"`
	Message   string            `json:"message,omitempty"`
	Tickets   []ConfirmedTicket `json:"tickets,omitempty"`
}

// CheckInStatus is the remote check-in outcome
type CheckInStatus string

const (
	CheckInValidated        CheckInStatus = "validated"
	CheckInAlreadyValidated CheckInStatus = "already_validated"
	CheckInNotFound         CheckInStatus = "not_found"
)

// CatalogInventory lowers local availability after a purchase
type CatalogInventory interface {
	ApplyPurchase(lines []CheckoutLine)
}
