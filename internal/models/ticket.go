package models

import (
	"errors"
	"time"
)

// TicketState represents the validation state of a purchased ticket
type TicketState string

const (
	TicketPending   TicketState = "pending"
	TicketValidated TicketState = "validated"
)

// TicketType represents a priced category of admission within an event
type TicketType struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        int    `json:"price"` // Price in cents
	Available    int    `json:"available"`
	MaxPerPerson int    `json:"max_per_person"`
}

// PurchasedTicket is the record created at checkout for one cart entry
type PurchasedTicket struct {
	ID           string     `json:"id" db:"id"`
	OrderID      string     `json:"order_id" db:"order_id"`
	SessionID    string     `json:"-" db:"session_id"`
	EventID      string     `json:"event_id" db:"event_id"`
	TicketTypeID string     `json:"ticket_type_id" db:"ticket_type_id"`
	Quantity     int        `json:"quantity" db:"quantity"`
	UnitPrice    int        `json:"unit_price" db:"unit_price"` // Price in cents
	QRCode       string     `json:"qr_code,omitempty" db:"qr_code"`
	PurchasedAt  time.Time  `json:"purchased_at" db:"purchased_at"`
	IsValidated  bool       `json:"is_validated" db:"is_validated"`
	ValidatedAt  *time.Time `json:"validated_at,omitempty" db:"validated_at"`
}

// Validate validates the ticket type data
func (tt *TicketType) Validate() error {
	if err := validateTicketTypeName(tt.Name); err != nil {
		return err
	}

	if tt.Price < 0 {
		return errors.New("ticket price cannot be negative")
	}

	// Maximum price of 10,000 in the main currency
	if tt.Price > 1000000 {
		return errors.New("ticket price cannot exceed 10,000")
	}

	if tt.Available < 0 {
		return errors.New("available count cannot be negative")
	}

	if tt.MaxPerPerson <= 0 {
		return errors.New("max per person must be greater than 0")
	}

	if len(tt.Description) > 1000 {
		return errors.New("ticket type description must be less than 1000 characters")
	}

	return nil
}

func validateTicketTypeName(name string) error {
	if name == "" {
		return errors.New("ticket type name is required")
	}

	if len(name) > 100 {
		return errors.New("ticket type name must be less than 100 characters")
	}

	return nil
}

// MaxSelectable returns how many tickets of this type one person may select
func (tt *TicketType) MaxSelectable() int {
	if tt.Available < tt.MaxPerPerson {
		return tt.Available
	}
	return tt.MaxPerPerson
}

// IsSoldOut returns true if all tickets are sold
func (tt *TicketType) IsSoldOut() bool {
	return tt.Available <= 0
}

// Consume lowers the available count after a purchase, never below zero
func (tt *TicketType) Consume(quantity int) {
	if quantity <= 0 {
		return
	}
	tt.Available -= quantity
	if tt.Available < 0 {
		tt.Available = 0
	}
}

// State returns the validation state of the ticket
func (t *PurchasedTicket) State() TicketState {
	if t.IsValidated {
		return TicketValidated
	}
	return TicketPending
}

// MarkValidated moves the ticket from pending to validated.
// It returns false, leaving ValidatedAt untouched, if the ticket was already validated.
func (t *PurchasedTicket) MarkValidated(at time.Time) bool {
	if t.IsValidated {
		return false
	}
	t.IsValidated = true
	t.ValidatedAt = &at
	return true
}

// Subtotal returns quantity times unit price in cents
func (t *PurchasedTicket) Subtotal() int {
	return t.Quantity * t.UnitPrice
}

// TicketTypeSales aggregates ledger records of one ticket type for promoter views
type TicketTypeSales struct {
	TicketTypeID string `json:"ticket_type_id" db:"ticket_type_id"`
	Records      int    `json:"records" db:"records"`
	Sold         int    `json:"sold" db:"sold"`
	Validated    int    `json:"validated" db:"validated"`
	Revenue      int    `json:"revenue" db:"revenue"` // in cents
}
