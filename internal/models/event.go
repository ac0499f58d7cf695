package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Venue describes where an event takes place
type Venue struct {
	Name     string `json:"name" yaml:"name"`
	Address  string `json:"address" yaml:"address"`
	City     string `json:"city" yaml:"city"`
	Capacity int    `json:"capacity" yaml:"capacity"`
}

// Event represents an event in the catalog together with the ticket types it owns
type Event struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Date        time.Time     `json:"date"`
	Venue       Venue         `json:"venue"`
	TicketTypes []*TicketType `json:"ticket_types"`
}

// EventPayload is the loosely-typed shape events arrive in from a catalog provider.
// Optional fields are pointers so that a missing value can be told apart from a zero value.
type EventPayload struct {
	ID          string              `json:"id" yaml:"id"`
	Title       string              `json:"title" yaml:"title"`
	Description *string             `json:"description,omitempty" yaml:"description,omitempty"`
	Date        string              `json:"date" yaml:"date"`
	Venue       *Venue              `json:"venue,omitempty" yaml:"venue,omitempty"`
	TicketTypes []TicketTypePayload `json:"ticket_types" yaml:"ticket_types"`
}

// TicketTypePayload is the provider shape of a ticket type
type TicketTypePayload struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Description  *string `json:"description,omitempty" yaml:"description,omitempty"`
	Price        *int    `json:"price" yaml:"price"`
	Available    *int    `json:"available" yaml:"available"`
	MaxPerPerson *int    `json:"max_per_person,omitempty" yaml:"max_per_person,omitempty"`
}

// DefaultMaxPerPerson is applied when a provider omits the per-person cap
const DefaultMaxPerPerson = 10

// ToEvent validates the payload and converts it into an Event.
// The catalog never holds an event that failed this check.
func (p *EventPayload) ToEvent() (*Event, error) {
	if err := validateEventID(p.ID); err != nil {
		return nil, err
	}

	if err := validateTitle(p.Title); err != nil {
		return nil, fmt.Errorf("event %s: %w", p.ID, err)
	}

	date, err := parseEventDate(p.Date)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", p.ID, err)
	}

	event := &Event{
		ID:    p.ID,
		Title: strings.TrimSpace(p.Title),
		Date:  date,
	}
	if p.Description != nil {
		event.Description = *p.Description
	}
	if p.Venue != nil {
		if p.Venue.Capacity < 0 {
			return nil, fmt.Errorf("event %s: venue capacity cannot be negative", p.ID)
		}
		event.Venue = *p.Venue
	}

	if len(p.TicketTypes) == 0 {
		return nil, fmt.Errorf("event %s: at least one ticket type is required", p.ID)
	}

	seen := make(map[string]bool, len(p.TicketTypes))
	for i := range p.TicketTypes {
		tt, err := p.TicketTypes[i].ToTicketType()
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", p.ID, err)
		}
		if seen[tt.ID] {
			return nil, fmt.Errorf("event %s: duplicate ticket type id %q", p.ID, tt.ID)
		}
		seen[tt.ID] = true
		event.TicketTypes = append(event.TicketTypes, tt)
	}

	return event, nil
}

// ToTicketType validates the payload and converts it into a TicketType
func (p *TicketTypePayload) ToTicketType() (*TicketType, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, errors.New("ticket type id is required")
	}

	if p.Price == nil {
		return nil, fmt.Errorf("ticket type %s: price is required", p.ID)
	}

	if p.Available == nil {
		return nil, fmt.Errorf("ticket type %s: available count is required", p.ID)
	}

	maxPerPerson := DefaultMaxPerPerson
	if p.MaxPerPerson != nil {
		maxPerPerson = *p.MaxPerPerson
	}

	tt := &TicketType{
		ID:           p.ID,
		Name:         strings.TrimSpace(p.Name),
		Price:        *p.Price,
		Available:    *p.Available,
		MaxPerPerson: maxPerPerson,
	}
	if p.Description != nil {
		tt.Description = *p.Description
	}

	if err := tt.Validate(); err != nil {
		return nil, fmt.Errorf("ticket type %s: %w", p.ID, err)
	}

	return tt, nil
}

// IsSoldOut returns true if every ticket type has no remaining tickets
func (e *Event) IsSoldOut() bool {
	for _, tt := range e.TicketTypes {
		if tt.Available > 0 {
			return false
		}
	}
	return true
}

// TicketType returns the ticket type with the given id
func (e *Event) TicketType(id string) (*TicketType, bool) {
	for _, tt := range e.TicketTypes {
		if tt.ID == id {
			return tt, true
		}
	}
	return nil, false
}

// TotalAvailable returns the number of unsold tickets across all ticket types
func (e *Event) TotalAvailable() int {
	total := 0
	for _, tt := range e.TicketTypes {
		total += tt.Available
	}
	return total
}

// Clone returns a deep copy of the event so callers cannot mutate catalog state
func (e *Event) Clone() *Event {
	clone := *e
	clone.TicketTypes = make([]*TicketType, len(e.TicketTypes))
	for i, tt := range e.TicketTypes {
		copied := *tt
		clone.TicketTypes[i] = &copied
	}
	return &clone
}

func validateEventID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("event id is required")
	}

	if len(id) > 100 {
		return errors.New("event id must be less than 100 characters")
	}

	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}

	if len(title) > 200 {
		return errors.New("title must be less than 200 characters")
	}

	return nil
}

// parseEventDate accepts RFC3339 timestamps and plain dates
func parseEventDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("date is required")
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
