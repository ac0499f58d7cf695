package models

import "sort"

// TicketTypeLookup resolves the live state of a ticket type by id
type TicketTypeLookup func(ticketTypeID string) (*TicketType, bool)

// SelectionItem is one selected ticket type and its quantity
type SelectionItem struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

// Selection tracks how many of each ticket type a user intends to buy for a
// single event before committing to the cart. Quantities are always positive;
// a ticket type at zero is absent from the map.
type Selection struct {
	EventID    string
	quantities map[string]int
	lookup     TicketTypeLookup
}

// NewSelection creates an empty selection resolving ticket types through lookup
func NewSelection(eventID string, lookup TicketTypeLookup) *Selection {
	return &Selection{
		EventID:    eventID,
		quantities: make(map[string]int),
		lookup:     lookup,
	}
}

// Increment raises the quantity by one, clamped to min(maxPerPerson, available).
// Unknown ticket types and requests past the clamp are silent no-ops.
func (s *Selection) Increment(ticketTypeID string) {
	tt, ok := s.lookup(ticketTypeID)
	if !ok {
		return
	}

	current := s.quantities[ticketTypeID]
	if current+1 > tt.MaxSelectable() {
		return
	}

	s.quantities[ticketTypeID] = current + 1
}

// Decrement lowers the quantity by one and drops the entry when it reaches zero
func (s *Selection) Decrement(ticketTypeID string) {
	current, ok := s.quantities[ticketTypeID]
	if !ok {
		return
	}

	if current <= 1 {
		delete(s.quantities, ticketTypeID)
		return
	}

	s.quantities[ticketTypeID] = current - 1
}

// Quantity returns the selected quantity for a ticket type, zero if absent
func (s *Selection) Quantity(ticketTypeID string) int {
	return s.quantities[ticketTypeID]
}

// TotalQuantity sums all selected quantities
func (s *Selection) TotalQuantity() int {
	total := 0
	for _, q := range s.quantities {
		total += q
	}
	return total
}

// TotalPrice sums quantity times the current price of each ticket type.
// Prices are looked up on every call.
func (s *Selection) TotalPrice() int {
	total := 0
	for id, q := range s.quantities {
		tt, ok := s.lookup(id)
		if !ok {
			continue
		}
		total += q * tt.Price
	}
	return total
}

// IsEmpty returns true when nothing is selected
func (s *Selection) IsEmpty() bool {
	return len(s.quantities) == 0
}

// Items returns the selected ticket types ordered by id
func (s *Selection) Items() []SelectionItem {
	items := make([]SelectionItem, 0, len(s.quantities))
	for id, q := range s.quantities {
		items = append(items, SelectionItem{TicketTypeID: id, Quantity: q})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].TicketTypeID < items[j].TicketTypeID
	})
	return items
}

// Reset clears every selected quantity
func (s *Selection) Reset() {
	s.quantities = make(map[string]int)
}
