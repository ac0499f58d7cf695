package models

// CartKey identifies a cart entry
type CartKey struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
}

// CartEntry represents a committed-intent line item in the cart
type CartEntry struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
	Price        int    `json:"price"` // unit price in cents, snapshotted at add time
}

// Cart is the per-session collection of cart entries, kept in insertion order
type Cart struct {
	Entries []CartEntry `json:"entries"`
}

// NewCart returns an empty cart
func NewCart() *Cart {
	return &Cart{}
}

// Key returns the cart key of the entry
func (e CartEntry) Key() CartKey {
	return CartKey{EventID: e.EventID, TicketTypeID: e.TicketTypeID}
}

// Subtotal returns quantity times the snapshotted price
func (e CartEntry) Subtotal() int {
	return e.Quantity * e.Price
}

// Add upserts an entry. An existing entry for the same event and ticket type
// has its quantity and price overwritten rather than accumulated.
func (c *Cart) Add(eventID, ticketTypeID string, quantity, price int) {
	for i := range c.Entries {
		if c.Entries[i].EventID == eventID && c.Entries[i].TicketTypeID == ticketTypeID {
			c.Entries[i].Quantity = quantity
			c.Entries[i].Price = price
			return
		}
	}

	c.Entries = append(c.Entries, CartEntry{
		EventID:      eventID,
		TicketTypeID: ticketTypeID,
		Quantity:     quantity,
		Price:        price,
	})
}

// Remove deletes the entry for the key; absent keys are ignored
func (c *Cart) Remove(eventID, ticketTypeID string) {
	for i := range c.Entries {
		if c.Entries[i].EventID == eventID && c.Entries[i].TicketTypeID == ticketTypeID {
			c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
			return
		}
	}
}

// RemoveConverted deletes entries that still equal one of converted.
// An entry whose quantity or price changed since the snapshot is kept.
func (c *Cart) RemoveConverted(converted []CartEntry) {
	drop := make(map[CartEntry]bool, len(converted))
	for _, e := range converted {
		drop[e] = true
	}

	kept := c.Entries[:0]
	for _, e := range c.Entries {
		if !drop[e] {
			kept = append(kept, e)
		}
	}
	c.Entries = kept
}

// Entry returns the entry for the key
func (c *Cart) Entry(eventID, ticketTypeID string) (CartEntry, bool) {
	for _, e := range c.Entries {
		if e.EventID == eventID && e.TicketTypeID == ticketTypeID {
			return e, true
		}
	}
	return CartEntry{}, false
}

// TotalPrice sums quantity times snapshotted price over all entries
func (c *Cart) TotalPrice() int {
	total := 0
	for _, e := range c.Entries {
		total += e.Subtotal()
	}
	return total
}

// TotalQuantity sums the quantities of all entries
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, e := range c.Entries {
		total += e.Quantity
	}
	return total
}

// IsEmpty returns true when the cart has no entries
func (c *Cart) IsEmpty() bool {
	return len(c.Entries) == 0
}

// Snapshot returns a copy of the entries that is safe to hold across calls
func (c *Cart) Snapshot() []CartEntry {
	out := make([]CartEntry, len(c.Entries))
	copy(out, c.Entries)
	return out
}
