package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ticket-marketplace/internal/models"
)

// MemoryLedgerRepository keeps purchased tickets in process memory.
// It is used when no database is configured and in tests.
type MemoryLedgerRepository struct {
	mu      sync.RWMutex
	tickets map[string]*models.PurchasedTicket
	byQR    map[string]string
	order   []string
}

// NewMemoryLedgerRepository creates an empty in-memory ledger
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		tickets: make(map[string]*models.PurchasedTicket),
		byQR:    make(map[string]string),
	}
}

// AppendAll stores every ticket or none of them
func (r *MemoryLedgerRepository) AppendAll(ctx context.Context, tickets []*models.PurchasedTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		if _, exists := r.tickets[t.ID]; exists || seen[t.ID] {
			return fmt.Errorf("duplicate ticket id %s", t.ID)
		}
		if _, exists := r.byQR[t.QRCode]; exists || seen["qr:"+t.QRCode] {
			return fmt.Errorf("duplicate QR code for ticket %s", t.ID)
		}
		seen[t.ID] = true
		seen["qr:"+t.QRCode] = true
	}

	for _, t := range tickets {
		copied := *t
		r.tickets[t.ID] = &copied
		r.byQR[t.QRCode] = t.ID
		r.order = append(r.order, t.ID)
	}

	return nil
}

// GetByID retrieves a purchased ticket by id
func (r *MemoryLedgerRepository) GetByID(ctx context.Context, id string) (*models.PurchasedTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	copied := *t
	return &copied, nil
}

// GetByQRCode retrieves a purchased ticket by its QR payload
func (r *MemoryLedgerRepository) GetByQRCode(ctx context.Context, qrCode string) (*models.PurchasedTicket, error) {
	r.mu.RLock()
	id, ok := r.byQR[qrCode]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	return r.GetByID(ctx, id)
}

// ListByEvent returns the tickets of an event in insertion order
func (r *MemoryLedgerRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.PurchasedTicket, error) {
	return r.filter(func(t *models.PurchasedTicket) bool { return t.EventID == eventID }), nil
}

// ListBySession returns the tickets bought in a session in insertion order
func (r *MemoryLedgerRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.PurchasedTicket, error) {
	return r.filter(func(t *models.PurchasedTicket) bool { return t.SessionID == sessionID }), nil
}

func (r *MemoryLedgerRepository) filter(keep func(*models.PurchasedTicket) bool) []*models.PurchasedTicket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*models.PurchasedTicket{}
	for _, id := range r.order {
		t := r.tickets[id]
		if keep(t) {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out
}

// MarkValidated sets the validation pair once
func (r *MemoryLedgerRepository) MarkValidated(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return false, models.ErrTicketNotFound
	}

	return t.MarkValidated(at), nil
}

// SalesByEvent aggregates sold and validated counts per ticket type
func (r *MemoryLedgerRepository) SalesByEvent(ctx context.Context, eventID string) ([]models.TicketTypeSales, error) {
	byType := make(map[string]*models.TicketTypeSales)
	for _, t := range r.filter(func(t *models.PurchasedTicket) bool { return t.EventID == eventID }) {
		s, ok := byType[t.TicketTypeID]
		if !ok {
			s = &models.TicketTypeSales{TicketTypeID: t.TicketTypeID}
			byType[t.TicketTypeID] = s
		}
		s.Records++
		s.Sold += t.Quantity
		s.Revenue += t.Subtotal()
		if t.IsValidated {
			s.Validated += t.Quantity
		}
	}

	sales := make([]models.TicketTypeSales, 0, len(byType))
	for _, s := range byType {
		sales = append(sales, *s)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].TicketTypeID < sales[j].TicketTypeID })

	return sales, nil
}
