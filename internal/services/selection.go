package services

import (
	"context"
	"sync"
	"time"

	"ticket-marketplace/internal/models"

	"github.com/google/uuid"
)

// DefaultSelectionTTL is how long an idle selection view is kept
const DefaultSelectionTTL = 30 * time.Minute

// SelectionView is a read-only snapshot of one view's selection
type SelectionView struct {
	ID            string                 `json:"view_id"`
	EventID       string                 `json:"event_id"`
	Items         []models.SelectionItem `json:"items"`
	TotalQuantity int                    `json:"total_quantity"`
	TotalPrice    int                    `json:"total_price"`
}

type selectionView struct {
	mu         sync.Mutex
	selection  *models.Selection
	lastAccess time.Time
}

// SelectionService owns the selections of open event-detail views. Each view
// has its own selection; closing the view discards it.
type SelectionService struct {
	catalog CatalogServiceInterface
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	views map[string]*selectionView
}

// NewSelectionService creates a new selection service
func NewSelectionService(catalog CatalogServiceInterface, ttl time.Duration) *SelectionService {
	if ttl <= 0 {
		ttl = DefaultSelectionTTL
	}
	return &SelectionService{
		catalog: catalog,
		ttl:     ttl,
		now:     time.Now,
		views:   make(map[string]*selectionView),
	}
}

// Open starts an empty selection for the event
func (s *SelectionService) Open(eventID string) (*SelectionView, error) {
	lookup, err := s.catalog.Lookup(eventID)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	view := &selectionView{
		selection:  models.NewSelection(eventID, lookup),
		lastAccess: s.now(),
	}

	s.mu.Lock()
	s.views[id] = view
	s.mu.Unlock()

	return snapshot(id, view.selection), nil
}

// Get returns the current state of a view
func (s *SelectionService) Get(viewID string) (*SelectionView, error) {
	return s.with(viewID, func(*models.Selection) error { return nil })
}

// Increment adds one ticket of the given type, clamped to what may be selected
func (s *SelectionService) Increment(viewID, ticketTypeID string) (*SelectionView, error) {
	return s.with(viewID, func(sel *models.Selection) error {
		sel.Increment(ticketTypeID)
		return nil
	})
}

// Decrement removes one ticket of the given type
func (s *SelectionService) Decrement(viewID, ticketTypeID string) (*SelectionView, error) {
	return s.with(viewID, func(sel *models.Selection) error {
		sel.Decrement(ticketTypeID)
		return nil
	})
}

// Transfer hands the view's selection to fn and resets the view if fn succeeds
func (s *SelectionService) Transfer(viewID string, fn func(*models.Selection) error) (*SelectionView, error) {
	return s.with(viewID, func(sel *models.Selection) error {
		if sel.IsEmpty() {
			return models.ErrEmptySelection
		}
		if err := fn(sel); err != nil {
			return err
		}
		sel.Reset()
		return nil
	})
}

// Close discards the view and its selection
func (s *SelectionService) Close(viewID string) {
	s.mu.Lock()
	delete(s.views, viewID)
	s.mu.Unlock()
}

// SweepExpired drops views idle for longer than the TTL and returns how many
func (s *SelectionService) SweepExpired() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, view := range s.views {
		view.mu.Lock()
		expired := view.lastAccess.Before(cutoff)
		view.mu.Unlock()
		if expired {
			delete(s.views, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired views every interval until ctx is done
func (s *SelectionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired()
		}
	}
}

func (s *SelectionService) with(viewID string, fn func(*models.Selection) error) (*SelectionView, error) {
	s.mu.Lock()
	view, ok := s.views[viewID]
	s.mu.Unlock()
	if !ok {
		return nil, models.ErrViewNotFound
	}

	view.mu.Lock()
	now := s.now()
	if now.Sub(view.lastAccess) > s.ttl {
		view.mu.Unlock()
		s.Close(viewID)
		return nil, models.ErrViewNotFound
	}
	defer view.mu.Unlock()
	view.lastAccess = now

	if err := fn(view.selection); err != nil {
		return nil, err
	}
	return snapshot(viewID, view.selection), nil
}

func snapshot(id string, sel *models.Selection) *SelectionView {
	return &SelectionView{
		ID:            id,
		EventID:       sel.EventID,
		Items:         sel.Items(),
		TotalQuantity: sel.TotalQuantity(),
		TotalPrice:    sel.TotalPrice(),
	}
}
