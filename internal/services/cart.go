package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ticket-marketplace/internal/models"

	"github.com/sirupsen/logrus"
)

// CartService manages the single logical cart of each session.
// Mutations for one session run one at a time.
type CartService struct {
	store   CartStore
	catalog CatalogServiceInterface
	logger  *logrus.Entry
	locks   *sessionLocks

	// entries already turned into tickets whose removal has not been saved yet
	mu        sync.Mutex
	converted map[string][]models.CartEntry
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, catalog CatalogServiceInterface, logger *logrus.Entry) *CartService {
	return &CartService{
		store:     store,
		catalog:   catalog,
		logger:    logger,
		locks:     newSessionLocks(),
		converted: make(map[string][]models.CartEntry),
	}
}

// GetCart returns the session's cart
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	return s.load(ctx, sessionID)
}

// AddSelection copies every selected ticket type into the cart with the
// catalog price at the time of the call. Existing entries are overwritten.
func (s *CartService) AddSelection(ctx context.Context, sessionID string, selection *models.Selection) (*models.Cart, error) {
	if selection == nil || selection.IsEmpty() {
		return nil, models.ErrEmptySelection
	}

	lookup, err := s.catalog.Lookup(selection.EventID)
	if err != nil {
		return nil, err
	}

	items := selection.Items()
	prices := make(map[string]int, len(items))
	for _, item := range items {
		tt, ok := lookup(item.TicketTypeID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrTicketTypeNotFound, item.TicketTypeID)
		}
		if item.Quantity > tt.MaxSelectable() {
			return nil, fmt.Errorf("%w: at most %d tickets of %s can be selected", models.ErrCapacityExceeded, tt.MaxSelectable(), tt.Name)
		}
		prices[item.TicketTypeID] = tt.Price
	}

	cart, err := s.update(ctx, sessionID, func(cart *models.Cart) error {
		for _, item := range items {
			cart.Add(selection.EventID, item.TicketTypeID, item.Quantity, prices[item.TicketTypeID])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"event_id":   selection.EventID,
		"items":      len(items),
	}).Debug("Selection added to cart")

	return cart, nil
}

// AddToCart sets the quantity of one ticket type in the cart. Unlike a
// selection, an explicit quantity over the per-person or available limit is an error.
func (s *CartService) AddToCart(ctx context.Context, sessionID, eventID, ticketTypeID string, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than 0", models.ErrInvalidInput)
	}

	lookup, err := s.catalog.Lookup(eventID)
	if err != nil {
		return nil, err
	}

	tt, ok := lookup(ticketTypeID)
	if !ok {
		return nil, models.ErrTicketTypeNotFound
	}

	if quantity > tt.MaxSelectable() {
		return nil, fmt.Errorf("%w: at most %d tickets of %s can be selected", models.ErrCapacityExceeded, tt.MaxSelectable(), tt.Name)
	}

	return s.update(ctx, sessionID, func(cart *models.Cart) error {
		cart.Add(eventID, ticketTypeID, quantity, tt.Price)
		return nil
	})
}

// RemoveFromCart removes one entry; removing an absent entry is not an error
func (s *CartService) RemoveFromCart(ctx context.Context, sessionID, eventID, ticketTypeID string) (*models.Cart, error) {
	return s.update(ctx, sessionID, func(cart *models.Cart) error {
		cart.Remove(eventID, ticketTypeID)
		return nil
	})
}

// ConvertEntries removes entries that were turned into tickets, as long as
// they still match the purchased quantity and price. Until the removal is
// saved the entries stay hidden from every read of the session's cart.
func (s *CartService) ConvertEntries(ctx context.Context, sessionID string, entries []models.CartEntry) error {
	s.mu.Lock()
	pending := s.converted[sessionID]
	for _, e := range entries {
		if !slices.Contains(pending, e) {
			pending = append(pending, e)
		}
	}
	s.converted[sessionID] = pending
	s.mu.Unlock()

	_, err := s.update(ctx, sessionID, func(*models.Cart) error { return nil })
	return err
}

// PendingConversions reports how many converted entries still wait to be removed from the store
func (s *CartService) PendingConversions(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.converted[sessionID])
}

// Clear empties the session's cart
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	s.forgetConverted(sessionID)
	return nil
}

func (s *CartService) update(ctx context.Context, sessionID string, fn func(*models.Cart) error) (*models.Cart, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	s.forgetConverted(sessionID)
	return cart, nil
}

// load reads the stored cart without the entries already converted to tickets.
// Callers hold the session lock.
func (s *CartService) load(ctx context.Context, sessionID string) (*models.Cart, error) {
	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	converted := s.converted[sessionID]
	s.mu.Unlock()

	if len(converted) > 0 {
		cart.RemoveConverted(converted)
	}
	return cart, nil
}

func (s *CartService) forgetConverted(sessionID string) {
	s.mu.Lock()
	delete(s.converted, sessionID)
	s.mu.Unlock()
}

// sessionLocks hands out one mutex per session and forgets it once unused
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		l.locks[sessionID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
