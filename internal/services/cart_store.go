package services

import (
	"context"
	"sync"

	"ticket-marketplace/internal/models"
)

// MemoryCartStore keeps carts in process memory
type MemoryCartStore struct {
	mu    sync.RWMutex
	carts map[string][]models.CartEntry
}

// NewMemoryCartStore creates an empty in-memory cart store
func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string][]models.CartEntry)}
}

// Load returns a copy of the session's cart
func (s *MemoryCartStore) Load(ctx context.Context, sessionID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart := models.NewCart()
	if entries, ok := s.carts[sessionID]; ok {
		cart.Entries = append(cart.Entries, entries...)
	}
	return cart, nil
}

// Save stores a copy of cart for the session
func (s *MemoryCartStore) Save(ctx context.Context, sessionID string, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart.IsEmpty() {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = cart.Snapshot()
	return nil
}

// Delete drops the session's cart
func (s *MemoryCartStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.carts, sessionID)
	s.mu.Unlock()
	return nil
}
