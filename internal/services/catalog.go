package services

import (
	"context"
	"fmt"
	"sync"

	"ticket-marketplace/internal/models"

	"github.com/sirupsen/logrus"
)

// RecordError describes a catalog record rejected at ingestion
type RecordError struct {
	Index   int
	EventID string
	Err     error
}

func (e RecordError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.EventID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// LoadResult summarises a catalog load
type LoadResult struct {
	Loaded   int
	Rejected []RecordError
}

// CatalogService holds the local snapshot of events and their ticket types
type CatalogService struct {
	provider CatalogProvider
	logger   *logrus.Entry

	mu     sync.RWMutex
	events map[string]*models.Event
	order  []string
}

// NewCatalogService creates a new catalog backed by provider
func NewCatalogService(provider CatalogProvider, logger *logrus.Entry) *CatalogService {
	return &CatalogService{
		provider: provider,
		logger:   logger,
		events:   make(map[string]*models.Event),
	}
}

// Load replaces the snapshot with the provider's events. Records that fail
// validation are left out and reported in the result.
func (s *CatalogService) Load(ctx context.Context) (*LoadResult, error) {
	payloads, err := s.provider.LoadEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	result := &LoadResult{}
	events := make(map[string]*models.Event, len(payloads))
	order := make([]string, 0, len(payloads))

	for i := range payloads {
		event, err := payloads[i].ToEvent()
		if err != nil {
			result.Rejected = append(result.Rejected, RecordError{Index: i, EventID: payloads[i].ID, Err: err})
			continue
		}
		if _, exists := events[event.ID]; exists {
			result.Rejected = append(result.Rejected, RecordError{
				Index:   i,
				EventID: event.ID,
				Err:     fmt.Errorf("%w: duplicate event id", models.ErrInvalidInput),
			})
			continue
		}
		events[event.ID] = event
		order = append(order, event.ID)
	}

	s.mu.Lock()
	s.events = events
	s.order = order
	s.mu.Unlock()

	result.Loaded = len(order)
	for _, rejected := range result.Rejected {
		s.logger.WithField("record", rejected.Index).WithError(rejected.Err).Warn("Rejected catalog record")
	}
	s.logger.WithFields(logrus.Fields{
		"loaded":   result.Loaded,
		"rejected": len(result.Rejected),
	}).Info("Catalog loaded")

	return result, nil
}

// List returns copies of all events in provider order
func (s *CatalogService) List() []*models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*models.Event, 0, len(s.order))
	for _, id := range s.order {
		events = append(events, s.events[id].Clone())
	}
	return events
}

// Event returns a copy of the event
func (s *CatalogService) Event(eventID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return event.Clone(), nil
}

// Lookup returns a resolver reading the live state of the event's ticket types
func (s *CatalogService) Lookup(eventID string) (models.TicketTypeLookup, error) {
	s.mu.RLock()
	_, ok := s.events[eventID]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrEventNotFound
	}

	return func(ticketTypeID string) (*models.TicketType, bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		event, ok := s.events[eventID]
		if !ok {
			return nil, false
		}
		tt, ok := event.TicketType(ticketTypeID)
		if !ok {
			return nil, false
		}
		copied := *tt
		return &copied, true
	}, nil
}

// ApplyPurchase lowers local availability by the purchased quantities.
// Availability never goes below zero and is never raised here.
func (s *CatalogService) ApplyPurchase(lines []CheckoutLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range lines {
		event, ok := s.events[line.EventID]
		if !ok {
			continue
		}
		if tt, ok := event.TicketType(line.TicketTypeID); ok {
			tt.Consume(line.Quantity)
		}
	}
}

// StaticCatalogProvider serves a fixed set of payloads
type StaticCatalogProvider struct {
	Payloads []models.EventPayload
}

// NewStaticCatalogProvider creates a provider over payloads
func NewStaticCatalogProvider(payloads ...models.EventPayload) *StaticCatalogProvider {
	return &StaticCatalogProvider{Payloads: payloads}
}

// LoadEvents returns a copy of the configured payloads
func (p *StaticCatalogProvider) LoadEvents(ctx context.Context) ([]models.EventPayload, error) {
	out := make([]models.EventPayload, len(p.Payloads))
	copy(out, p.Payloads)
	return out, nil
}
