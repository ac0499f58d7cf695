package services

import (
	"context"
	"testing"

	"ticket-marketplace/internal/logging"
	"ticket-marketplace/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func testLogger() *logrus.Entry {
	return logrus.NewEntry(logging.Discard())
}

func ticketTypePayload(id string, price, available, maxPerPerson int) models.TicketTypePayload {
	return models.TicketTypePayload{
		ID:           id,
		Name:         id + " admission",
		Price:        intPtr(price),
		Available:    intPtr(available),
		MaxPerPerson: intPtr(maxPerPerson),
	}
}

func eventPayload(id string, types ...models.TicketTypePayload) models.EventPayload {
	return models.EventPayload{
		ID:          id,
		Title:       "Event " + id,
		Date:        "2026-09-01T20:00:00Z",
		Venue:       &models.Venue{Name: "Hall", City: "Nairobi", Capacity: 500},
		TicketTypes: types,
	}
}

func newTestCatalog(t *testing.T, payloads ...models.EventPayload) *CatalogService {
	t.Helper()
	catalog := NewCatalogService(NewStaticCatalogProvider(payloads...), testLogger())
	result, err := catalog.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, result.Rejected)
	return catalog
}
