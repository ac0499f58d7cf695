package repositories

import (
	"context"
	"testing"
	"time"

	"ticket-marketplace/internal/database"
	"ticket-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerStore is the behaviour shared by the SQL and in-memory ledgers
type ledgerStore interface {
	AppendAll(ctx context.Context, tickets []*models.PurchasedTicket) error
	GetByID(ctx context.Context, id string) (*models.PurchasedTicket, error)
	GetByQRCode(ctx context.Context, qrCode string) (*models.PurchasedTicket, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.PurchasedTicket, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.PurchasedTicket, error)
	MarkValidated(ctx context.Context, id string, at time.Time) (bool, error)
	SalesByEvent(ctx context.Context, eventID string) ([]models.TicketTypeSales, error)
}

func setupSQLiteLedger(t *testing.T) ledgerStore {
	t.Helper()
	db, err := database.NewConnection(database.Config{Driver: "sqlite3", URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	return NewLedgerRepository(db.DB)
}

func ledgerImplementations(t *testing.T) map[string]func(t *testing.T) ledgerStore {
	return map[string]func(t *testing.T) ledgerStore{
		"sqlite": setupSQLiteLedger,
		"memory": func(t *testing.T) ledgerStore { return NewMemoryLedgerRepository() },
	}
}

func sampleTickets(purchasedAt time.Time) []*models.PurchasedTicket {
	return []*models.PurchasedTicket{
		{ID: "t-1", OrderID: "o-1", SessionID: "s-1", EventID: "evt-1", TicketTypeID: "ga", Quantity: 2, UnitPrice: 2000, QRCode: "qr-1", PurchasedAt: purchasedAt},
		{ID: "t-2", OrderID: "o-1", SessionID: "s-1", EventID: "evt-1", TicketTypeID: "vip", Quantity: 1, UnitPrice: 8000, QRCode: "qr-2", PurchasedAt: purchasedAt.Add(time.Second)},
		{ID: "t-3", OrderID: "o-2", SessionID: "s-2", EventID: "evt-2", TicketTypeID: "ga", Quantity: 1, UnitPrice: 1500, QRCode: "qr-3", PurchasedAt: purchasedAt.Add(2 * time.Second)},
	}
}

func TestLedgerRepository_AppendAndRead(t *testing.T) {
	for name, setup := range ledgerImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := setup(t)
			now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

			require.NoError(t, repo.AppendAll(ctx, sampleTickets(now)))

			ticket, err := repo.GetByID(ctx, "t-1")
			require.NoError(t, err)
			assert.Equal(t, "evt-1", ticket.EventID)
			assert.Equal(t, 2, ticket.Quantity)
			assert.False(t, ticket.IsValidated)
			assert.Nil(t, ticket.ValidatedAt)
			assert.True(t, ticket.PurchasedAt.Equal(now))

			byQR, err := repo.GetByQRCode(ctx, "qr-2")
			require.NoError(t, err)
			assert.Equal(t, "t-2", byQR.ID)

			eventTickets, err := repo.ListByEvent(ctx, "evt-1")
			require.NoError(t, err)
			require.Len(t, eventTickets, 2)
			assert.Equal(t, "t-1", eventTickets[0].ID)

			mine, err := repo.ListBySession(ctx, "s-2")
			require.NoError(t, err)
			require.Len(t, mine, 1)
			assert.Equal(t, "t-3", mine[0].ID)

			_, err = repo.GetByID(ctx, "missing")
			assert.ErrorIs(t, err, models.ErrTicketNotFound)
		})
	}
}

func TestLedgerRepository_AppendAllIsAllOrNothing(t *testing.T) {
	for name, setup := range ledgerImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := setup(t)
			now := time.Now().UTC()

			require.NoError(t, repo.AppendAll(ctx, sampleTickets(now)[:1]))

			batch := []*models.PurchasedTicket{
				{ID: "t-9", OrderID: "o-9", SessionID: "s-9", EventID: "evt-9", TicketTypeID: "ga", Quantity: 1, UnitPrice: 100, QRCode: "qr-9", PurchasedAt: now},
				{ID: "t-10", OrderID: "o-9", SessionID: "s-9", EventID: "evt-9", TicketTypeID: "ga", Quantity: 1, UnitPrice: 100, QRCode: "qr-1", PurchasedAt: now},
			}
			assert.Error(t, repo.AppendAll(ctx, batch))

			_, err := repo.GetByID(ctx, "t-9")
			assert.ErrorIs(t, err, models.ErrTicketNotFound)

			tickets, err := repo.ListBySession(ctx, "s-9")
			require.NoError(t, err)
			assert.Empty(t, tickets)
		})
	}
}

func TestLedgerRepository_MarkValidatedIsIdempotent(t *testing.T) {
	for name, setup := range ledgerImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := setup(t)
			require.NoError(t, repo.AppendAll(ctx, sampleTickets(time.Now().UTC())))

			first := time.Date(2026, 6, 2, 19, 30, 0, 0, time.UTC)
			changed, err := repo.MarkValidated(ctx, "t-1", first)
			require.NoError(t, err)
			assert.True(t, changed)

			changed, err = repo.MarkValidated(ctx, "t-1", first.Add(time.Hour))
			require.NoError(t, err)
			assert.False(t, changed)

			ticket, err := repo.GetByID(ctx, "t-1")
			require.NoError(t, err)
			assert.True(t, ticket.IsValidated)
			require.NotNil(t, ticket.ValidatedAt)
			assert.True(t, ticket.ValidatedAt.Equal(first))

			_, err = repo.MarkValidated(ctx, "missing", first)
			assert.ErrorIs(t, err, models.ErrTicketNotFound)
		})
	}
}

func TestLedgerRepository_SalesByEvent(t *testing.T) {
	for name, setup := range ledgerImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := setup(t)
			require.NoError(t, repo.AppendAll(ctx, sampleTickets(time.Now().UTC())))
			_, err := repo.MarkValidated(ctx, "t-1", time.Now().UTC())
			require.NoError(t, err)

			sales, err := repo.SalesByEvent(ctx, "evt-1")
			require.NoError(t, err)
			require.Len(t, sales, 2)

			assert.Equal(t, models.TicketTypeSales{TicketTypeID: "ga", Records: 1, Sold: 2, Validated: 2, Revenue: 4000}, sales[0])
			assert.Equal(t, models.TicketTypeSales{TicketTypeID: "vip", Records: 1, Sold: 1, Validated: 0, Revenue: 8000}, sales[1])

			empty, err := repo.SalesByEvent(ctx, "evt-unknown")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}
