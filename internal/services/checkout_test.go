package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ticket-marketplace/internal/database"
	"ticket-marketplace/internal/models"
	"ticket-marketplace/internal/repositories"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCheckoutBackend struct {
	mock.Mock
}

func (m *mockCheckoutBackend) Submit(ctx context.Context, req *CheckoutRequest) (*CheckoutConfirmation, error) {
	args := m.Called(ctx, req)
	conf, _ := args.Get(0).(*CheckoutConfirmation)
	return conf, args.Error(1)
}

type failingLedger struct {
	*repositories.MemoryLedgerRepository
}

func (f *failingLedger) AppendAll(ctx context.Context, tickets []*models.PurchasedTicket) error {
	return errors.New("disk full")
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, payload)
	return nil
}

type checkoutFixture struct {
	catalog   *CatalogService
	cart      *CartService
	ledger    *repositories.MemoryLedgerRepository
	codec     *QRCodec
	publisher *recordingPublisher
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	catalog := newTestCatalog(t, eventPayload("evt-1",
		ticketTypePayload("ga", 20, 3, 2),
		ticketTypePayload("vip", 100, 5, 2),
	))
	return &checkoutFixture{
		catalog:   catalog,
		cart:      NewCartService(NewMemoryCartStore(), catalog, testLogger()),
		ledger:    repositories.NewMemoryLedgerRepository(),
		codec:     newTestCodec(t),
		publisher: &recordingPublisher{},
	}
}

func (f *checkoutFixture) service(backend CheckoutBackend, ledger LedgerRepository) *CheckoutService {
	if ledger == nil {
		ledger = f.ledger
	}
	return NewCheckoutService(f.cart, f.catalog, backend, ledger, f.codec, f.publisher, testLogger())
}

func (f *checkoutFixture) fillCart(t *testing.T, sessionID string) {
	t.Helper()
	_, err := f.cart.AddToCart(context.Background(), sessionID, "evt-1", "ga", 2)
	require.NoError(t, err)
	_, err = f.cart.AddToCart(context.Background(), sessionID, "evt-1", "vip", 1)
	require.NoError(t, err)
}

func TestCheckout_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	selections := NewSelectionService(f.catalog, 0)
	checkout := f.service(NewMockCheckoutBackend(), nil)

	view, err := selections.Open("evt-1")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		view, err = selections.Increment(view.ID, "ga")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, view.TotalQuantity)

	_, err = selections.Transfer(view.ID, func(sel *models.Selection) error {
		_, err := f.cart.AddSelection(ctx, "s-1", sel)
		return err
	})
	require.NoError(t, err)

	cart, err := f.cart.GetCart(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 40, cart.TotalPrice())

	result, err := checkout.Checkout(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, 40, result.Total)

	ticket := result.Tickets[0]
	assert.Equal(t, "evt-1", ticket.EventID)
	assert.Equal(t, "ga", ticket.TicketTypeID)
	assert.Equal(t, 2, ticket.Quantity)
	assert.Equal(t, models.TicketPending, ticket.State())

	payload, err := f.codec.Decode(ticket.QRCode)
	require.NoError(t, err)
	assert.Equal(t, "ga", payload.TicketTypeID)

	cart, err = f.cart.GetCart(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	stored, err := f.ledger.ListBySession(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	event, err := f.catalog.Event("evt-1")
	require.NoError(t, err)
	ga, _ := event.TicketType("ga")
	assert.Equal(t, 1, ga.Available)

	require.Len(t, f.publisher.topics, 1)
	assert.Equal(t, TopicTicketsPurchased, f.publisher.topics[0])
}

func TestCheckout_SuccessConvertsEveryEntry(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, "s-1")

	backend := &mockCheckoutBackend{}
	backend.On("Submit", mock.Anything, mock.MatchedBy(func(req *CheckoutRequest) bool {
		return len(req.Lines) == 2 && req.Total == 140 && req.SessionID == "s-1"
	})).Return(&CheckoutConfirmation{Success: true, Reference: "REF-1"}, nil).Once()

	result, err := f.service(backend, nil).Checkout(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, result.Tickets, 2)
	assert.Equal(t, "REF-1", result.Reference)

	cart, err := f.cart.GetCart(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	backend.AssertExpectations(t)
}

func TestCheckout_FailureLeavesCartUntouched(t *testing.T) {
	tests := []struct {
		name string
		conf *CheckoutConfirmation
		err  error
	}{
		{name: "backend error", err: errors.New("connection reset")},
		{name: "declined", conf: &CheckoutConfirmation{Success: false, Message: "card declined"}},
		{name: "nil confirmation"},
		{name: "missing reference", conf: &CheckoutConfirmation{Success: true}},
		{
			name: "incomplete tickets",
			conf: &CheckoutConfirmation{
				Success:   true,
				Reference: "REF-1",
				Tickets:   []ConfirmedTicket{{EventID: "evt-1", TicketTypeID: "ga", ID: "remote-1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newCheckoutFixture(t)
			f.fillCart(t, "s-1")

			backend := &mockCheckoutBackend{}
			backend.On("Submit", mock.Anything, mock.Anything).Return(tt.conf, tt.err).Once()

			_, err := f.service(backend, nil).Checkout(ctx, "s-1")
			assert.ErrorIs(t, err, models.ErrCheckoutFailed)

			cart, err := f.cart.GetCart(ctx, "s-1")
			require.NoError(t, err)
			assert.Len(t, cart.Entries, 2)

			tickets, err := f.ledger.ListBySession(ctx, "s-1")
			require.NoError(t, err)
			assert.Empty(t, tickets)

			event, err := f.catalog.Event("evt-1")
			require.NoError(t, err)
			assert.Equal(t, 8, event.TotalAvailable())
			assert.Empty(t, f.publisher.topics)
		})
	}
}

func TestCheckout_LedgerFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, "s-1")

	_, err := f.service(NewMockCheckoutBackend(), &failingLedger{f.ledger}).Checkout(ctx, "s-1")
	assert.ErrorIs(t, err, models.ErrCheckoutFailed)

	cart, err := f.cart.GetCart(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, cart.Entries, 2)

	result, err := f.service(NewMockCheckoutBackend(), nil).Checkout(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, result.Tickets, 2)
}

func TestCheckout_UsesBackendCredentials(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, "s-1")

	backend := &mockCheckoutBackend{}
	backend.On("Submit", mock.Anything, mock.Anything).Return(&CheckoutConfirmation{
		Success:   true,
		Reference: "REF-9",
		Tickets: []ConfirmedTicket{
			{EventID: "evt-1", TicketTypeID: "ga", ID: "remote-ga", QRCode: "REMOTE-QR-GA"},
			{EventID: "evt-1", TicketTypeID: "vip", ID: "remote-vip"},
		},
	}, nil).Once()

	result, err := f.service(backend, nil).Checkout(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, result.Tickets, 2)

	byType := map[string]*models.PurchasedTicket{}
	for _, ticket := range result.Tickets {
		byType[ticket.TicketTypeID] = ticket
	}
	assert.Equal(t, "remote-ga", byType["ga"].ID)
	assert.Equal(t, "REMOTE-QR-GA", byType["ga"].QRCode)
	assert.Equal(t, "remote-vip", byType["vip"].ID)
	assert.True(t, f.codec.IsSigned(byType["vip"].QRCode))
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	backend := &mockCheckoutBackend{}

	_, err := f.service(backend, nil).Checkout(context.Background(), "s-1")
	assert.ErrorIs(t, err, models.ErrEmptyCart)
	backend.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestCheckout_RejectsConcurrentCheckoutAndKeepsLaterEntries(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_, err := f.cart.AddToCart(ctx, "s-1", "evt-1", "ga", 2)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	backend := &mockCheckoutBackend{}
	backend.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&CheckoutConfirmation{Success: true, Reference: "REF-1"}, nil).Once()

	service := f.service(backend, nil)

	done := make(chan error, 1)
	go func() {
		_, err := service.Checkout(ctx, "s-1")
		done <- err
	}()
	<-started

	assert.True(t, service.InProgress("s-1"))
	_, err = service.Checkout(ctx, "s-1")
	assert.ErrorIs(t, err, models.ErrCheckoutInProgress)

	_, err = f.cart.AddToCart(ctx, "s-1", "evt-1", "vip", 1)
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, service.InProgress("s-1"))

	cart, err := f.cart.GetCart(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, cart.Entries, 1)
	assert.Equal(t, "vip", cart.Entries[0].TicketTypeID)

	backend.AssertExpectations(t)
}

// cancellingBackend charges the order and then loses the client connection
type cancellingBackend struct {
	cancel context.CancelFunc
	calls  int
}

func (b *cancellingBackend) Submit(ctx context.Context, req *CheckoutRequest) (*CheckoutConfirmation, error) {
	b.calls++
	b.cancel()
	return &CheckoutConfirmation{Success: true, Reference: "REF-1"}, nil
}

func TestCheckout_CompletesAfterClientDisconnect(t *testing.T) {
	db, err := database.NewConnection(database.Config{Driver: "sqlite3", URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	ledger := repositories.NewLedgerRepository(db.DB)

	f := newCheckoutFixture(t)
	store, _ := setupRedisCartStore(t)
	f.cart = NewCartService(store, f.catalog, testLogger())
	f.fillCart(t, "s-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := &cancellingBackend{cancel: cancel}
	service := f.service(backend, ledger)

	result, err := service.Checkout(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, result.Tickets, 2)
	require.Error(t, ctx.Err())

	tickets, err := ledger.ListBySession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	stored, err := store.Load(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())

	_, err = service.Checkout(context.Background(), "s-1")
	assert.ErrorIs(t, err, models.ErrEmptyCart)
	assert.Equal(t, 1, backend.calls)
}

func TestCheckout_CartCleanupFailureDoesNotAllowSecondCharge(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	store := &flakyCartStore{CartStore: NewMemoryCartStore()}
	f.cart = NewCartService(store, f.catalog, testLogger())
	f.fillCart(t, "s-1")

	backend := &mockCheckoutBackend{}
	backend.On("Submit", mock.Anything, mock.Anything).
		Return(&CheckoutConfirmation{Success: true, Reference: "REF-1"}, nil).Once()

	service := f.service(backend, nil)
	service.cleanupBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	store.setFailSaves(true)
	saves := store.saves

	result, err := service.Checkout(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, result.Tickets, 2)
	assert.Equal(t, saves+1+cleanupRetries, store.saves)

	cart, err := f.cart.GetCart(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	_, err = service.Checkout(ctx, "s-1")
	assert.ErrorIs(t, err, models.ErrEmptyCart)

	tickets, err := f.ledger.ListBySession(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
	backend.AssertExpectations(t)
}

func TestCheckout_KeepsEntryRewrittenDuringCheckout(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, "s-1")

	backend := &mockCheckoutBackend{}
	backend.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			_, err := f.cart.AddToCart(ctx, "s-1", "evt-1", "ga", 1)
			require.NoError(t, err)
		}).
		Return(&CheckoutConfirmation{Success: true, Reference: "REF-1"}, nil).Once()

	result, err := f.service(backend, nil).Checkout(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, result.Tickets, 2)

	cart, err := f.cart.GetCart(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, cart.Entries, 1)
	assert.Equal(t, "ga", cart.Entries[0].TicketTypeID)
	assert.Equal(t, 1, cart.Entries[0].Quantity)
}
