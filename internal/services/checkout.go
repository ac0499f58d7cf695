package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticket-marketplace/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CheckoutResult is returned for a completed checkout
type CheckoutResult struct {
	OrderID   string                    `json:"order_id"`
	Reference string                    `json:"reference"`
	Total     int                       `json:"total"`
	Tickets   []*models.PurchasedTicket `json:"tickets"`
}

// CheckoutService converts a session's cart into purchased tickets.
// Either every cart entry becomes a ticket or nothing changes.
type CheckoutService struct {
	cart      *CartService
	inventory CatalogInventory
	backend   CheckoutBackend
	ledger    LedgerRepository
	codec     *QRCodec
	publisher EventPublisher
	logger    *logrus.Entry
	now       func() time.Time

	// cleanupBackOff paces retries of the cart cleanup after tickets are recorded
	cleanupBackOff func() backoff.BackOff

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewCheckoutService creates a new checkout service. publisher may be nil.
func NewCheckoutService(
	cart *CartService,
	inventory CatalogInventory,
	backend CheckoutBackend,
	ledger LedgerRepository,
	codec *QRCodec,
	publisher EventPublisher,
	logger *logrus.Entry,
) *CheckoutService {
	return &CheckoutService{
		cart:      cart,
		inventory: inventory,
		backend:   backend,
		ledger:    ledger,
		codec:     codec,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		inFlight:  make(map[string]bool),

		cleanupBackOff: defaultCleanupBackOff,
	}
}

// InProgress reports whether a checkout is running for the session
func (s *CheckoutService) InProgress(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[sessionID]
}

// Checkout submits the session's cart and records the resulting tickets.
// Failures wrap models.ErrCheckoutFailed and leave the cart untouched.
// Once started, a checkout runs to completion even if ctx is cancelled.
func (s *CheckoutService) Checkout(ctx context.Context, sessionID string) (*CheckoutResult, error) {
	if !s.begin(sessionID) {
		return nil, models.ErrCheckoutInProgress
	}
	defer s.end(sessionID)

	ctx = context.WithoutCancel(ctx)

	cart, err := s.cart.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCheckoutFailed, err)
	}
	if cart.IsEmpty() {
		return nil, models.ErrEmptyCart
	}

	entries := cart.Snapshot()
	req := &CheckoutRequest{
		OrderID:   uuid.New().String(),
		SessionID: sessionID,
		Lines:     make([]CheckoutLine, len(entries)),
		Total:     cart.TotalPrice(),
	}
	for i, e := range entries {
		req.Lines[i] = CheckoutLine{
			EventID:      e.EventID,
			TicketTypeID: e.TicketTypeID,
			Quantity:     e.Quantity,
			UnitPrice:    e.Price,
		}
	}

	log := s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"order_id":   req.OrderID,
		"lines":      len(req.Lines),
		"total":      req.Total,
	})

	conf, err := s.backend.Submit(ctx, req)
	if err != nil {
		log.WithError(err).Warn("Checkout backend call failed")
		return nil, fmt.Errorf("%w: %w", models.ErrCheckoutFailed, err)
	}
	if err := validateConfirmation(req, conf); err != nil {
		log.WithError(err).Warn("Checkout rejected")
		return nil, fmt.Errorf("%w: %w", models.ErrCheckoutFailed, err)
	}

	tickets, err := s.buildTickets(req, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCheckoutFailed, err)
	}

	if err := s.ledger.AppendAll(ctx, tickets); err != nil {
		log.WithError(err).Error("Failed to record purchased tickets")
		return nil, fmt.Errorf("%w: %w", models.ErrCheckoutFailed, err)
	}

	removeConverted := func() error {
		return s.cart.ConvertEntries(ctx, sessionID, entries)
	}
	if err := backoff.Retry(removeConverted, backoff.WithMaxRetries(s.cleanupBackOff(), cleanupRetries)); err != nil {
		// The entries stay hidden until a later cart write succeeds.
		log.WithError(err).Error("Tickets recorded but cart entries could not be removed from the store")
	}

	s.inventory.ApplyPurchase(req.Lines)

	result := &CheckoutResult{
		OrderID:   req.OrderID,
		Reference: conf.Reference,
		Total:     req.Total,
		Tickets:   tickets,
	}
	s.publishPurchase(ctx, req, result)

	log.WithField("reference", conf.Reference).Info("Checkout completed")
	return result, nil
}

const cleanupRetries = 3

func defaultCleanupBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}

func (s *CheckoutService) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *CheckoutService) end(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}

// validateConfirmation checks the backend accepted the order and, when it
// issued tickets, that it issued one for every line.
func validateConfirmation(req *CheckoutRequest, conf *CheckoutConfirmation) error {
	if conf == nil {
		return fmt.Errorf("empty confirmation")
	}
	if !conf.Success {
		if conf.Message != "" {
			return fmt.Errorf("backend declined order: %s", conf.Message)
		}
		return fmt.Errorf("backend declined order")
	}
	if conf.Reference == "" {
		return fmt.Errorf("incomplete confirmation: missing reference")
	}
	if len(conf.Tickets) == 0 {
		return nil
	}

	issued := make(map[models.CartKey]bool, len(conf.Tickets))
	for _, t := range conf.Tickets {
		issued[models.CartKey{EventID: t.EventID, TicketTypeID: t.TicketTypeID}] = true
	}
	for _, line := range req.Lines {
		if !issued[models.CartKey{EventID: line.EventID, TicketTypeID: line.TicketTypeID}] {
			return fmt.Errorf("incomplete confirmation: no ticket for %s/%s", line.EventID, line.TicketTypeID)
		}
	}
	return nil
}

// buildTickets makes one PurchasedTicket per line, preferring backend-issued
// ids and QR payloads.
func (s *CheckoutService) buildTickets(req *CheckoutRequest, conf *CheckoutConfirmation) ([]*models.PurchasedTicket, error) {
	issued := make(map[models.CartKey]ConfirmedTicket, len(conf.Tickets))
	for _, t := range conf.Tickets {
		issued[models.CartKey{EventID: t.EventID, TicketTypeID: t.TicketTypeID}] = t
	}

	purchasedAt := s.now().UTC()
	tickets := make([]*models.PurchasedTicket, 0, len(req.Lines))

	for _, line := range req.Lines {
		confirmed := issued[models.CartKey{EventID: line.EventID, TicketTypeID: line.TicketTypeID}]

		id := confirmed.ID
		if id == "" {
			id = uuid.New().String()
		}

		qr := confirmed.QRCode
		if qr == "" {
			generated, err := s.codec.Generate(line.EventID, line.TicketTypeID)
			if err != nil {
				return nil, fmt.Errorf("failed to generate QR code: %w", err)
			}
			qr = generated
		}

		tickets = append(tickets, &models.PurchasedTicket{
			ID:           id,
			OrderID:      req.OrderID,
			SessionID:    req.SessionID,
			EventID:      line.EventID,
			TicketTypeID: line.TicketTypeID,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			QRCode:       qr,
			PurchasedAt:  purchasedAt,
		})
	}

	return tickets, nil
}

func (s *CheckoutService) publishPurchase(ctx context.Context, req *CheckoutRequest, result *CheckoutResult) {
	if s.publisher == nil {
		return
	}

	ids := make([]string, len(result.Tickets))
	for i, t := range result.Tickets {
		ids[i] = t.ID
	}

	event := TicketsPurchased{
		Header:    NewEventHeader(),
		OrderID:   result.OrderID,
		Reference: result.Reference,
		SessionID: req.SessionID,
		Lines:     req.Lines,
		TicketIDs: ids,
		Total:     result.Total,
	}
	if err := s.publisher.Publish(ctx, TopicTicketsPurchased, event); err != nil {
		s.logger.WithError(err).WithField("order_id", result.OrderID).Warn("Failed to publish purchase event")
	}
}
