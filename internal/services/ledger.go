package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-marketplace/internal/models"

	"github.com/sirupsen/logrus"
)

// ValidationResult is the outcome of a validation request
type ValidationResult struct {
	Ticket           *models.PurchasedTicket `json:"ticket"`
	AlreadyValidated bool                    `json:"already_validated"`
	CheckIn          CheckInStatus           `json:"check_in,omitempty"`
}

// EventSummary aggregates ledger records of one event for promoter views
type EventSummary struct {
	EventID     string                   `json:"event_id"`
	TicketTypes []models.TicketTypeSales `json:"ticket_types"`
	Sold        int                      `json:"sold"`
	Validated   int                      `json:"validated"`
	Revenue     int                      `json:"revenue"`
}

// LedgerService reads purchased tickets and validates them at the door
type LedgerService struct {
	repo      LedgerRepository
	codec     *QRCodec
	checkIn   CheckInClient
	publisher EventPublisher
	logger    *logrus.Entry
	now       func() time.Time
}

// NewLedgerService creates a new ledger service. checkIn and publisher may be nil.
func NewLedgerService(repo LedgerRepository, codec *QRCodec, checkIn CheckInClient, publisher EventPublisher, logger *logrus.Entry) *LedgerService {
	return &LedgerService{
		repo:      repo,
		codec:     codec,
		checkIn:   checkIn,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns a ticket by id
func (s *LedgerService) Get(ctx context.Context, ticketID string) (*models.PurchasedTicket, error) {
	return s.repo.GetByID(ctx, ticketID)
}

// GetForSession returns a ticket only if it was bought by the session
func (s *LedgerService) GetForSession(ctx context.Context, ticketID, sessionID string) (*models.PurchasedTicket, error) {
	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.SessionID != sessionID {
		return nil, models.ErrTicketNotFound
	}
	return ticket, nil
}

// ListByEvent returns every ticket sold for the event
func (s *LedgerService) ListByEvent(ctx context.Context, eventID string) ([]*models.PurchasedTicket, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

// ListBySession returns the session's tickets
func (s *LedgerService) ListBySession(ctx context.Context, sessionID string) ([]*models.PurchasedTicket, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

// EventSummary returns sold and validated counts per ticket type
func (s *LedgerService) EventSummary(ctx context.Context, eventID string) (*EventSummary, error) {
	sales, err := s.repo.SalesByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise event %s: %w", eventID, err)
	}

	summary := &EventSummary{EventID: eventID, TicketTypes: sales}
	for _, row := range sales {
		summary.Sold += row.Sold
		summary.Validated += row.Validated
		summary.Revenue += row.Revenue
	}
	return summary, nil
}

// Validate moves a ticket to validated. Validating twice succeeds and keeps
// the first timestamp.
func (s *LedgerService) Validate(ctx context.Context, ticketID string) (*ValidationResult, error) {
	if _, err := s.repo.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}

	result := &ValidationResult{}
	if s.checkIn != nil {
		status, err := s.checkIn.CheckIn(ctx, ticketID)
		if err != nil {
			return nil, fmt.Errorf("check-in backend failed: %w", err)
		}
		if status == CheckInNotFound {
			return nil, models.ErrTicketNotFound
		}
		result.CheckIn = status
	}

	first, err := s.repo.MarkValidated(ctx, ticketID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	result.Ticket = ticket
	result.AlreadyValidated = !first || result.CheckIn == CheckInAlreadyValidated

	log := s.logger.WithFields(logrus.Fields{"ticket_id": ticketID, "event_id": ticket.EventID})
	if !first {
		log.Debug("Ticket already validated")
		return result, nil
	}

	log.Info("Ticket validated")
	if s.publisher != nil {
		event := TicketValidated{
			Header:      NewEventHeader(),
			TicketID:    ticket.ID,
			EventID:     ticket.EventID,
			ValidatedAt: *ticket.ValidatedAt,
		}
		if err := s.publisher.Publish(ctx, TopicTicketValidated, event); err != nil {
			log.WithError(err).Warn("Failed to publish validation event")
		}
	}

	return result, nil
}

// ValidateByQRCode resolves a scanned credential to its ticket and validates it.
// Credentials signed by this service are verified before the lookup.
func (s *LedgerService) ValidateByQRCode(ctx context.Context, code string) (*ValidationResult, error) {
	if code == "" {
		return nil, models.ErrInvalidQRCode
	}

	var payload *QRPayload
	if s.codec.IsSigned(code) {
		decoded, err := s.codec.Decode(code)
		if err != nil {
			return nil, err
		}
		payload = decoded
	}

	ticket, err := s.repo.GetByQRCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrTicketNotFound) {
			return nil, fmt.Errorf("%w: no ticket for credential", models.ErrTicketNotFound)
		}
		return nil, err
	}

	if payload != nil && (payload.EventID != ticket.EventID || payload.TicketTypeID != ticket.TicketTypeID) {
		return nil, fmt.Errorf("%w: credential does not match ticket", models.ErrInvalidQRCode)
	}

	return s.Validate(ctx, ticket.ID)
}
