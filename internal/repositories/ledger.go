package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ticket-marketplace/internal/models"

	"github.com/jmoiron/sqlx"
)

const purchasedTicketColumns = `id, order_id, session_id, event_id, ticket_type_id, quantity, unit_price,
	qr_code, purchased_at, is_validated, validated_at`

// LedgerRepository stores purchased tickets and their validation state
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// AppendAll inserts every ticket in a single transaction; either all rows land or none do
func (r *LedgerRepository) AppendAll(ctx context.Context, tickets []*models.PurchasedTicket) error {
	if len(tickets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO purchased_tickets (id, order_id, session_id, event_id, ticket_type_id, quantity, unit_price,
			qr_code, purchased_at, is_validated, validated_at)
		VALUES (:id, :order_id, :session_id, :event_id, :ticket_type_id, :quantity, :unit_price,
			:qr_code, :purchased_at, :is_validated, :validated_at)`

	for _, ticket := range tickets {
		if _, err := tx.NamedExecContext(ctx, query, ticket); err != nil {
			return fmt.Errorf("failed to insert ticket %s: %w", ticket.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tickets: %w", err)
	}

	return nil
}

// GetByID retrieves a purchased ticket by id
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*models.PurchasedTicket, error) {
	return r.getOne(ctx, "id", id)
}

// GetByQRCode retrieves a purchased ticket by its QR payload
func (r *LedgerRepository) GetByQRCode(ctx context.Context, qrCode string) (*models.PurchasedTicket, error) {
	return r.getOne(ctx, "qr_code", qrCode)
}

func (r *LedgerRepository) getOne(ctx context.Context, column, value string) (*models.PurchasedTicket, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM purchased_tickets WHERE %s = ?", purchasedTicketColumns, column))

	ticket := &models.PurchasedTicket{}
	if err := r.db.GetContext(ctx, ticket, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return ticket, nil
}

// ListByEvent returns the tickets of an event, oldest first
func (r *LedgerRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.PurchasedTicket, error) {
	return r.list(ctx, "event_id", eventID)
}

// ListBySession returns the tickets bought in a session, oldest first
func (r *LedgerRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.PurchasedTicket, error) {
	return r.list(ctx, "session_id", sessionID)
}

func (r *LedgerRepository) list(ctx context.Context, column, value string) ([]*models.PurchasedTicket, error) {
	query := r.db.Rebind(fmt.Sprintf(
		"SELECT %s FROM purchased_tickets WHERE %s = ? ORDER BY purchased_at ASC, id ASC",
		purchasedTicketColumns, column))

	tickets := []*models.PurchasedTicket{}
	if err := r.db.SelectContext(ctx, &tickets, query, value); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	return tickets, nil
}

// MarkValidated sets the validation pair once. It reports false when the
// ticket was already validated, leaving the stored timestamp unchanged.
func (r *LedgerRepository) MarkValidated(ctx context.Context, id string, at time.Time) (bool, error) {
	query := r.db.Rebind(`
		UPDATE purchased_tickets
		SET is_validated = ?, validated_at = ?
		WHERE id = ? AND is_validated = ?`)

	result, err := r.db.ExecContext(ctx, query, true, at, id, false)
	if err != nil {
		return false, fmt.Errorf("failed to validate ticket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		return true, nil
	}

	// Distinguish an already validated ticket from a missing one
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}

	return false, nil
}

// SalesByEvent aggregates sold and validated counts per ticket type
func (r *LedgerRepository) SalesByEvent(ctx context.Context, eventID string) ([]models.TicketTypeSales, error) {
	query := r.db.Rebind(`
		SELECT ticket_type_id,
			COUNT(*) AS records,
			SUM(quantity) AS sold,
			SUM(CASE WHEN is_validated THEN quantity ELSE 0 END) AS validated,
			SUM(quantity * unit_price) AS revenue
		FROM purchased_tickets
		WHERE event_id = ?
		GROUP BY ticket_type_id
		ORDER BY ticket_type_id`)

	sales := []models.TicketTypeSales{}
	if err := r.db.SelectContext(ctx, &sales, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	return sales, nil
}
