package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/contact-center/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// CreateWithFirstMessage inserts the ticket and its first message in one
	// transaction. It returns ErrActiveThreadExists or ErrAlreadyProcessed when a
	// concurrent writer got there first; nothing is persisted in that case.
	CreateWithFirstMessage(ctx context.Context, ticket *domain.Ticket, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetActiveByThreadID(ctx context.Context, threadID string) (*domain.Ticket, error)
	ListByStates(ctx context.Context, states ...domain.AssistanceState) ([]domain.Ticket, error)
	// Assign sets the owner and moves the ticket to OPEN, but only while the ticket is
	// still OPEN or UNASSIGNED. It reports whether a row changed.
	Assign(ctx context.Context, ticketID string, advisor domain.Advisor) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_code, citizen_email, advisor_user_id, advisor_inbox_id,
               assistance_state, provider_thread_id, created_at, updated_at, closed_at`

func (r *ticketRepository) CreateWithFirstMessage(ctx context.Context, ticket *domain.Ticket, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ticket tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
        INSERT INTO tickets (ticket_code, citizen_email, advisor_user_id, advisor_inbox_id, assistance_state, provider_thread_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		ticket.TicketCode,
		ticket.CitizenEmail,
		ticket.AdvisorUserID,
		ticket.AdvisorInboxID,
		ticket.AssistanceState,
		ticket.ProviderThreadID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, constraintActiveThread) {
			return ErrActiveThreadExists
		}
		return fmt.Errorf("insert ticket: %w", err)
	}

	msg.TicketID = ticket.ID
	if err := insertMessage(ctx, tx, msg); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ticket tx: %w", err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetActiveByThreadID(ctx context.Context, threadID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE provider_thread_id=$1 AND assistance_state IN ('UNASSIGNED','OPEN','PENDING')
        ORDER BY created_at DESC
        LIMIT 1`
	return scanTicket(r.pool.QueryRow(ctx, query, threadID))
}

func (r *ticketRepository) ListByStates(ctx context.Context, states ...domain.AssistanceState) ([]domain.Ticket, error) {
	if len(states) == 0 {
		return nil, nil
	}
	args := make([]any, len(states))
	placeholders := make([]string, len(states))
	for i, state := range states {
		args[i] = state
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE assistance_state IN (%s) ORDER BY created_at ASC, id ASC`,
		ticketColumns, strings.Join(placeholders, ","))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Assign(ctx context.Context, ticketID string, advisor domain.Advisor) (bool, error) {
	const query = `
        UPDATE tickets
        SET advisor_user_id=$1, advisor_inbox_id=$2, assistance_state='OPEN', updated_at=NOW()
        WHERE id=$3 AND assistance_state IN ('OPEN','UNASSIGNED')`
	cmd, err := r.pool.Exec(ctx, query, advisor.UserID, nullable(advisor.InboxID), ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketCode,
		&ticket.CitizenEmail,
		&ticket.AdvisorUserID,
		&ticket.AdvisorInboxID,
		&ticket.AssistanceState,
		&ticket.ProviderThreadID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
