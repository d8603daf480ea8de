package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/contact-center/internal/domain"
)

// MessageRepository manages the append-only message log of tickets.
type MessageRepository interface {
	// Create appends a message. A duplicate header id yields ErrAlreadyProcessed.
	Create(ctx context.Context, msg *domain.Message) error
	GetByHeaderID(ctx context.Context, headerID string) (*domain.Message, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

// rowQuerier is satisfied by both the pool and a transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const messageColumns = `id, ticket_id, provider_message_id, header_message_id, in_reply_to_header_id,
               subject, content, from_address, to_addresses, sent_at, message_type, delivery_state,
               is_favorite, is_read, created_at`

func insertMessage(ctx context.Context, q rowQuerier, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, provider_message_id, header_message_id, in_reply_to_header_id,
            subject, content, from_address, to_addresses, sent_at, message_type, delivery_state, is_favorite, is_read)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at`
	to := msg.To
	if to == nil {
		to = []string{}
	}
	err := q.QueryRow(ctx, query,
		msg.TicketID,
		msg.ProviderMessageID,
		msg.HeaderMessageID,
		msg.InReplyToHeaderID,
		msg.Subject,
		msg.Content,
		msg.From,
		to,
		msg.Date,
		msg.Type,
		msg.DeliveryState,
		msg.IsFavorite,
		msg.IsRead,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, constraintMessageHeader) {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	return insertMessage(ctx, r.pool, msg)
}

func (r *messageRepository) GetByHeaderID(ctx context.Context, headerID string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE header_message_id=$1`
	return scanMessage(r.pool.QueryRow(ctx, query, headerID))
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE ticket_id=$1 ORDER BY created_at ASC, sent_at ASC, header_message_id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *msg)
	}
	return result, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	if err := row.Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.ProviderMessageID,
		&msg.HeaderMessageID,
		&msg.InReplyToHeaderID,
		&msg.Subject,
		&msg.Content,
		&msg.From,
		&msg.To,
		&msg.Date,
		&msg.Type,
		&msg.DeliveryState,
		&msg.IsFavorite,
		&msg.IsRead,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}
