package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/contact-center/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	ExistsForTicket(ctx context.Context, ticketID, contentID string) (bool, error)
	// Create stores the metadata row. A second row for the same (ticket, content id)
	// yields ErrAttachmentExists.
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) ExistsForTicket(ctx context.Context, ticketID, contentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM attachments WHERE ticket_id=$1 AND content_id=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, ticketID, contentID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, message_id, content_id, provider_attachment_id, file_name, mime_type, size_bytes, url)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.MessageID,
		attachment.ContentID,
		attachment.ProviderAttachmentID,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.URL,
	).Scan(&attachment.ID, &attachment.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, constraintAttachmentContent) {
			return ErrAttachmentExists
		}
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, message_id, content_id, provider_attachment_id, file_name, mime_type, size_bytes, url, created_at
        FROM attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.MessageID,
			&attachment.ContentID,
			&attachment.ProviderAttachmentID,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.URL,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
