package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAlreadyProcessed reports that a message with the same header id is stored.
	ErrAlreadyProcessed = errors.New("message already processed")
	// ErrActiveThreadExists reports that another active ticket already owns the thread.
	ErrActiveThreadExists = errors.New("active ticket already exists for thread")
	// ErrAttachmentExists reports that the ticket already holds an attachment with the content id.
	ErrAttachmentExists = errors.New("attachment already stored for ticket")
)

const (
	uniqueViolation = "23505"

	constraintMessageHeader     = "messages_header_message_id_key"
	constraintActiveThread      = "tickets_active_thread_idx"
	constraintAttachmentContent = "attachments_ticket_content_key"
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
