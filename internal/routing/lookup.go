package routing

import (
	"context"

	"github.com/spec-kit/contact-center/internal/domain"
)

// Lookup is the read-only view of stored tickets and messages the engine classifies
// against. Implementations return (nil, nil) when a record does not exist.
type Lookup interface {
	MessageByHeaderID(ctx context.Context, headerMessageID string) (*domain.Message, error)
	TicketByID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	ActiveTicketByThreadID(ctx context.Context, threadID string) (*domain.Ticket, error)
}
