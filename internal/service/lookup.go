package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/repository"
	"github.com/spec-kit/contact-center/internal/routing"
)

type repositoryLookup struct {
	tickets  repository.TicketRepository
	messages repository.MessageRepository
}

// NewRepositoryLookup exposes the ticket and message repositories as the read view
// the deduplicator and classifier work against.
func NewRepositoryLookup(tickets repository.TicketRepository, messages repository.MessageRepository) routing.Lookup {
	return &repositoryLookup{tickets: tickets, messages: messages}
}

func (l *repositoryLookup) MessageByHeaderID(ctx context.Context, headerMessageID string) (*domain.Message, error) {
	return notFoundAsNil(l.messages.GetByHeaderID(ctx, headerMessageID))
}

func (l *repositoryLookup) TicketByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return notFoundAsNil(l.tickets.GetByID(ctx, ticketID))
}

func (l *repositoryLookup) ActiveTicketByThreadID(ctx context.Context, threadID string) (*domain.Ticket, error) {
	return notFoundAsNil(l.tickets.GetActiveByThreadID(ctx, threadID))
}

func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
