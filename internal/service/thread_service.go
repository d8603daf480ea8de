package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/repository"
	"github.com/spec-kit/contact-center/internal/routing"
	apperrors "github.com/spec-kit/contact-center/pkg/util/errorutil"
)

// ThreadService serves the read path of a ticket conversation.
type ThreadService struct {
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
}

// NewThreadService constructs the service.
func NewThreadService(tickets repository.TicketRepository, messages repository.MessageRepository, attachments repository.AttachmentRepository) *ThreadService {
	return &ThreadService{tickets: tickets, messages: messages, attachments: attachments}
}

// GetThread loads a ticket with its messages arranged as a reply graph.
func (s *ThreadService) GetThread(ctx context.Context, ticketID string) (*domain.Ticket, []routing.ThreadEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}

	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	if s.attachments != nil && len(msgs) > 0 {
		atts, err := s.attachments.ListByTicket(ctx, ticketID)
		if err != nil {
			return nil, nil, apperrors.MapError(err)
		}
		byMessage := make(map[string][]domain.Attachment, len(msgs))
		for _, a := range atts {
			byMessage[a.MessageID] = append(byMessage[a.MessageID], a)
		}
		for i := range msgs {
			msgs[i].Attachments = byMessage[msgs[i].ID]
		}
	}

	return ticket, routing.BuildThread(msgs), nil
}
