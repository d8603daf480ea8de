package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/events"
	"github.com/spec-kit/contact-center/internal/repository"
	"github.com/spec-kit/contact-center/internal/routing"
	"github.com/spec-kit/contact-center/internal/storage"
)

// AdvisorSelector picks the owner of a new ticket. A nil advisor means nobody is
// available.
type AdvisorSelector interface {
	SelectAdvisor(ctx context.Context) (*domain.Advisor, error)
}

// AttentionService persists inbound messages onto tickets.
type AttentionService struct {
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	history     repository.TicketHistoryRepository
	store       storage.AttachmentStore
	fetcher     storage.AttachmentFetcher
	selector    AdvisorSelector
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// AttentionDependencies bundles collaborators for the attention service.
type AttentionDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	Store          storage.AttachmentStore
	Fetcher        storage.AttachmentFetcher
	Selector       AdvisorSelector
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewAttentionService constructs the service.
func NewAttentionService(deps AttentionDependencies) *AttentionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttentionService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		store:       deps.Store,
		fetcher:     deps.Fetcher,
		selector:    deps.Selector,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// AppendToExistingTicket stores the event as a new message of ticketID. The ticket's
// assistance state is left untouched. A message with the same header id yields
// repository.ErrAlreadyProcessed.
func (s *AttentionService) AppendToExistingTicket(ctx context.Context, event *domain.InboundEmailEvent, messageType domain.MessageType, ticketID string, state domain.DeliveryState) (*domain.Message, error) {
	msg := messageFromEvent(event, messageType, state)
	msg.TicketID = ticketID

	if err := s.messages.Create(ctx, msg); err != nil {
		if !errors.Is(err, repository.ErrAlreadyProcessed) {
			s.logger.Error("append message failed",
				zap.String("ticket_id", ticketID),
				zap.String("header_message_id", event.HeaderMessageID),
				zap.Error(err))
		}
		return nil, err
	}

	msg.Attachments = s.storeAttachments(ctx, ticketID, msg.ID, event.MessageID, event.Attachments)

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventMessageAppended,
		TicketID: ticketID,
		Payload: events.MessageAppendedPayload{
			MessageID:     msg.ID,
			MessageType:   msg.Type,
			DeliveryState: msg.DeliveryState,
		},
	})
	return msg, nil
}

// CreateNewTicket opens a ticket for a new citizen contact. The ticket is OPEN and
// owned by the next advisor in rotation, or UNASSIGNED when nobody is available.
// The ticket and its first message are written atomically; a concurrent creation
// for the same thread yields repository.ErrActiveThreadExists.
func (s *AttentionService) CreateNewTicket(ctx context.Context, event *domain.InboundEmailEvent, state domain.DeliveryState) (*domain.Ticket, *domain.Message, error) {
	var advisor *domain.Advisor
	if s.selector != nil {
		picked, err := s.selector.SelectAdvisor(ctx)
		if err != nil {
			return nil, nil, err
		}
		advisor = picked
	}

	ticket := &domain.Ticket{
		TicketCode:       generateTicketCode(),
		CitizenEmail:     routing.NormalizeAddress(event.From),
		AssistanceState:  domain.AssistanceUnassigned,
		ProviderThreadID: event.ThreadID,
	}
	if advisor != nil {
		ticket.AssistanceState = domain.AssistanceOpen
		ticket.AdvisorUserID = &advisor.UserID
		if advisor.InboxID != "" {
			inbox := advisor.InboxID
			ticket.AdvisorInboxID = &inbox
		}
	}

	msg := messageFromEvent(event, domain.MessageTypeCitizen, state)
	if err := s.tickets.CreateWithFirstMessage(ctx, ticket, msg); err != nil {
		if !errors.Is(err, repository.ErrAlreadyProcessed) && !errors.Is(err, repository.ErrActiveThreadExists) {
			s.logger.Error("create ticket failed",
				zap.String("thread_id", event.ThreadID),
				zap.String("header_message_id", event.HeaderMessageID),
				zap.Error(err))
		}
		return nil, nil, err
	}

	msg.Attachments = s.storeAttachments(ctx, ticket.ID, msg.ID, event.MessageID, event.Attachments)

	if advisor != nil {
		s.recordInitialAssignment(ctx, ticket.ID, *advisor)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketCode:      ticket.TicketCode,
			CitizenEmail:    ticket.CitizenEmail,
			AdvisorUserID:   ticket.AdvisorUserID,
			AssistanceState: ticket.AssistanceState,
			MessageID:       msg.ID,
		},
	})

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_code", ticket.TicketCode),
		zap.String("assistance_state", string(ticket.AssistanceState)),
		zap.Stringp("advisor_user_id", ticket.AdvisorUserID))
	return ticket, msg, nil
}

// storeAttachments saves every attachment the ticket does not hold yet. Content missing
// from the event is fetched by provider id. When no content can be had, a reference row
// with the provider attachment id and no URL is kept instead. Failures are logged per
// attachment and never undo the message.
func (s *AttentionService) storeAttachments(ctx context.Context, ticketID, messageID, providerMessageID string, items []domain.EventAttachment) []domain.Attachment {
	if s.attachments == nil || len(items) == 0 {
		return nil
	}

	stored := make([]domain.Attachment, 0, len(items))
	for _, item := range items {
		log := s.logger.With(zap.String("ticket_id", ticketID), zap.String("content_id", item.ContentID))

		exists, err := s.attachments.ExistsForTicket(ctx, ticketID, item.ContentID)
		if err != nil {
			log.Warn("attachment lookup failed", zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		content := s.attachmentContent(ctx, log, providerMessageID, item)
		if len(content) == 0 && item.ProviderAttachmentID == "" {
			log.Warn("attachment has neither content nor provider id; skipping", zap.String("filename", item.FileName))
			continue
		}

		attachment := domain.Attachment{
			TicketID:             ticketID,
			MessageID:            messageID,
			ContentID:            item.ContentID,
			ProviderAttachmentID: item.ProviderAttachmentID,
			FileName:             item.FileName,
			MimeType:             mimeTypeOrDefault(item.MimeType),
			SizeBytes:            int64(len(content)),
		}
		if len(content) > 0 && s.store != nil {
			url, err := s.store.Save(ctx, content, storage.Metadata{
				TicketID:  ticketID,
				ContentID: item.ContentID,
				FileName:  item.FileName,
				MimeType:  item.MimeType,
			})
			if err != nil {
				log.Warn("attachment upload failed; keeping reference only", zap.Error(err))
			} else {
				attachment.URL = url
			}
		}

		if err := s.attachments.Create(ctx, &attachment); err != nil {
			if !errors.Is(err, repository.ErrAttachmentExists) {
				log.Warn("attachment metadata insert failed", zap.Error(err))
			}
			continue
		}
		stored = append(stored, attachment)
	}
	return stored
}

func (s *AttentionService) attachmentContent(ctx context.Context, log *zap.Logger, providerMessageID string, item domain.EventAttachment) []byte {
	if len(item.Content) > 0 || item.ProviderAttachmentID == "" || s.fetcher == nil {
		return item.Content
	}
	content, err := s.fetcher.Fetch(ctx, providerMessageID, item.ProviderAttachmentID)
	if err != nil {
		log.Warn("attachment content unavailable",
			zap.String("provider_attachment_id", item.ProviderAttachmentID),
			zap.Error(err))
		return nil
	}
	return content
}

func (s *AttentionService) recordInitialAssignment(ctx context.Context, ticketID string, advisor domain.Advisor) {
	if s.history == nil {
		return
	}
	err := s.history.Create(ctx, &domain.TicketHistory{
		TicketID:   ticketID,
		Source:     domain.ChangeSourceRoundRobin,
		ChangeType: domain.ChangeTypeAssignee,
		OldValue:   map[string]any{"advisor_user_id": nil},
		NewValue:   map[string]any{"advisor_user_id": advisor.UserID, "advisor_inbox_id": advisor.InboxID},
	})
	if err != nil {
		s.logger.Warn("record assignment history failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func messageFromEvent(event *domain.InboundEmailEvent, messageType domain.MessageType, state domain.DeliveryState) *domain.Message {
	to := make([]string, len(event.To))
	copy(to, event.To)
	return &domain.Message{
		ProviderMessageID: event.MessageID,
		HeaderMessageID:   event.HeaderMessageID,
		InReplyToHeaderID: event.InReplyToHeaderID,
		Subject:           event.Subject,
		Content:           event.Content,
		From:              event.From,
		To:                to,
		Date:              event.Date,
		Type:              messageType,
		DeliveryState:     state,
	}
}

func generateTicketCode() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func mimeTypeOrDefault(mime string) string {
	if strings.TrimSpace(mime) == "" {
		return "application/octet-stream"
	}
	return mime
}
