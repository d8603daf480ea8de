package dto

import (
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/routing"
)

var contentPolicy = bluemonday.UGCPolicy()

// TicketResponse is the ticket header of a thread view.
type TicketResponse struct {
	ID               string                 `json:"id"`
	TicketCode       string                 `json:"ticket_code"`
	CitizenEmail     string                 `json:"citizen_email"`
	AdvisorUserID    *string                `json:"advisor_user_id"`
	AssistanceState  domain.AssistanceState `json:"assistance_state"`
	ProviderThreadID string                 `json:"provider_thread_id"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	ClosedAt         *time.Time             `json:"closed_at,omitempty"`
}

// AttachmentResponse describes a stored attachment.
type AttachmentResponse struct {
	ID        string `json:"id"`
	ContentID string `json:"content_id"`
	FileName  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url"`
}

// ThreadMessageResponse is one message of the reconstructed thread.
type ThreadMessageResponse struct {
	ID                string               `json:"id"`
	HeaderMessageID   string               `json:"header_message_id"`
	InReplyToHeaderID *string              `json:"in_reply_to_header_id,omitempty"`
	RepliesToID       *string              `json:"replies_to_message_id,omitempty"`
	Subject           string               `json:"subject"`
	Content           string               `json:"content"`
	From              string               `json:"from"`
	To                []string             `json:"to"`
	Date              time.Time            `json:"date"`
	Type              domain.MessageType   `json:"message_type"`
	DeliveryState     domain.DeliveryState `json:"delivery_state"`
	Attachments       []AttachmentResponse `json:"attachments"`
}

// ThreadResponse is the payload of GET /ops/tickets/:id/thread.
type ThreadResponse struct {
	Ticket   TicketResponse          `json:"ticket"`
	Messages []ThreadMessageResponse `json:"messages"`
}

// NewThreadResponse renders a ticket and its thread. Message bodies pass through an
// HTML sanitizer since they come straight from citizen mail.
func NewThreadResponse(ticket *domain.Ticket, entries []routing.ThreadEntry) ThreadResponse {
	resp := ThreadResponse{
		Ticket: TicketResponse{
			ID:               ticket.ID,
			TicketCode:       ticket.TicketCode,
			CitizenEmail:     ticket.CitizenEmail,
			AdvisorUserID:    ticket.AdvisorUserID,
			AssistanceState:  ticket.AssistanceState,
			ProviderThreadID: ticket.ProviderThreadID,
			CreatedAt:        ticket.CreatedAt,
			UpdatedAt:        ticket.UpdatedAt,
			ClosedAt:         ticket.ClosedAt,
		},
		Messages: make([]ThreadMessageResponse, 0, len(entries)),
	}

	for _, entry := range entries {
		msg := entry.Message
		item := ThreadMessageResponse{
			ID:                msg.ID,
			HeaderMessageID:   msg.HeaderMessageID,
			InReplyToHeaderID: msg.InReplyToHeaderID,
			Subject:           msg.Subject,
			Content:           contentPolicy.Sanitize(msg.Content),
			From:              msg.From,
			To:                msg.To,
			Date:              msg.Date,
			Type:              msg.Type,
			DeliveryState:     msg.DeliveryState,
			Attachments:       make([]AttachmentResponse, 0, len(msg.Attachments)),
		}
		if entry.RepliedTo != nil {
			parentID := entry.RepliedTo.ID
			item.RepliesToID = &parentID
		}
		for _, a := range msg.Attachments {
			item.Attachments = append(item.Attachments, AttachmentResponse{
				ID:        a.ID,
				ContentID: a.ContentID,
				FileName:  a.FileName,
				MimeType:  a.MimeType,
				SizeBytes: a.SizeBytes,
				URL:       a.URL,
			})
		}
		resp.Messages = append(resp.Messages, item)
	}
	return resp
}
