package events

import (
	"time"

	"github.com/spec-kit/contact-center/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventMessageAppended EventType = "message_appended"
	EventTicketAssigned  EventType = "ticket_assigned"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketCode      string                 `json:"ticket_code"`
	CitizenEmail    string                 `json:"citizen_email"`
	AdvisorUserID   *string                `json:"advisor_user_id,omitempty"`
	AssistanceState domain.AssistanceState `json:"assistance_state"`
	MessageID       string                 `json:"message_id"`
}

// MessageAppendedPayload payload.
type MessageAppendedPayload struct {
	MessageID     string               `json:"message_id"`
	MessageType   domain.MessageType   `json:"message_type"`
	DeliveryState domain.DeliveryState `json:"delivery_state"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	FromAdvisorUserID string              `json:"from_advisor_user_id,omitempty"`
	AdvisorUserID     string              `json:"advisor_user_id"`
	Source            domain.ChangeSource `json:"source"`
}
