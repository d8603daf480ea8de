package domain

import "time"

// MessageType describes the role a message plays inside a ticket thread.
type MessageType string

const (
	MessageTypeCitizen         MessageType = "CITIZEN"
	MessageTypeAdvisor         MessageType = "ADVISOR"
	MessageTypeInternalReply   MessageType = "INTERNAL_REPLY"
	MessageTypeInternalForward MessageType = "INTERNAL_FORWARD"
)

// DeliveryState doubles as the mailbox folder a message is shown under.
type DeliveryState string

const (
	DeliveryDraft   DeliveryState = "DRAFT"
	DeliverySent    DeliveryState = "SENT"
	DeliveryTrash   DeliveryState = "TRASH"
	DeliverySpam    DeliveryState = "SPAM"
	DeliveryReply   DeliveryState = "REPLY"
	DeliveryForward DeliveryState = "FORWARD"
)

// Message is one rendered email belonging to exactly one ticket.
type Message struct {
	ID                string
	TicketID          string
	ProviderMessageID string
	HeaderMessageID   string
	InReplyToHeaderID *string
	Subject           string
	Content           string
	From              string
	To                []string
	Date              time.Time
	Type              MessageType
	DeliveryState     DeliveryState
	IsFavorite        bool
	IsRead            bool
	Attachments       []Attachment
	CreatedAt         time.Time
}

// Attachment references a stored binary owned by a message.
type Attachment struct {
	ID                   string
	TicketID             string
	MessageID            string
	ContentID            string
	ProviderAttachmentID string
	FileName             string
	MimeType             string
	SizeBytes            int64
	URL                  string
	CreatedAt            time.Time
}
