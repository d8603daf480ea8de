package domain

import "time"

// InboundEmailEvent is the connector's report of a message that was sent or received.
type InboundEmailEvent struct {
	MessageID             string            `json:"message_id"`
	HeaderMessageID       string            `json:"header_message_id" validate:"required"`
	InReplyToHeaderID     *string           `json:"in_reply_to_header_id,omitempty"`
	ThreadID              string            `json:"thread_id" validate:"required"`
	From                  string            `json:"from" validate:"required"`
	To                    []string          `json:"to"`
	Subject               string            `json:"subject"`
	Content               string            `json:"content"`
	Date                  time.Time         `json:"date" validate:"required"`
	Attachments           []EventAttachment `json:"attachments" validate:"dive"`
	ForwardedFromHeaderID *string           `json:"forwarded_from_header_id,omitempty"`
}

// EventAttachment describes a file carried by an inbound event.
type EventAttachment struct {
	ContentID            string `json:"content_id" validate:"required"`
	FileName             string `json:"filename" validate:"required"`
	MimeType             string `json:"mime_type"`
	ProviderAttachmentID string `json:"provider_attachment_id"`
	Content              []byte `json:"content,omitempty"`
}
