package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/contact-center/internal/domain"
)

// ErrMalformedEvent marks events that can never be processed.
var ErrMalformedEvent = errors.New("malformed inbound event")

var eventValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateEvent rejects events missing the fields routing depends on.
func ValidateEvent(event *domain.InboundEmailEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	if err := eventValidator.Struct(event); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			names := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				names = append(names, fe.Namespace())
			}
			return fmt.Errorf("%w: missing or invalid %s", ErrMalformedEvent, strings.Join(names, ", "))
		}
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if NormalizeHeaderID(event.HeaderMessageID) == "" {
		return fmt.Errorf("%w: blank header_message_id", ErrMalformedEvent)
	}
	if strings.TrimSpace(event.ThreadID) == "" {
		return fmt.Errorf("%w: blank thread_id", ErrMalformedEvent)
	}
	return nil
}

// NormalizeEvent returns a copy of event with header ids in canonical form.
func NormalizeEvent(event domain.InboundEmailEvent) domain.InboundEmailEvent {
	event.HeaderMessageID = NormalizeHeaderID(event.HeaderMessageID)
	event.ThreadID = strings.TrimSpace(event.ThreadID)
	event.InReplyToHeaderID = normalizeOptional(event.InReplyToHeaderID)
	event.ForwardedFromHeaderID = normalizeOptional(event.ForwardedFromHeaderID)
	return event
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	id := NormalizeHeaderID(*value)
	if id == "" {
		return nil
	}
	return &id
}
