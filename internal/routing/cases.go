package routing

import (
	"context"
	"strings"

	gomail "github.com/emersion/go-message/mail"

	"github.com/spec-kit/contact-center/internal/domain"
)

// Case names, also used as metric and log labels.
const (
	CaseForward       = "forward"
	CaseAdvisorSelf   = "advisor_self"
	CaseInternalReply = "internal_reply"
	CaseThreadReply   = "thread_reply"
)

// DefaultCases returns the production chain in priority order.
func DefaultCases(outboundAddress string) []Case {
	return []Case{
		ForwardCase(),
		AdvisorSelfCase(outboundAddress),
		InternalReplyCase(),
		ThreadReplyCase(),
	}
}

// ForwardCase matches echoes of an internal forward of a stored message.
func ForwardCase() Case {
	return Case{
		Name: CaseForward,
		Match: func(ctx context.Context, event *domain.InboundEmailEvent, lookup Lookup) (Result, error) {
			origin, err := resolveHeader(ctx, lookup, event.ForwardedFromHeaderID)
			if err != nil || origin == nil {
				return Result{}, err
			}
			return Result{
				Matched:     true,
				TicketID:    origin.TicketID,
				MessageType: domain.MessageTypeInternalForward,
				State:       domain.DeliveryForward,
			}, nil
		},
	}
}

// AdvisorSelfCase matches the connector's echo of mail an advisor sent from the
// organization mailbox on an active ticket thread.
func AdvisorSelfCase(outboundAddress string) Case {
	outbound := NormalizeAddress(outboundAddress)
	return Case{
		Name: CaseAdvisorSelf,
		Match: func(ctx context.Context, event *domain.InboundEmailEvent, lookup Lookup) (Result, error) {
			if outbound == "" || event.ThreadID == "" {
				return Result{}, nil
			}
			if NormalizeAddress(event.From) != outbound {
				return Result{}, nil
			}
			ticket, err := lookup.ActiveTicketByThreadID(ctx, event.ThreadID)
			if err != nil || ticket == nil {
				return Result{}, err
			}
			return Result{
				Matched:     true,
				TicketID:    ticket.ID,
				MessageType: domain.MessageTypeAdvisor,
				State:       domain.DeliverySent,
			}, nil
		},
	}
}

// InternalReplyCase matches replies to an internal forward.
func InternalReplyCase() Case {
	return Case{
		Name: CaseInternalReply,
		Match: func(ctx context.Context, event *domain.InboundEmailEvent, lookup Lookup) (Result, error) {
			parent, err := resolveHeader(ctx, lookup, event.InReplyToHeaderID)
			if err != nil || parent == nil || parent.Type != domain.MessageTypeInternalForward {
				return Result{}, err
			}
			return Result{
				Matched:     true,
				TicketID:    parent.TicketID,
				MessageType: domain.MessageTypeInternalReply,
				State:       domain.DeliveryReply,
			}, nil
		},
	}
}

// ThreadReplyCase matches citizen replies to any stored message. A reply into a
// closed ticket is a miss so that a fresh ticket is opened.
func ThreadReplyCase() Case {
	return Case{
		Name: CaseThreadReply,
		Match: func(ctx context.Context, event *domain.InboundEmailEvent, lookup Lookup) (Result, error) {
			parent, err := resolveHeader(ctx, lookup, event.InReplyToHeaderID)
			if err != nil || parent == nil {
				return Result{}, err
			}
			ticket, err := lookup.TicketByID(ctx, parent.TicketID)
			if err != nil || ticket == nil {
				return Result{}, err
			}
			if ticket.AssistanceState == domain.AssistanceClosed {
				return Result{}, nil
			}
			return Result{
				Matched:     true,
				TicketID:    ticket.ID,
				MessageType: domain.MessageTypeCitizen,
				State:       domain.DeliveryReply,
			}, nil
		},
	}
}

func resolveHeader(ctx context.Context, lookup Lookup, headerID *string) (*domain.Message, error) {
	if headerID == nil {
		return nil, nil
	}
	id := NormalizeHeaderID(*headerID)
	if id == "" {
		return nil, nil
	}
	return lookup.MessageByHeaderID(ctx, id)
}

// NormalizeAddress reduces "Name <user@host>" forms to a lower-cased bare address.
func NormalizeAddress(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if addr, err := gomail.ParseAddress(value); err == nil && addr.Address != "" {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.Trim(value, "<>"))
}
