package routing

import (
	"context"
	"errors"

	"github.com/spec-kit/contact-center/internal/domain"
)

type fakeLookup struct {
	messages map[string]*domain.Message
	tickets  map[string]*domain.Ticket
	err      error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		messages: make(map[string]*domain.Message),
		tickets:  make(map[string]*domain.Ticket),
	}
}

func (f *fakeLookup) addTicket(id, threadID string, state domain.AssistanceState) *domain.Ticket {
	t := &domain.Ticket{ID: id, ProviderThreadID: threadID, AssistanceState: state}
	f.tickets[id] = t
	return t
}

func (f *fakeLookup) addMessage(ticketID, header string, typ domain.MessageType) *domain.Message {
	m := &domain.Message{ID: "m-" + header, TicketID: ticketID, HeaderMessageID: header, Type: typ}
	f.messages[header] = m
	return m
}

func (f *fakeLookup) MessageByHeaderID(_ context.Context, id string) (*domain.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages[id], nil
}

func (f *fakeLookup) TicketByID(_ context.Context, id string) (*domain.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tickets[id], nil
}

func (f *fakeLookup) ActiveTicketByThreadID(_ context.Context, threadID string) (*domain.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.tickets {
		if t.ProviderThreadID == threadID && t.AssistanceState.Active() {
			return t, nil
		}
	}
	return nil, nil
}

var errLookupDown = errors.New("lookup unavailable")

func strPtr(s string) *string { return &s }
