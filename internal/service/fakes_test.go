package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/events"
	"github.com/spec-kit/contact-center/internal/repository"
	"github.com/spec-kit/contact-center/internal/storage"
)

var errDatabaseDown = errors.New("database down")

// memDB is an in-memory stand-in for Postgres that enforces the same unique
// constraints the schema does.
type memDB struct {
	mu          sync.Mutex
	seq         int
	tickets     map[string]*domain.Ticket
	messages    []domain.Message
	attachments []domain.Attachment
	history     []domain.TicketHistory
}

func newMemDB() *memDB {
	return &memDB{tickets: make(map[string]*domain.Ticket)}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) activeByThread(threadID string) *domain.Ticket {
	for _, t := range db.tickets {
		if t.ProviderThreadID == threadID && t.AssistanceState.Active() {
			return t
		}
	}
	return nil
}

func (db *memDB) headerExists(header string) bool {
	for _, m := range db.messages {
		if m.HeaderMessageID == header {
			return true
		}
	}
	return false
}

// seedTicket inserts a ticket with one message directly.
func (db *memDB) seedTicket(threadID string, state domain.AssistanceState, header string, typ domain.MessageType) (*domain.Ticket, *domain.Message) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t := &domain.Ticket{
		ID:               db.nextID("ticket"),
		TicketCode:       "TCK-SEED",
		AssistanceState:  state,
		ProviderThreadID: threadID,
		CreatedAt:        time.Now(),
	}
	db.tickets[t.ID] = t
	m := domain.Message{
		ID:              db.nextID("msg"),
		TicketID:        t.ID,
		HeaderMessageID: header,
		Type:            typ,
		Date:            time.Now(),
	}
	db.messages = append(db.messages, m)
	copied := *t
	return &copied, &m
}

func (db *memDB) ticket(id string) domain.Ticket {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.tickets[id]
}

func (db *memDB) ticketCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.tickets)
}

func (db *memDB) messagesOf(ticketID string) []domain.Message {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []domain.Message
	for _, m := range db.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out
}

func (db *memDB) messageCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.messages)
}

type fakeTickets struct {
	db           *memDB
	beforeAssign func(ticketID string)
}

func (f *fakeTickets) CreateWithFirstMessage(_ context.Context, ticket *domain.Ticket, msg *domain.Message) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if ticket.AssistanceState.Active() && f.db.activeByThread(ticket.ProviderThreadID) != nil {
		return repository.ErrActiveThreadExists
	}
	if f.db.headerExists(msg.HeaderMessageID) {
		return repository.ErrAlreadyProcessed
	}
	ticket.ID = f.db.nextID("ticket")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	f.db.tickets[ticket.ID] = &stored

	msg.TicketID = ticket.ID
	msg.ID = f.db.nextID("msg")
	msg.CreatedAt = ticket.CreatedAt
	f.db.messages = append(f.db.messages, *msg)
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTickets) GetActiveByThreadID(_ context.Context, threadID string) (*domain.Ticket, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t := f.db.activeByThread(threadID)
	if t == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTickets) ListByStates(_ context.Context, states ...domain.AssistanceState) ([]domain.Ticket, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.db.tickets {
		for _, s := range states {
			if t.AssistanceState == s {
				out = append(out, *t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTickets) Assign(_ context.Context, ticketID string, advisor domain.Advisor) (bool, error) {
	if f.beforeAssign != nil {
		f.beforeAssign(ticketID)
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tickets[ticketID]
	if !ok || (t.AssistanceState != domain.AssistanceOpen && t.AssistanceState != domain.AssistanceUnassigned) {
		return false, nil
	}
	user, inbox := advisor.UserID, advisor.InboxID
	t.AdvisorUserID = &user
	t.AdvisorInboxID = &inbox
	t.AssistanceState = domain.AssistanceOpen
	return true, nil
}

type fakeMessages struct{ db *memDB }

func (f *fakeMessages) Create(_ context.Context, msg *domain.Message) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.headerExists(msg.HeaderMessageID) {
		return repository.ErrAlreadyProcessed
	}
	msg.ID = f.db.nextID("msg")
	msg.CreatedAt = time.Now()
	f.db.messages = append(f.db.messages, *msg)
	return nil
}

func (f *fakeMessages) GetByHeaderID(_ context.Context, headerID string) (*domain.Message, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, m := range f.db.messages {
		if m.HeaderMessageID == headerID {
			copied := m
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeMessages) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	return f.db.messagesOf(ticketID), nil
}

type fakeAttachments struct{ db *memDB }

func (f *fakeAttachments) ExistsForTicket(_ context.Context, ticketID, contentID string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, a := range f.db.attachments {
		if a.TicketID == ticketID && a.ContentID == contentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAttachments) Create(_ context.Context, attachment *domain.Attachment) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, a := range f.db.attachments {
		if a.TicketID == attachment.TicketID && a.ContentID == attachment.ContentID {
			return repository.ErrAttachmentExists
		}
	}
	attachment.ID = f.db.nextID("att")
	f.db.attachments = append(f.db.attachments, *attachment)
	return nil
}

func (f *fakeAttachments) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []domain.Attachment
	for _, a := range f.db.attachments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeHistory struct{ db *memDB }

func (f *fakeHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	h.ID = f.db.nextID("hist")
	f.db.history = append(f.db.history, *h)
	return nil
}

func (f *fakeHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range f.db.history {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeAdvisors struct {
	mu       sync.Mutex
	advisors []domain.Advisor
	err      error
}

func (f *fakeAdvisors) ListAvailable(_ context.Context, channel domain.Channel) ([]domain.Advisor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if channel != domain.ChannelEmail {
		return nil, nil
	}
	return append([]domain.Advisor(nil), f.advisors...), nil
}

type memStore struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (s *memStore) Save(_ context.Context, content []byte, meta storage.Metadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	url := "mem://" + meta.TicketID + "/" + meta.ContentID
	s.saved[url] = content
	return url, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	blobs map[string][]byte
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, providerMessageID, providerAttachmentID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := providerMessageID + "/" + providerAttachmentID
	f.calls = append(f.calls, key)
	data, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return data, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func advisorList(ids ...string) []domain.Advisor {
	out := make([]domain.Advisor, len(ids))
	for i, id := range ids {
		out[i] = domain.Advisor{UserID: id, InboxID: "inbox-" + id}
	}
	return out
}

func strPtr(s string) *string { return &s }
