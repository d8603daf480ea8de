package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/observability"
	"github.com/spec-kit/contact-center/internal/repository"
	"github.com/spec-kit/contact-center/internal/routing"
)

// Outcome is what processing did with one inbound event.
type Outcome string

const (
	OutcomeAppended  Outcome = "appended"
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeMalformed Outcome = "malformed"
	OutcomeFailed    Outcome = "failed"
)

// ProcessResult describes a processed event.
type ProcessResult struct {
	Outcome   Outcome
	Case      string
	TicketID  string
	MessageID string
}

var errThreadTicketGone = errors.New("active ticket for thread no longer exists")

// InboundService routes one inbound email event: dedup, classify, then append to an
// existing ticket or open a new one.
type InboundService struct {
	lookup     routing.Lookup
	dedup      *routing.Deduplicator
	classifier *routing.Classifier
	attention  *AttentionService
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// InboundDependencies bundles collaborators for the inbound service.
type InboundDependencies struct {
	Lookup     routing.Lookup
	Classifier *routing.Classifier
	Attention  *AttentionService
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewInboundService constructs the service.
func NewInboundService(deps InboundDependencies) *InboundService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboundService{
		lookup:     deps.Lookup,
		dedup:      routing.NewDeduplicator(deps.Lookup),
		classifier: deps.Classifier,
		attention:  deps.Attention,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Process handles one event. Malformed events return an error wrapping
// routing.ErrMalformedEvent and must not be retried. Duplicates are not errors.
// Any other error is transient and the caller should redeliver the event.
func (s *InboundService) Process(ctx context.Context, event domain.InboundEmailEvent) (ProcessResult, error) {
	start := time.Now()
	res, err := s.process(ctx, event)
	if err != nil && res.Outcome == "" {
		res.Outcome = OutcomeFailed
	}
	s.metrics.RecordEvent(string(res.Outcome), time.Since(start))
	return res, err
}

func (s *InboundService) process(ctx context.Context, raw domain.InboundEmailEvent) (ProcessResult, error) {
	if err := routing.ValidateEvent(&raw); err != nil {
		s.logger.Warn("dropping malformed event",
			zap.String("provider_message_id", raw.MessageID),
			zap.Error(err))
		return ProcessResult{Outcome: OutcomeMalformed}, err
	}
	event := routing.NormalizeEvent(raw)

	seen, err := s.dedup.AlreadyProcessed(ctx, event.HeaderMessageID)
	if err != nil {
		return ProcessResult{}, err
	}
	if seen {
		return s.duplicate(&event, ""), nil
	}

	match, err := s.classifier.Classify(ctx, &event)
	if err != nil {
		return ProcessResult{}, err
	}
	s.metrics.RecordClassification(match.Case)

	if match.Matched {
		msg, err := s.attention.AppendToExistingTicket(ctx, &event, match.MessageType, match.TicketID, match.State)
		if errors.Is(err, repository.ErrAlreadyProcessed) {
			return s.duplicate(&event, match.Case), nil
		}
		if err != nil {
			return ProcessResult{Case: match.Case}, err
		}
		return ProcessResult{Outcome: OutcomeAppended, Case: match.Case, TicketID: match.TicketID, MessageID: msg.ID}, nil
	}

	state := routing.ResolveDeliveryState(match, event.Subject)
	ticket, msg, err := s.attention.CreateNewTicket(ctx, &event, state)
	switch {
	case errors.Is(err, repository.ErrAlreadyProcessed):
		return s.duplicate(&event, ""), nil
	case errors.Is(err, repository.ErrActiveThreadExists):
		return s.appendToThread(ctx, &event, state)
	case err != nil:
		return ProcessResult{}, err
	}
	return ProcessResult{Outcome: OutcomeCreated, TicketID: ticket.ID, MessageID: msg.ID}, nil
}

// appendToThread handles losing the race to open a ticket for a thread: the event
// joins the ticket the other worker created.
func (s *InboundService) appendToThread(ctx context.Context, event *domain.InboundEmailEvent, state domain.DeliveryState) (ProcessResult, error) {
	ticket, err := s.lookup.ActiveTicketByThreadID(ctx, event.ThreadID)
	if err != nil {
		return ProcessResult{}, err
	}
	if ticket == nil {
		return ProcessResult{}, fmt.Errorf("thread %s: %w", event.ThreadID, errThreadTicketGone)
	}

	s.logger.Info("thread already has an active ticket; appending",
		zap.String("ticket_id", ticket.ID),
		zap.String("thread_id", event.ThreadID),
		zap.String("header_message_id", event.HeaderMessageID))

	msg, err := s.attention.AppendToExistingTicket(ctx, event, domain.MessageTypeCitizen, ticket.ID, state)
	if errors.Is(err, repository.ErrAlreadyProcessed) {
		return s.duplicate(event, ""), nil
	}
	if err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{Outcome: OutcomeAppended, TicketID: ticket.ID, MessageID: msg.ID}, nil
}

func (s *InboundService) duplicate(event *domain.InboundEmailEvent, caseName string) ProcessResult {
	s.logger.Info("event already processed",
		zap.String("header_message_id", event.HeaderMessageID),
		zap.String("provider_message_id", event.MessageID))
	return ProcessResult{Outcome: OutcomeDuplicate, Case: caseName}
}
