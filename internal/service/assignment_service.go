package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/contact-center/internal/balancer"
	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/events"
	"github.com/spec-kit/contact-center/internal/observability"
	"github.com/spec-kit/contact-center/internal/repository"
)

// AssignmentService owns advisor selection for new tickets and the rebalance pass.
type AssignmentService struct {
	tickets    repository.TicketRepository
	advisors   repository.AdvisorRepository
	history    repository.TicketHistoryRepository
	rotation   balancer.Rotation
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	tolerance  int
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	AdvisorRepo repository.AdvisorRepository
	HistoryRepo repository.TicketHistoryRepository
	Rotation    balancer.Rotation
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Tolerance   int
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rotation := deps.Rotation
	if rotation == nil {
		rotation = balancer.NewLocalRotation()
	}
	tolerance := deps.Tolerance
	if tolerance < 1 {
		tolerance = balancer.DefaultTolerance
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		advisors:   deps.AdvisorRepo,
		history:    deps.HistoryRepo,
		rotation:   rotation,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		tolerance:  tolerance,
	}
}

// SelectAdvisor returns the next available email advisor in rotation, or nil when
// nobody is available.
func (s *AssignmentService) SelectAdvisor(ctx context.Context) (*domain.Advisor, error) {
	available, err := s.advisors.ListAvailable(ctx, domain.ChannelEmail)
	if err != nil {
		return nil, fmt.Errorf("list available advisors: %w", err)
	}
	advisor, err := s.rotation.Next(ctx, string(domain.ChannelEmail), available)
	if err != nil {
		return nil, err
	}
	if advisor == nil {
		s.logger.Info("no advisor available", zap.String("channel", string(domain.ChannelEmail)))
	}
	return advisor, nil
}

// AppliedMove is a rebalance move that was written.
type AppliedMove struct {
	TicketID    string              `json:"ticket_id"`
	FromAdvisor string              `json:"from_advisor_user_id,omitempty"`
	ToAdvisor   string              `json:"to_advisor_user_id"`
	Reason      balancer.MoveReason `json:"reason"`
}

// RebalanceReport summarizes one BalanceAdvisors pass.
type RebalanceReport struct {
	Loads     map[string]int       `json:"loads"`
	Ownership []balancer.Ownership `json:"ownership"`
	Moves     []AppliedMove        `json:"moves"`
	// Skipped counts planned moves whose ticket left OPEN/UNASSIGNED during the pass.
	Skipped int `json:"skipped"`
}

// BalanceAdvisors spreads OPEN and UNASSIGNED tickets over the advisors available on
// the email channel so no advisor holds more than tolerance tickets above the least
// loaded one.
func (s *AssignmentService) BalanceAdvisors(ctx context.Context) (*RebalanceReport, error) {
	available, err := s.advisors.ListAvailable(ctx, domain.ChannelEmail)
	if err != nil {
		return nil, fmt.Errorf("list available advisors: %w", err)
	}
	tickets, err := s.tickets.ListByStates(ctx, domain.AssistanceOpen, domain.AssistanceUnassigned)
	if err != nil {
		return nil, fmt.Errorf("list tickets for rebalance: %w", err)
	}

	loads := make([]balancer.TicketLoad, 0, len(tickets))
	for _, t := range tickets {
		load := balancer.TicketLoad{TicketID: t.ID, State: t.AssistanceState}
		if t.Assigned() {
			load.AdvisorUserID = *t.AdvisorUserID
		}
		loads = append(loads, load)
	}

	plan := balancer.PlanRebalance(loads, available, s.tolerance)
	report := &RebalanceReport{
		Loads:     plan.Loads,
		Ownership: plan.Ownership,
		Moves:     make([]AppliedMove, 0, len(plan.Moves)),
	}

	for _, mv := range plan.Moves {
		changed, err := s.tickets.Assign(ctx, mv.TicketID, mv.ToAdvisor)
		if err != nil {
			return nil, fmt.Errorf("assign ticket %s: %w", mv.TicketID, err)
		}
		if !changed {
			s.logger.Info("rebalance skipped ticket no longer open",
				zap.String("ticket_id", mv.TicketID),
				zap.String("advisor_user_id", mv.ToAdvisor.UserID))
			report.Skipped++
			report.Loads[mv.ToAdvisor.UserID]--
			continue
		}

		s.recordAssignment(ctx, mv.TicketID, domain.ChangeSourceRebalance, mv.FromAdvisor, mv.ToAdvisor)
		s.publishAssignment(ctx, mv.TicketID, mv.FromAdvisor, mv.ToAdvisor.UserID, domain.ChangeSourceRebalance)
		s.metrics.RecordRebalanceMove(string(mv.Reason))
		report.Moves = append(report.Moves, AppliedMove{
			TicketID:    mv.TicketID,
			FromAdvisor: mv.FromAdvisor,
			ToAdvisor:   mv.ToAdvisor.UserID,
			Reason:      mv.Reason,
		})
	}

	s.logger.Info("rebalance finished",
		zap.Int("advisors", len(plan.Loads)),
		zap.Int("tickets", len(tickets)),
		zap.Int("moves", len(report.Moves)),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

// recordAssignment writes the audit entry. The assignment itself already happened,
// so a failure is only logged.
func (s *AssignmentService) recordAssignment(ctx context.Context, ticketID string, source domain.ChangeSource, from string, to domain.Advisor) {
	if s.history == nil {
		return
	}
	var oldOwner any
	if from != "" {
		oldOwner = from
	}
	err := s.history.Create(ctx, &domain.TicketHistory{
		TicketID:   ticketID,
		Source:     source,
		ChangeType: domain.ChangeTypeAssignee,
		OldValue:   map[string]any{"advisor_user_id": oldOwner},
		NewValue:   map[string]any{"advisor_user_id": to.UserID, "advisor_inbox_id": to.InboxID},
	})
	if err != nil {
		s.logger.Warn("record assignment history failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *AssignmentService) publishAssignment(ctx context.Context, ticketID, from, to string, source domain.ChangeSource) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Payload: events.TicketAssignedPayload{
			FromAdvisorUserID: from,
			AdvisorUserID:     to,
			Source:            source,
		},
	})
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
