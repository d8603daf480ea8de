package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/contact-center/internal/api/dto"
	"github.com/spec-kit/contact-center/internal/auth"
	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/routing"
	"github.com/spec-kit/contact-center/internal/service"
	apperrors "github.com/spec-kit/contact-center/pkg/util/errorutil"
)

// ThreadReader loads a ticket with its reconstructed thread.
type ThreadReader interface {
	GetThread(ctx context.Context, ticketID string) (*domain.Ticket, []routing.ThreadEntry, error)
}

// Rebalancer redistributes open tickets across available advisors.
type Rebalancer interface {
	BalanceAdvisors(ctx context.Context) (*service.RebalanceReport, error)
}

// OpsHandler serves the operator endpoints.
type OpsHandler struct {
	threads    ThreadReader
	rebalancer Rebalancer
	logger     *zap.Logger
}

// NewOpsHandler constructs handler.
func NewOpsHandler(threads ThreadReader, rebalancer Rebalancer, logger *zap.Logger) *OpsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpsHandler{threads: threads, rebalancer: rebalancer, logger: logger}
}

// Rebalance POST /ops/advisors/rebalance.
func (h *OpsHandler) Rebalance(c *fiber.Ctx) error {
	report, err := h.rebalancer.BalanceAdvisors(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}

	fields := []zap.Field{zap.Int("moves", len(report.Moves)), zap.Int("skipped", report.Skipped)}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		fields = append(fields, zap.String("operator", principal.Subject))
	}
	h.logger.Info("rebalance triggered", fields...)

	return c.JSON(fiber.Map{"data": dto.NewRebalanceResponse(report)})
}

// GetThread GET /ops/tickets/:id/thread.
func (h *OpsHandler) GetThread(c *fiber.Ctx) error {
	ticketID := strings.TrimSpace(c.Params("id"))
	if _, err := uuid.Parse(ticketID); err != nil {
		return apperrors.NewValidationError("invalid ticket id", map[string]any{"id": ticketID})
	}

	ticket, entries, err := h.threads.GetThread(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewThreadResponse(ticket, entries)})
}
