package routing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/contact-center/internal/domain"
)

// Result is the outcome of classifying one inbound event.
type Result struct {
	Matched     bool
	Case        string
	TicketID    string
	MessageType domain.MessageType
	State       domain.DeliveryState
}

// Case is one detector in the classification chain.
type Case struct {
	Name  string
	Match func(ctx context.Context, event *domain.InboundEmailEvent, lookup Lookup) (Result, error)
}

// Classifier runs cases in order and stops at the first match.
type Classifier struct {
	cases  []Case
	lookup Lookup
	logger *zap.Logger
}

// NewClassifier builds a classifier over an explicit ordered case list.
func NewClassifier(lookup Lookup, logger *zap.Logger, cases ...Case) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{cases: cases, lookup: lookup, logger: logger}
}

// Cases returns the names of the configured cases in evaluation order.
func (c *Classifier) Cases() []string {
	names := make([]string, 0, len(c.cases))
	for _, cs := range c.cases {
		names = append(names, cs.Name)
	}
	return names
}

// Classify tries every case in order. A miss from all cases returns a zero Result.
func (c *Classifier) Classify(ctx context.Context, event *domain.InboundEmailEvent) (Result, error) {
	for _, cs := range c.cases {
		res, err := cs.Match(ctx, event, c.lookup)
		if err != nil {
			return Result{}, fmt.Errorf("classify %s: %w", cs.Name, err)
		}
		if !res.Matched {
			continue
		}
		res.Case = cs.Name
		c.logger.Info("event classified",
			zap.String("case", cs.Name),
			zap.String("ticket_id", res.TicketID),
			zap.String("header_message_id", event.HeaderMessageID),
			zap.String("message_type", string(res.MessageType)),
			zap.String("state", string(res.State)))
		return res, nil
	}
	c.logger.Debug("event not classified", zap.String("header_message_id", event.HeaderMessageID))
	return Result{}, nil
}
