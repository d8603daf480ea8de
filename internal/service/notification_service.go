package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/contact-center/internal/events"
	"github.com/spec-kit/contact-center/internal/realtime"
)

// NotificationService forwards engine events to the real-time channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   realtime.Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier realtime.Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.forward(realtime.TicketCreated))
	n.dispatcher.Subscribe(events.EventMessageAppended, n.forward(realtime.MessageAppended))
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.forward(realtime.TicketAssigned))
}

// forward logs notifier failures instead of returning them.
func (n *NotificationService) forward(kind realtime.NotificationType) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		if n.notifier == nil {
			return nil
		}
		if err := n.notifier.Notify(ctx, event.TicketID, kind); err != nil {
			n.logger.Warn("real-time notification failed",
				zap.String("ticket_id", event.TicketID),
				zap.String("type", string(kind)),
				zap.Error(err))
		}
		return nil
	}
}
