// Package realtime pushes ticket change notifications to connected front ends
// through Redis Pub/Sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NotificationType is the kind of change a front end should refresh for.
type NotificationType string

const (
	TicketCreated   NotificationType = "ticket_created"
	MessageAppended NotificationType = "message_appended"
	TicketAssigned  NotificationType = "ticket_assigned"
)

// Notification is the payload published on the channel.
type Notification struct {
	TicketID  string           `json:"ticket_id"`
	Type      NotificationType `json:"type"`
	Timestamp int64            `json:"timestamp"`
}

// Notifier publishes ticket notifications.
type Notifier interface {
	Notify(ctx context.Context, ticketID string, kind NotificationType) error
}

// RedisNotifier publishes notifications on a single Redis channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisNotifier creates a notifier for channel.
func NewRedisNotifier(client *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger, now: time.Now}
}

// Notify publishes one notification. Nobody listening is not an error.
func (n *RedisNotifier) Notify(ctx context.Context, ticketID string, kind NotificationType) error {
	data, err := json.Marshal(Notification{
		TicketID:  ticketID,
		Type:      kind,
		Timestamp: n.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	receivers, err := n.client.Publish(ctx, n.channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	n.logger.Debug("notification published",
		zap.String("channel", n.channel),
		zap.String("ticket_id", ticketID),
		zap.String("type", string(kind)),
		zap.Int64("receivers", receivers),
	)
	return nil
}
