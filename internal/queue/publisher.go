package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/contact-center/internal/domain"
)

// Publisher enqueues inbound events. The mail connector is the production producer;
// this is used by tooling and tests.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a publisher targeting queueName.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{rdb: rdb, queueName: queueName}
}

// Publish pushes event wrapped in a fresh envelope and returns the envelope id.
func (p *Publisher) Publish(ctx context.Context, event domain.InboundEmailEvent) (string, error) {
	id := uuid.NewString()
	entry, err := encodeEnvelope(id, 0, event)
	if err != nil {
		return "", err
	}
	if err := p.rdb.LPush(ctx, p.queueName, entry).Err(); err != nil {
		return "", fmt.Errorf("redis LPUSH: %w", err)
	}
	return id, nil
}
