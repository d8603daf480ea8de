package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Consumer takes entries from the right end of the queue and parks them on a
// processing list until they are acknowledged or retried.
type Consumer struct {
	rdb        *redis.Client
	queueName  string
	processing string
	block      time.Duration
}

// NewConsumer creates a consumer for queueName. Each consumer parks entries on its own
// processing list, "<queueName>:processing:<consumerID>", so consumerID must be stable
// across restarts of the same process and distinct between live processes.
func NewConsumer(rdb *redis.Client, queueName, consumerID string, block time.Duration) *Consumer {
	if block <= 0 {
		block = time.Second
	}
	if consumerID == "" {
		consumerID = "default"
	}
	return &Consumer{
		rdb:        rdb,
		queueName:  queueName,
		processing: ProcessingListName(queueName, consumerID),
		block:      block,
	}
}

// ProcessingListName returns the in-flight list owned by consumerID.
func ProcessingListName(queueName, consumerID string) string {
	return queueName + ":processing:" + consumerID
}

// ProcessingList returns the name of the in-flight list.
func (c *Consumer) ProcessingList() string {
	return c.processing
}

// Receive blocks up to the configured timeout for the next entry. It returns
// (nil, nil) on timeout. An entry that cannot be decoded is returned together with an
// error wrapping ErrUndecodable so the caller can acknowledge it away.
func (c *Consumer) Receive(ctx context.Context) (*Delivery, error) {
	raw, err := c.rdb.BLMove(ctx, c.queueName, c.processing, "RIGHT", "LEFT", c.block).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis BLMOVE: %w", err)
	}
	return decodeEntry(raw)
}

// Ack removes a handled delivery from the processing list.
func (c *Consumer) Ack(ctx context.Context, d *Delivery) error {
	if err := c.rdb.LRem(ctx, c.processing, 1, d.raw).Err(); err != nil {
		return fmt.Errorf("redis LREM: %w", err)
	}
	return nil
}

// Retry puts a failed delivery back on the queue with one more attempt recorded.
// Once maxAttempts is reached the delivery is removed instead and Retry reports
// false.
func (c *Consumer) Retry(ctx context.Context, d *Delivery, maxAttempts int) (bool, error) {
	attempts := d.Attempts + 1
	if maxAttempts > 0 && attempts >= maxAttempts {
		return false, c.Ack(ctx, d)
	}

	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	entry, err := encodeEnvelope(id, attempts, d.Event)
	if err != nil {
		return false, err
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, c.queueName, entry)
		pipe.LRem(ctx, c.processing, 1, d.raw)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("requeue delivery: %w", err)
	}
	return true, nil
}

// Recover moves every entry left on this consumer's processing list by a previous run
// back to the consuming end of the queue, oldest first. Lists owned by other consumers
// are never touched.
func (c *Consumer) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := c.rdb.LMove(ctx, c.processing, c.queueName, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("redis LMOVE: %w", err)
		}
		moved++
	}
}

// Depth returns the number of queued entries and of entries in flight on this
// consumer.
func (c *Consumer) Depth(ctx context.Context) (queued, inFlight int64, err error) {
	pipe := c.rdb.Pipeline()
	q := pipe.LLen(ctx, c.queueName)
	p := pipe.LLen(ctx, c.processing)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("queue depth: %w", err)
	}
	return q.Val(), p.Val(), nil
}
