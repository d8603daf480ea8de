// Package worker runs the background consumers: the inbound event pool and the
// scheduled advisor rebalance.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/observability"
	"github.com/spec-kit/contact-center/internal/queue"
	"github.com/spec-kit/contact-center/internal/routing"
	"github.com/spec-kit/contact-center/internal/service"
)

const receiveBackoff = time.Second

// Source is the queue the pool drains.
type Source interface {
	Receive(ctx context.Context) (*queue.Delivery, error)
	Ack(ctx context.Context, d *queue.Delivery) error
	Retry(ctx context.Context, d *queue.Delivery, maxAttempts int) (bool, error)
	Recover(ctx context.Context) (int, error)
}

// Processor routes a single inbound event.
type Processor interface {
	Process(ctx context.Context, event domain.InboundEmailEvent) (service.ProcessResult, error)
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	Workers     int
	MaxAttempts int
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// Pool consumes inbound events with a fixed number of goroutines.
type Pool struct {
	source      Source
	processor   Processor
	workers     int
	maxAttempts int
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewPool builds a pool. At least one worker always runs.
func NewPool(source Source, processor Processor, opts PoolOptions) *Pool {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		source:      source,
		processor:   processor,
		workers:     workers,
		maxAttempts: opts.MaxAttempts,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// Run recovers entries abandoned by a previous run and then consumes until ctx is
// cancelled. An event already being processed is allowed to finish.
func (p *Pool) Run(ctx context.Context) error {
	moved, err := p.source.Recover(ctx)
	if err != nil {
		return err
	}
	if moved > 0 {
		p.logger.Info("requeued in-flight events", zap.Int("count", moved))
	}

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, p.logger.With(zap.Int("worker", id)))
		}(i)
	}
	wg.Wait()
	return nil
}

func (p *Pool) loop(ctx context.Context, logger *zap.Logger) {
	for ctx.Err() == nil {
		d, err := p.source.Receive(ctx)
		if err != nil && !errors.Is(err, queue.ErrUndecodable) {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue receive failed", zap.Error(err))
			sleep(ctx, receiveBackoff)
			continue
		}
		if d == nil {
			continue
		}
		// Finish the delivery even when shutdown starts mid-way.
		p.handle(context.WithoutCancel(ctx), logger, d, err)
	}
}

func (p *Pool) handle(ctx context.Context, logger *zap.Logger, d *queue.Delivery, decodeErr error) {
	if decodeErr != nil {
		logger.Error("dropping undecodable queue entry", zap.Error(decodeErr))
		p.ack(ctx, logger, d)
		return
	}

	res, err := p.processor.Process(ctx, d.Event)
	switch {
	case err == nil:
		logger.Debug("inbound event processed",
			zap.String("outcome", string(res.Outcome)),
			zap.String("case", res.Case),
			zap.String("ticket_id", res.TicketID),
		)
		p.ack(ctx, logger, d)
	case errors.Is(err, routing.ErrMalformedEvent):
		logger.Warn("dropping malformed inbound event",
			zap.String("header_message_id", d.Event.HeaderMessageID),
			zap.Error(err),
		)
		p.ack(ctx, logger, d)
	default:
		requeued, retryErr := p.source.Retry(ctx, d, p.maxAttempts)
		if retryErr != nil {
			logger.Error("requeue inbound event", zap.Error(retryErr))
			return
		}
		if requeued {
			p.metrics.RecordRetry("requeued")
			logger.Warn("inbound event requeued",
				zap.String("header_message_id", d.Event.HeaderMessageID),
				zap.Int("attempt", d.Attempts+1),
				zap.Error(err),
			)
			return
		}
		p.metrics.RecordRetry("dropped")
		logger.Error("inbound event dropped after max attempts",
			zap.String("header_message_id", d.Event.HeaderMessageID),
			zap.Int("attempts", d.Attempts+1),
			zap.Error(err),
		)
	}
}

func (p *Pool) ack(ctx context.Context, logger *zap.Logger, d *queue.Delivery) {
	if err := p.source.Ack(ctx, d); err != nil {
		logger.Error("ack inbound event", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
