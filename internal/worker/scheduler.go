package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/contact-center/internal/service"
)

// Rebalancer redistributes open tickets across available advisors.
type Rebalancer interface {
	BalanceAdvisors(ctx context.Context) (*service.RebalanceReport, error)
}

// RebalanceScheduler runs a rebalance on a cron schedule.
type RebalanceScheduler struct {
	cron       *cron.Cron
	rebalancer Rebalancer
	timeout    time.Duration
	logger     *zap.Logger
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewRebalanceScheduler parses a cron expression (five-field or @descriptor). An empty one
// disables scheduling and returns nil.
func NewRebalanceScheduler(expr string, rebalancer Rebalancer, logger *zap.Logger) (*RebalanceScheduler, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	schedule, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse rebalance schedule %q: %w", expr, err)
	}

	s := &RebalanceScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
		),
		rebalancer: rebalancer,
		timeout:    time.Minute,
		logger:     logger,
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.run))
	return s, nil
}

// Start begins firing the schedule.
func (s *RebalanceScheduler) Start() {
	s.cron.Start()
	s.logger.Info("rebalance scheduler started")
}

// Stop halts the schedule and waits for a running rebalance, bounded by ctx.
func (s *RebalanceScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("rebalance still running at shutdown")
	}
}

func (s *RebalanceScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.rebalancer.BalanceAdvisors(ctx)
	if err != nil {
		s.logger.Error("scheduled rebalance failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled rebalance finished",
		zap.Int("moves", len(report.Moves)),
		zap.Int("skipped", report.Skipped),
	)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
