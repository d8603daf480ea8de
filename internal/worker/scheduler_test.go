package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/contact-center/internal/service"
)

type countingRebalancer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRebalancer) BalanceAdvisors(context.Context) (*service.RebalanceReport, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &service.RebalanceReport{Loads: map[string]int{}}, nil
}

func TestNewRebalanceSchedulerDisabledWhenEmpty(t *testing.T) {
	s, err := NewRebalanceScheduler("  ", &countingRebalancer{}, nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewRebalanceSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewRebalanceScheduler("every tuesday", &countingRebalancer{}, nil)
	assert.Error(t, err)

	_, err = NewRebalanceScheduler("0 0 * * * *", &countingRebalancer{}, nil)
	assert.Error(t, err, "six-field specs are not accepted")
}

func TestRebalanceSchedulerAcceptsDescriptors(t *testing.T) {
	s, err := NewRebalanceScheduler("@hourly", &countingRebalancer{}, nil)
	require.NoError(t, err)
	require.NotNil(t, s)

	s, err = NewRebalanceScheduler("*/15 * * * *", &countingRebalancer{}, nil)
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestRebalanceSchedulerRunsJob(t *testing.T) {
	r := &countingRebalancer{}
	s, err := NewRebalanceScheduler("@every 1s", r, nil)
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestRebalanceSchedulerSurvivesFailures(t *testing.T) {
	r := &countingRebalancer{err: errors.New("no database")}
	s, err := NewRebalanceScheduler("@daily", r, nil)
	require.NoError(t, err)

	s.run()
	s.run()
	assert.EqualValues(t, 2, r.calls.Load())
}
