package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/contact-center/internal/domain"
)

func newTestQueue(t *testing.T) (*miniredis.Miniredis, *Publisher, *Consumer) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewPublisher(rdb, "mail:inbound"), NewConsumer(rdb, "mail:inbound", "worker-1", time.Second)
}

func sampleEvent(header string) domain.InboundEmailEvent {
	return domain.InboundEmailEvent{
		MessageID:       "prov-" + header,
		HeaderMessageID: header,
		ThreadID:        "thr-1",
		From:            "citizen@example.com",
		To:              []string{"atencion@city.gov"},
		Subject:         "Consulta",
		Date:            time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublishReceiveAck(t *testing.T) {
	mr, pub, con := newTestQueue(t)
	ctx := context.Background()

	id, err := pub.Publish(ctx, sampleEvent("<a@x>"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	d, err := con.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, 0, d.Attempts)
	assert.Equal(t, "<a@x>", d.Event.HeaderMessageID)

	queued, inFlight, err := con.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, queued)
	assert.EqualValues(t, 1, inFlight)

	require.NoError(t, con.Ack(ctx, d))
	assert.False(t, mr.Exists(con.ProcessingList()))
}

func TestReceiveIsFIFO(t *testing.T) {
	_, pub, con := newTestQueue(t)
	ctx := context.Background()

	for _, h := range []string{"<1@x>", "<2@x>", "<3@x>"} {
		_, err := pub.Publish(ctx, sampleEvent(h))
		require.NoError(t, err)
	}
	for _, want := range []string{"<1@x>", "<2@x>", "<3@x>"} {
		d, err := con.Receive(ctx)
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, want, d.Event.HeaderMessageID)
	}
}

func TestReceiveTimesOutOnEmptyQueue(t *testing.T) {
	_, _, con := newTestQueue(t)

	d, err := con.Receive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestReceiveAcceptsBareEvent(t *testing.T) {
	mr, _, con := newTestQueue(t)
	_, err := mr.Lpush("mail:inbound", `{"header_message_id":"<bare@x>","thread_id":"t","from":"a@b.c","date":"2024-03-01T10:00:00Z"}`)
	require.NoError(t, err)

	d, err := con.Receive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Empty(t, d.ID)
	assert.Equal(t, "<bare@x>", d.Event.HeaderMessageID)
}

func TestReceiveFlagsUndecodableEntry(t *testing.T) {
	mr, _, con := newTestQueue(t)
	_, err := mr.Lpush("mail:inbound", "not json")
	require.NoError(t, err)

	ctx := context.Background()
	d, err := con.Receive(ctx)
	require.ErrorIs(t, err, ErrUndecodable)
	require.NotNil(t, d)

	require.NoError(t, con.Ack(ctx, d))
	assert.False(t, mr.Exists(con.ProcessingList()))
}

func TestRetryRequeuesUntilMaxAttempts(t *testing.T) {
	mr, pub, con := newTestQueue(t)
	ctx := context.Background()

	id, err := pub.Publish(ctx, sampleEvent("<r@x>"))
	require.NoError(t, err)

	d, err := con.Receive(ctx)
	require.NoError(t, err)
	requeued, err := con.Retry(ctx, d, 3)
	require.NoError(t, err)
	assert.True(t, requeued)
	assert.False(t, mr.Exists(con.ProcessingList()))

	d, err = con.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, 1, d.Attempts)
	assert.Equal(t, "<r@x>", d.Event.HeaderMessageID)

	requeued, err = con.Retry(ctx, d, 3)
	require.NoError(t, err)
	assert.True(t, requeued)

	d, err = con.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Attempts)

	requeued, err = con.Retry(ctx, d, 3)
	require.NoError(t, err)
	assert.False(t, requeued)

	queued, inFlight, err := con.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, queued)
	assert.EqualValues(t, 0, inFlight)
}

func TestRecoverRestoresInFlightEntries(t *testing.T) {
	_, pub, con := newTestQueue(t)
	ctx := context.Background()

	for _, h := range []string{"<1@x>", "<2@x>"} {
		_, err := pub.Publish(ctx, sampleEvent(h))
		require.NoError(t, err)
	}
	_, err := con.Receive(ctx)
	require.NoError(t, err)
	_, err = con.Receive(ctx)
	require.NoError(t, err)

	moved, err := con.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	for _, want := range []string{"<1@x>", "<2@x>"} {
		d, err := con.Receive(ctx)
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, want, d.Event.HeaderMessageID)
	}
}

func TestRecoverLeavesOtherConsumersInFlight(t *testing.T) {
	mr, pub, first := newTestQueue(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	second := NewConsumer(rdb, "mail:inbound", "worker-2", time.Second)
	ctx := context.Background()

	assert.Equal(t, "mail:inbound:processing:worker-1", first.ProcessingList())
	assert.Equal(t, "mail:inbound:processing:worker-2", second.ProcessingList())

	_, err := pub.Publish(ctx, sampleEvent("<busy@x>"))
	require.NoError(t, err)
	d, err := first.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)

	moved, err := second.Recover(ctx)
	require.NoError(t, err)
	assert.Zero(t, moved, "a starting consumer does not steal entries another one is handling")
	queued, inFlight, err := first.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, queued)
	assert.EqualValues(t, 1, inFlight)

	restarted := NewConsumer(rdb, "mail:inbound", "worker-1", time.Second)
	moved, err = restarted.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	d, err = second.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "<busy@x>", d.Event.HeaderMessageID)
}
