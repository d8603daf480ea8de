package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) (*miniredis.Miniredis, *RedisBlobFetcher) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisBlobFetcher(rdb, "mail:attachment")
}

func TestRedisBlobFetcherReturnsStagedContent(t *testing.T) {
	mr, fetcher := newTestFetcher(t)
	require.NoError(t, mr.Set("mail:attachment:prov-msg-1:prov-att-1", "%PDF-1.4"))

	data, err := fetcher.Fetch(context.Background(), "prov-msg-1", "prov-att-1")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestRedisBlobFetcherMissingContent(t *testing.T) {
	_, fetcher := newTestFetcher(t)

	_, err := fetcher.Fetch(context.Background(), "prov-msg-1", "prov-att-9")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	_, err = fetcher.Fetch(context.Background(), "prov-msg-1", "")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestRedisBlobFetcherRedisDown(t *testing.T) {
	mr, fetcher := newTestFetcher(t)
	mr.Close()

	_, err := fetcher.Fetch(context.Background(), "prov-msg-1", "prov-att-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBlobNotFound)
}
