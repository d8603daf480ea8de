package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrBlobNotFound is returned when the connector holds no content for an attachment.
var ErrBlobNotFound = errors.New("attachment content not found")

// AttachmentFetcher resolves the content of an attachment the connector reported only
// by its provider id.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, providerMessageID, providerAttachmentID string) ([]byte, error)
}

// RedisBlobFetcher reads attachment content the connector staged in Redis under
// "<prefix>:<provider message id>:<provider attachment id>".
type RedisBlobFetcher struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisBlobFetcher creates a fetcher for keys below prefix.
func NewRedisBlobFetcher(rdb *redis.Client, prefix string) *RedisBlobFetcher {
	return &RedisBlobFetcher{rdb: rdb, prefix: prefix}
}

// BlobKey returns the key a staged attachment lives under.
func (f *RedisBlobFetcher) BlobKey(providerMessageID, providerAttachmentID string) string {
	return f.prefix + ":" + providerMessageID + ":" + providerAttachmentID
}

// Fetch returns the staged bytes or ErrBlobNotFound.
func (f *RedisBlobFetcher) Fetch(ctx context.Context, providerMessageID, providerAttachmentID string) ([]byte, error) {
	if providerAttachmentID == "" {
		return nil, ErrBlobNotFound
	}
	data, err := f.rdb.Get(ctx, f.BlobKey(providerMessageID, providerAttachmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET attachment: %w", err)
	}
	return data, nil
}
