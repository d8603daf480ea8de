package balancer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/contact-center/internal/domain"
)

// Rotation picks the next advisor for a bucket of currently available advisors.
// Next returns nil when the list is empty.
type Rotation interface {
	Next(ctx context.Context, bucket string, advisors []domain.Advisor) (*domain.Advisor, error)
}

// LocalRotation keeps one monotonically increasing counter per bucket in memory.
// Counters restart at zero with the process.
type LocalRotation struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewLocalRotation creates an in-process rotation.
func NewLocalRotation() *LocalRotation {
	return &LocalRotation{counters: make(map[string]*atomic.Uint64)}
}

// Next implements Rotation.
func (r *LocalRotation) Next(_ context.Context, bucket string, advisors []domain.Advisor) (*domain.Advisor, error) {
	if len(advisors) == 0 {
		return nil, nil
	}
	idx := r.counter(bucket).Add(1) - 1
	picked := advisors[idx%uint64(len(advisors))]
	return &picked, nil
}

// Index returns the position the next call for bucket will start from.
func (r *LocalRotation) Index(bucket string, size int) int {
	if size <= 0 {
		return 0
	}
	return int(r.counter(bucket).Load() % uint64(size))
}

func (r *LocalRotation) counter(bucket string) *atomic.Uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[bucket]
	if !ok {
		c = &atomic.Uint64{}
		r.counters[bucket] = c
	}
	return c
}

const rotationKeyPrefix = "contact-center:rr:"

// RedisRotation shares the rotation counter between processes through INCR.
type RedisRotation struct {
	rdb *redis.Client
}

// NewRedisRotation creates a rotation backed by Redis counters.
func NewRedisRotation(rdb *redis.Client) *RedisRotation {
	return &RedisRotation{rdb: rdb}
}

// Next implements Rotation.
func (r *RedisRotation) Next(ctx context.Context, bucket string, advisors []domain.Advisor) (*domain.Advisor, error) {
	if len(advisors) == 0 {
		return nil, nil
	}
	n, err := r.rdb.Incr(ctx, rotationKeyPrefix+bucket).Result()
	if err != nil {
		return nil, fmt.Errorf("round robin INCR: %w", err)
	}
	idx := uint64(n-1) % uint64(len(advisors))
	picked := advisors[idx]
	return &picked, nil
}
