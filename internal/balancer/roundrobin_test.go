package balancer

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/contact-center/internal/domain"
)

func advisorsABC() []domain.Advisor {
	return []domain.Advisor{
		{UserID: "A", InboxID: "inbox-a"},
		{UserID: "B", InboxID: "inbox-b"},
		{UserID: "C", InboxID: "inbox-c"},
	}
}

func TestLocalRotationScenario(t *testing.T) {
	r := NewLocalRotation()
	ctx := context.Background()
	advisors := advisorsABC()

	var got []string
	for i := 0; i < 4; i++ {
		adv, err := r.Next(ctx, "email", advisors)
		require.NoError(t, err)
		require.NotNil(t, adv)
		got = append(got, adv.UserID)
	}
	assert.Equal(t, []string{"A", "B", "C", "A"}, got)
	assert.Equal(t, 1, r.Index("email", len(advisors)), "index now points to B")
}

func TestLocalRotationEmpty(t *testing.T) {
	adv, err := NewLocalRotation().Next(context.Background(), "email", nil)
	require.NoError(t, err)
	assert.Nil(t, adv)
}

func TestLocalRotationFairness(t *testing.T) {
	r := NewLocalRotation()
	advisors := advisorsABC()
	counts := map[string]int{}
	for i := 0; i < 30; i++ {
		adv, err := r.Next(context.Background(), "email", advisors)
		require.NoError(t, err)
		counts[adv.UserID]++
	}
	assert.Equal(t, map[string]int{"A": 10, "B": 10, "C": 10}, counts)
}

func TestLocalRotationBucketsAreIndependent(t *testing.T) {
	r := NewLocalRotation()
	ctx := context.Background()
	advisors := advisorsABC()

	first, _ := r.Next(ctx, "email", advisors)
	other, _ := r.Next(ctx, "chat", advisors)
	assert.Equal(t, "A", first.UserID)
	assert.Equal(t, "A", other.UserID)
}

func TestLocalRotationConcurrent(t *testing.T) {
	r := NewLocalRotation()
	advisors := advisorsABC()
	const perWorker, workers = 300, 8

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				adv, err := r.Next(context.Background(), "email", advisors)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				counts[adv.UserID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	total := perWorker * workers
	for _, adv := range advisors {
		assert.Equal(t, total/len(advisors), counts[adv.UserID], adv.UserID)
	}
}

func TestRedisRotationSharesCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	first := NewRedisRotation(newClient())
	second := NewRedisRotation(newClient())
	ctx := context.Background()
	advisors := advisorsABC()

	var got []string
	for i := 0; i < 6; i++ {
		r := first
		if i%2 == 1 {
			r = second
		}
		adv, err := r.Next(ctx, "email", advisors)
		require.NoError(t, err)
		got = append(got, adv.UserID)
	}
	assert.Equal(t, []string{"A", "B", "C", "A", "B", "C"}, got)

	val, err := mr.Get(rotationKeyPrefix + "email")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(6), val)
}

func TestRedisRotationEmptyDoesNotTouchRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisRotation(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	adv, err := r.Next(context.Background(), "email", nil)
	require.NoError(t, err)
	assert.Nil(t, adv)
	assert.False(t, mr.Exists(rotationKeyPrefix+"email"))
}
