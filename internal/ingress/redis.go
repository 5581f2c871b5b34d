package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"

	"github.com/redis/go-redis/v9"
)

const redisBufferKey = "ingress:intents"

// offerScript pushes only while the list is under capacity, atomically, so
// concurrent producers cannot overfill the buffer.
var offerScript = redis.NewScript(`
if redis.call('LLEN', KEYS[1]) < tonumber(ARGV[2]) then
  redis.call('RPUSH', KEYS[1], ARGV[1])
  return 1
end
return 0
`)

// RedisBuffer is the distributed Buffer shared by all service instances
type RedisBuffer struct {
	rdb          *redis.Client
	capacity     int64
	offerTimeout time.Duration
}

func NewRedisBuffer(rdb *redis.Client, capacity int, offerTimeout time.Duration) *RedisBuffer {
	return &RedisBuffer{
		rdb:          rdb,
		capacity:     int64(capacity),
		offerTimeout: offerTimeout,
	}
}

// Offer retries the conditional push until space appears or the bounded wait
// elapses, then reports the buffer as full
func (b *RedisBuffer) Offer(ctx context.Context, intent models.EnqueueIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	deadline := time.Now().Add(b.offerTimeout)
	for {
		ok, err := offerScript.Run(ctx, b.rdb, []string{redisBufferKey}, payload, b.capacity).Int64()
		if err != nil {
			return fmt.Errorf("failed to offer intent: %w", err)
		}
		if ok == 1 {
			return nil
		}
		if time.Now().After(deadline) {
			return apperrors.ErrQueueFull
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (b *RedisBuffer) Poll(ctx context.Context) (*models.EnqueueIntent, error) {
	payload, err := b.rdb.LPop(ctx, redisBufferKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to poll intent: %w", err)
	}

	var intent models.EnqueueIntent
	if err := json.Unmarshal(payload, &intent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
	}
	return &intent, nil
}

// DrainBatch pops up to n intents in one round trip. LPOP with a count is
// atomic, so two draining instances never see the same item.
func (b *RedisBuffer) DrainBatch(ctx context.Context, n int) ([]models.EnqueueIntent, error) {
	payloads, err := b.rdb.LPopCount(ctx, redisBufferKey, n).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to drain intents: %w", err)
	}

	batch := make([]models.EnqueueIntent, 0, len(payloads))
	for _, payload := range payloads {
		var intent models.EnqueueIntent
		if err := json.Unmarshal([]byte(payload), &intent); err != nil {
			return batch, fmt.Errorf("failed to unmarshal intent: %w", err)
		}
		batch = append(batch, intent)
	}
	return batch, nil
}

func (b *RedisBuffer) Size(ctx context.Context) (int64, error) {
	size, err := b.rdb.LLen(ctx, redisBufferKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read buffer size: %w", err)
	}
	return size, nil
}

func (b *RedisBuffer) Capacity() int64 {
	return b.capacity
}
