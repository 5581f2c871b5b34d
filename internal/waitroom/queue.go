package waitroom

import (
	"context"
	"fmt"
	"time"

	apperrors "turnstile/internal/errors"

	"github.com/redis/go-redis/v9"
)

// WaitingQueue is the per-ticket arrival order, hosted in a shared sorted set
// (member = buyer ID, score = enqueue time in milliseconds). The sorted set is
// shared across all service instances; nothing here is process-local.
//
// Tie-break on identical enqueue timestamps: equal-score members are ordered
// lexicographically by buyer ID, which keeps positions deterministic.
type WaitingQueue struct {
	rdb          *redis.Client
	heartbeatTTL time.Duration
}

func NewWaitingQueue(rdb *redis.Client, heartbeatTTL time.Duration) *WaitingQueue {
	return &WaitingQueue{rdb: rdb, heartbeatTTL: heartbeatTTL}
}

func queueKey(ticketID int64) string {
	return fmt.Sprintf("waitroom:queue:%d", ticketID)
}

func heartbeatKey(ticketID int64, buyerID string) string {
	return fmt.Sprintf("waitroom:hb:%d:%s", ticketID, buyerID)
}

// Enqueue adds the buyer to the queue and returns the zero-based position.
// A buyer already present keeps the original score (arrival order is never
// reset); the call then only refreshes the heartbeat.
func (q *WaitingQueue) Enqueue(ctx context.Context, ticketID int64, buyerID string) (int64, error) {
	score := float64(time.Now().UnixMilli())

	// NX: an existing member keeps its score, so re-enqueue is a heartbeat
	if err := q.rdb.ZAddNX(ctx, queueKey(ticketID), redis.Z{
		Score:  score,
		Member: buyerID,
	}).Err(); err != nil {
		return 0, fmt.Errorf("failed to enqueue buyer: %w", err)
	}

	if err := q.rdb.Set(ctx, heartbeatKey(ticketID, buyerID), 1, q.heartbeatTTL).Err(); err != nil {
		return 0, fmt.Errorf("failed to set heartbeat: %w", err)
	}

	return q.Position(ctx, ticketID, buyerID)
}

// Position returns the buyer's zero-based rank by enqueue time
func (q *WaitingQueue) Position(ctx context.Context, ticketID int64, buyerID string) (int64, error) {
	rank, err := q.rdb.ZRank(ctx, queueKey(ticketID), buyerID).Result()
	if err == redis.Nil {
		return 0, apperrors.ErrInvalidWaitOrder
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get queue rank: %w", err)
	}
	return rank, nil
}

// Heartbeat refreshes the buyer's liveness window
func (q *WaitingQueue) Heartbeat(ctx context.Context, ticketID int64, buyerID string) error {
	err := q.rdb.ZScore(ctx, queueKey(ticketID), buyerID).Err()
	if err == redis.Nil {
		return apperrors.ErrInvalidWaitOrder
	}
	if err != nil {
		return fmt.Errorf("failed to check queue membership: %w", err)
	}

	if err := q.rdb.Set(ctx, heartbeatKey(ticketID, buyerID), 1, q.heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh heartbeat: %w", err)
	}
	return nil
}

// Remove withdraws a buyer from the queue
func (q *WaitingQueue) Remove(ctx context.Context, ticketID int64, buyerID string) error {
	if err := q.rdb.ZRem(ctx, queueKey(ticketID), buyerID).Err(); err != nil {
		return fmt.Errorf("failed to remove buyer from queue: %w", err)
	}
	if err := q.rdb.Del(ctx, heartbeatKey(ticketID, buyerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete heartbeat: %w", err)
	}
	return nil
}

// Depth returns the current number of waiting buyers
func (q *WaitingQueue) Depth(ctx context.Context, ticketID int64) (int64, error) {
	depth, err := q.rdb.ZCard(ctx, queueKey(ticketID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return depth, nil
}

// frontWindowEnd converts the sweep window into the inclusive ZRange stop
// index. A non-positive window inspects nothing; without the guard a stop of
// -1 would make ZRange read the whole queue.
func frontWindowEnd(window int64) (int64, bool) {
	if window <= 0 {
		return 0, false
	}
	return window - 1, true
}

// SweepExpired inspects up to window entries from the front of the queue and
// evicts those whose heartbeat key has expired. The sorted set does not
// self-expire, and staleness concentrates at the front because the queue is
// time-ordered, so a bounded front window is sufficient.
func (q *WaitingQueue) SweepExpired(ctx context.Context, ticketID int64, window int64) ([]string, error) {
	stop, ok := frontWindowEnd(window)
	if !ok {
		return nil, nil
	}

	front, err := q.rdb.ZRange(ctx, queueKey(ticketID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue front: %w", err)
	}

	var evicted []string
	for _, buyerID := range front {
		alive, err := q.rdb.Exists(ctx, heartbeatKey(ticketID, buyerID)).Result()
		if err != nil {
			return evicted, fmt.Errorf("failed to check heartbeat: %w", err)
		}
		if alive > 0 {
			continue
		}
		if err := q.rdb.ZRem(ctx, queueKey(ticketID), buyerID).Err(); err != nil {
			return evicted, fmt.Errorf("failed to evict stale entry: %w", err)
		}
		evicted = append(evicted, buyerID)
	}

	return evicted, nil
}
