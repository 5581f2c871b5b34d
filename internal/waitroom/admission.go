package waitroom

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyRetention bounds how long per-ticket admission and guard keys outlive
// their last write. Long past any sale window; the purchases table remains
// the durable record once the keys lapse.
const keyRetention = 24 * time.Hour

// AdmissionGate holds the per-ticket admitted-through threshold in the shared
// store. The threshold counts admitted entries; a buyer is admitted iff its
// zero-based position is strictly below the threshold. The value only grows,
// and never past the queue depth known at advance time, so admission tracks
// real demand while the queue is still filling.
type AdmissionGate struct {
	rdb *redis.Client
}

func NewAdmissionGate(rdb *redis.Client) *AdmissionGate {
	return &AdmissionGate{rdb: rdb}
}

func admittedKey(ticketID int64) string {
	return fmt.Sprintf("waitroom:admitted:%d", ticketID)
}

// advanceScript bumps the threshold by chunk, clamped to the current queue
// depth, and never lets it decrease. Runs atomically so concurrent advances
// from multiple instances cannot overshoot. Every advance refreshes the key
// retention so concluded sales do not leave thresholds behind forever.
var advanceScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local cand = cur + tonumber(ARGV[1])
local depth = tonumber(ARGV[2])
if cand > depth then
  cand = depth
end
if cand > cur then
  redis.call('SET', KEYS[1], cand)
  cur = cand
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return cur
`)

// NextThreshold is the advance rule the script applies: bump by chunk,
// clamp to the current depth, never go backwards.
func NextThreshold(current, chunkSize, currentDepth int64) int64 {
	candidate := current + chunkSize
	if candidate > currentDepth {
		candidate = currentDepth
	}
	if candidate > current {
		return candidate
	}
	return current
}

// Advance moves the admitted-through threshold and returns the new value
func (g *AdmissionGate) Advance(ctx context.Context, ticketID, chunkSize, currentDepth int64) (int64, error) {
	res, err := advanceScript.Run(ctx, g.rdb, []string{admittedKey(ticketID)}, chunkSize, currentDepth, keyRetention.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to advance admission threshold: %w", err)
	}
	return res, nil
}

// AdmittedThrough returns the current threshold, zero when never advanced
func (g *AdmissionGate) AdmittedThrough(ctx context.Context, ticketID int64) (int64, error) {
	val, err := g.rdb.Get(ctx, admittedKey(ticketID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read admission threshold: %w", err)
	}
	return val, nil
}
