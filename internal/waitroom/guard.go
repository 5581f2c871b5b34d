package waitroom

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DuplicateGuard keeps two membership sets per ticket: buyers currently
// attempting a purchase and buyers who already purchased. It short-circuits
// obvious duplicates before a stock unit is consumed; the authoritative check
// stays with the purchases uniqueness constraint.
type DuplicateGuard struct {
	rdb *redis.Client
}

func NewDuplicateGuard(rdb *redis.Client) *DuplicateGuard {
	return &DuplicateGuard{rdb: rdb}
}

func attemptingKey(ticketID int64) string {
	return fmt.Sprintf("waitroom:attempting:%d", ticketID)
}

func purchasedKey(ticketID int64) string {
	return fmt.Sprintf("waitroom:purchased:%d", ticketID)
}

// MarkAttempting records the buyer as in-flight. Returns false when the buyer
// was already marked, which is the duplicate-attempt signal. Each write
// refreshes the set's retention so finished sales shed their guard keys.
func (g *DuplicateGuard) MarkAttempting(ctx context.Context, ticketID int64, buyerID string) (bool, error) {
	pipe := g.rdb.TxPipeline()
	added := pipe.SAdd(ctx, attemptingKey(ticketID), buyerID)
	pipe.Expire(ctx, attemptingKey(ticketID), keyRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to mark attempting: %w", err)
	}
	return added.Val() == 1, nil
}

func (g *DuplicateGuard) ClearAttempting(ctx context.Context, ticketID int64, buyerID string) error {
	if err := g.rdb.SRem(ctx, attemptingKey(ticketID), buyerID).Err(); err != nil {
		return fmt.Errorf("failed to clear attempting: %w", err)
	}
	return nil
}

func (g *DuplicateGuard) IsAttempting(ctx context.Context, ticketID int64, buyerID string) (bool, error) {
	member, err := g.rdb.SIsMember(ctx, attemptingKey(ticketID), buyerID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check attempting: %w", err)
	}
	return member, nil
}

// MarkPurchased is an optimization over the purchases uniqueness constraint,
// so a bounded retention is safe: once the key lapses, duplicates still die
// on the database insert.
func (g *DuplicateGuard) MarkPurchased(ctx context.Context, ticketID int64, buyerID string) error {
	pipe := g.rdb.TxPipeline()
	pipe.SAdd(ctx, purchasedKey(ticketID), buyerID)
	pipe.Expire(ctx, purchasedKey(ticketID), keyRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark purchased: %w", err)
	}
	return nil
}

func (g *DuplicateGuard) ClearPurchased(ctx context.Context, ticketID int64, buyerID string) error {
	if err := g.rdb.SRem(ctx, purchasedKey(ticketID), buyerID).Err(); err != nil {
		return fmt.Errorf("failed to clear purchased: %w", err)
	}
	return nil
}

func (g *DuplicateGuard) IsPurchased(ctx context.Context, ticketID int64, buyerID string) (bool, error) {
	member, err := g.rdb.SIsMember(ctx, purchasedKey(ticketID), buyerID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check purchased: %w", err)
	}
	return member, nil
}
