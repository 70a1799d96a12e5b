package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cimillas/ticket-rush/internal/clock"
	"github.com/cimillas/ticket-rush/internal/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const holdKeyPrefix = "ticket:hold:"

// HoldStore keeps reservation records in Redis under a per-key TTL. The
// TTL eviction is the primary expiry mechanism and is fire-and-forget:
// expiry is only ever discovered lazily, when Get is asked for the record.
type HoldStore struct {
	rdb   *goredis.Client
	clock clock.Clock
}

func NewHoldStore(rdb *goredis.Client, clk clock.Clock) *HoldStore {
	return &HoldStore{rdb: rdb, clock: clk}
}

// Create stores a new hold expiring after ttl and returns it.
func (s *HoldStore) Create(ctx context.Context, eventID, userID string, quantity int, totalPrice float64, ttl time.Duration) (domain.Hold, error) {
	now := s.clock.Now()
	hold := domain.Hold{
		ID:         uuid.NewString(),
		EventID:    eventID,
		UserID:     userID,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		Active:     true,
	}

	payload, err := json.Marshal(hold)
	if err != nil {
		return domain.Hold{}, fmt.Errorf("marshal hold: %w", err)
	}
	if err := s.rdb.Set(ctx, holdKey(hold.ID), payload, ttl).Err(); err != nil {
		return domain.Hold{}, fmt.Errorf("store hold: %w", err)
	}
	return hold, nil
}

// Get returns the hold if the store still has it. A record retrieved past
// its own ExpiresAt comes back with Active=false even when eviction has not
// caught up yet; callers must check ActiveAt rather than mere presence.
func (s *HoldStore) Get(ctx context.Context, holdID string) (domain.Hold, error) {
	payload, err := s.rdb.Get(ctx, holdKey(holdID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}

	var hold domain.Hold
	if err := json.Unmarshal(payload, &hold); err != nil {
		return domain.Hold{}, fmt.Errorf("unmarshal hold: %w", err)
	}
	if !hold.ExpiresAt.After(s.clock.Now()) {
		hold.Active = false
	}
	return hold, nil
}

// Release deletes the hold immediately. Deleting an absent key is not an
// error, so a confirm racing the sweep stays idempotent.
func (s *HoldStore) Release(ctx context.Context, holdID string) error {
	if err := s.rdb.Del(ctx, holdKey(holdID)).Err(); err != nil {
		return fmt.Errorf("release hold: %w", err)
	}
	return nil
}

// Extend re-writes the hold with a later expiry and a stretched TTL.
func (s *HoldStore) Extend(ctx context.Context, holdID string, extra time.Duration) (domain.Hold, error) {
	hold, err := s.Get(ctx, holdID)
	if err != nil {
		return domain.Hold{}, err
	}
	now := s.clock.Now()
	if !hold.ActiveAt(now) {
		return domain.Hold{}, domain.ErrHoldExpired
	}

	hold.ExpiresAt = hold.ExpiresAt.Add(extra)
	payload, err := json.Marshal(hold)
	if err != nil {
		return domain.Hold{}, fmt.Errorf("marshal hold: %w", err)
	}
	if err := s.rdb.Set(ctx, holdKey(holdID), payload, hold.ExpiresAt.Sub(now)).Err(); err != nil {
		return domain.Hold{}, fmt.Errorf("extend hold: %w", err)
	}
	return hold, nil
}

func holdKey(holdID string) string {
	return holdKeyPrefix + holdID
}
