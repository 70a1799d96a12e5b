package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/ticket-rush/internal/clock"
	"github.com/cimillas/ticket-rush/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	queueKeyPrefix    = "waitingroom:queue:"
	admittedKeyPrefix = "waitingroom:admitted:"
)

// admitScript moves the lowest-ranked members from the waiting ZSET into
// the admitted SET as one atomic unit, so a user is never both waiting and
// admitted, and never admitted twice, no matter how calls interleave.
var admitScript = goredis.NewScript(`
local members = redis.call('ZRANGE', KEYS[1], 0, tonumber(ARGV[1]) - 1)
for _, member in ipairs(members) do
	redis.call('ZREM', KEYS[1], member)
	redis.call('SADD', KEYS[2], member)
end
return members
`)

// AdmissionQueue ranks waiting buyers per event by enqueue time and tracks
// the admitted set that authorizes checkout. Membership in the admitted set
// has no expiry for the life of the event.
type AdmissionQueue struct {
	rdb   *goredis.Client
	clock clock.Clock
}

func NewAdmissionQueue(rdb *goredis.Client, clk clock.Clock) *AdmissionQueue {
	return &AdmissionQueue{rdb: rdb, clock: clk}
}

// Join enqueues the user with score = now and returns their 1-based rank.
// A user already ranked keeps their original score and rank; ties on score
// fall back to Redis's lexicographic member order, which is accepted.
func (q *AdmissionQueue) Join(ctx context.Context, userID, eventID string) (int, error) {
	score := float64(q.clock.Now().UnixMilli())

	if err := q.rdb.ZAddNX(ctx, queueKey(eventID), goredis.Z{
		Score:  score,
		Member: userID,
	}).Err(); err != nil {
		return 0, fmt.Errorf("join queue: %w", err)
	}

	rank, err := q.rdb.ZRank(ctx, queueKey(eventID), userID).Result()
	if err != nil {
		return 0, fmt.Errorf("queue rank: %w", err)
	}
	return int(rank) + 1, nil
}

// Position returns the user's 1-based rank, the admitted sentinel, or
// ErrQueueEntryNotFound when the user never joined.
func (q *AdmissionQueue) Position(ctx context.Context, userID, eventID string) (domain.QueuePosition, error) {
	rank, err := q.rdb.ZRank(ctx, queueKey(eventID), userID).Result()
	if err == nil {
		return domain.QueuePosition{
			UserID:   userID,
			EventID:  eventID,
			Position: int(rank) + 1,
		}, nil
	}
	if !errors.Is(err, goredis.Nil) {
		return domain.QueuePosition{}, fmt.Errorf("queue rank: %w", err)
	}

	admitted, err := q.rdb.SIsMember(ctx, admittedKey(eventID), userID).Result()
	if err != nil {
		return domain.QueuePosition{}, fmt.Errorf("admitted lookup: %w", err)
	}
	if !admitted {
		return domain.QueuePosition{}, domain.ErrQueueEntryNotFound
	}

	return domain.QueuePosition{
		UserID:   userID,
		EventID:  eventID,
		Position: domain.AdmittedPosition,
		Admitted: true,
	}, nil
}

// AdmitBatch atomically admits up to batchSize users in FIFO order and
// returns them lowest rank first.
func (q *AdmissionQueue) AdmitBatch(ctx context.Context, eventID string, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		return nil, domain.ErrInvalidBatchSize
	}

	res, err := admitScript.Run(ctx, q.rdb,
		[]string{queueKey(eventID), admittedKey(eventID)},
		batchSize,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("admit batch: %w", err)
	}
	return res, nil
}

// Remove drops the user from the waiting set only. Admitted users stay
// admitted.
func (q *AdmissionQueue) Remove(ctx context.Context, userID, eventID string) (bool, error) {
	removed, err := q.rdb.ZRem(ctx, queueKey(eventID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("remove from queue: %w", err)
	}
	return removed > 0, nil
}

// Status reports waiting and admitted counts for an event.
func (q *AdmissionQueue) Status(ctx context.Context, eventID string) (domain.QueueStatus, error) {
	waiting, err := q.rdb.ZCard(ctx, queueKey(eventID)).Result()
	if err != nil {
		return domain.QueueStatus{}, fmt.Errorf("queue size: %w", err)
	}
	admitted, err := q.rdb.SCard(ctx, admittedKey(eventID)).Result()
	if err != nil {
		return domain.QueueStatus{}, fmt.Errorf("admitted size: %w", err)
	}
	return domain.QueueStatus{
		EventID:       eventID,
		TotalWaiting:  waiting,
		TotalAdmitted: admitted,
	}, nil
}

func queueKey(eventID string) string {
	return queueKeyPrefix + eventID
}

func admittedKey(eventID string) string {
	return admittedKeyPrefix + eventID
}
