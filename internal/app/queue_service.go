package app

import (
	"context"
	"time"

	"github.com/cimillas/ticket-rush/internal/domain"
)

// Queue is the ranked waiting-room structure consumed by the service.
type Queue interface {
	Join(ctx context.Context, userID, eventID string) (int, error)
	Position(ctx context.Context, userID, eventID string) (domain.QueuePosition, error)
	AdmitBatch(ctx context.Context, eventID string, batchSize int) ([]string, error)
	Remove(ctx context.Context, userID, eventID string) (bool, error)
	Status(ctx context.Context, eventID string) (domain.QueueStatus, error)
}

type QueueService struct {
	queue       Queue
	perUserWait time.Duration
}

const defaultPerUserWait = 30 * time.Second

func NewQueueService(queue Queue, opts ...QueueServiceOption) *QueueService {
	svc := &QueueService{
		queue:       queue,
		perUserWait: defaultPerUserWait,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type QueueServiceOption func(*QueueService)

// WithPerUserWait overrides the advisory per-user wait estimate.
func WithPerUserWait(d time.Duration) QueueServiceOption {
	return func(s *QueueService) {
		if d > 0 {
			s.perUserWait = d
		}
	}
}

type JoinResult struct {
	UserID        string
	EventID       string
	Position      int
	EstimatedWait time.Duration
}

func (s *QueueService) Join(ctx context.Context, userID, eventID string) (JoinResult, error) {
	if userID == "" {
		return JoinResult{}, domain.ErrUserIDRequired
	}
	if eventID == "" {
		return JoinResult{}, domain.ErrInvalidID
	}

	position, err := s.queue.Join(ctx, userID, eventID)
	if err != nil {
		return JoinResult{}, err
	}
	return JoinResult{
		UserID:        userID,
		EventID:       eventID,
		Position:      position,
		EstimatedWait: s.estimate(position),
	}, nil
}

type PositionResult struct {
	domain.QueuePosition
	EstimatedWait time.Duration
}

func (s *QueueService) Position(ctx context.Context, userID, eventID string) (PositionResult, error) {
	if userID == "" {
		return PositionResult{}, domain.ErrUserIDRequired
	}
	if eventID == "" {
		return PositionResult{}, domain.ErrInvalidID
	}

	pos, err := s.queue.Position(ctx, userID, eventID)
	if err != nil {
		return PositionResult{}, err
	}
	return PositionResult{
		QueuePosition: pos,
		EstimatedWait: s.estimate(pos.Position),
	}, nil
}

func (s *QueueService) AdmitBatch(ctx context.Context, eventID string, batchSize int) ([]string, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	if batchSize <= 0 {
		return nil, domain.ErrInvalidBatchSize
	}
	return s.queue.AdmitBatch(ctx, eventID, batchSize)
}

func (s *QueueService) Remove(ctx context.Context, userID, eventID string) (bool, error) {
	if userID == "" {
		return false, domain.ErrUserIDRequired
	}
	if eventID == "" {
		return false, domain.ErrInvalidID
	}
	return s.queue.Remove(ctx, userID, eventID)
}

type StatusResult struct {
	domain.QueueStatus
	EstimatedWait time.Duration
}

func (s *QueueService) Status(ctx context.Context, eventID string) (StatusResult, error) {
	if eventID == "" {
		return StatusResult{}, domain.ErrInvalidID
	}

	status, err := s.queue.Status(ctx, eventID)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{
		QueueStatus:   status,
		EstimatedWait: time.Duration(status.TotalWaiting) * s.perUserWait,
	}, nil
}

func (s *QueueService) estimate(position int) time.Duration {
	if position <= 0 {
		return 0
	}
	return time.Duration(position) * s.perUserWait
}
