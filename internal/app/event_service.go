package app

import (
	"context"
	"time"

	"github.com/cimillas/ticket-rush/internal/clock"
	"github.com/cimillas/ticket-rush/internal/domain"
)

// EventRepository is the inventory storage consumed by the event service.
type EventRepository interface {
	Create(ctx context.Context, event domain.Event) error
	Get(ctx context.Context, eventID string) (domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	Reserve(ctx context.Context, eventID string, quantity int) error
	Release(ctx context.Context, eventID string, quantity int) error
}

// EventService fronts event creation and the inventory boundary exposed
// over HTTP for remote orchestrators.
type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{repo: repo, clock: clk}
}

type CreateEventInput struct {
	Name         string
	Location     string
	Price        float64
	TotalTickets int
	SaleStartsAt *time.Time
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	if in.TotalTickets <= 0 {
		return domain.Event{}, domain.ErrInvalidCapacity
	}

	now := s.clock.Now()
	saleStartsAt := now
	if in.SaleStartsAt != nil {
		saleStartsAt = *in.SaleStartsAt
	}

	event := domain.Event{
		ID:               newID(),
		Name:             in.Name,
		Location:         in.Location,
		Price:            in.Price,
		TotalTickets:     in.TotalTickets,
		AvailableTickets: in.TotalTickets,
		SaleStartsAt:     saleStartsAt,
		CreatedAt:        now,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	return s.repo.Get(ctx, eventID)
}

func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.List(ctx)
}

func (s *EventService) Reserve(ctx context.Context, eventID string, quantity int) error {
	if eventID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.Reserve(ctx, eventID, quantity)
}

func (s *EventService) Release(ctx context.Context, eventID string, quantity int) error {
	if eventID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.Release(ctx, eventID, quantity)
}
