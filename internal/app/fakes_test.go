package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/ticket-rush/internal/domain"
)

type fakeOrderStore struct {
	orders      map[string]domain.Order
	createErr   error
	setHoldErr  error
	transitions []string
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]domain.Order)}
}

func (f *fakeOrderStore) Create(ctx context.Context, order domain.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderStore) Get(ctx context.Context, orderID string) (domain.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) SetHoldID(ctx context.Context, orderID, holdID string) error {
	if f.setHoldErr != nil {
		return f.setHoldErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.HoldID = holdID
	f.orders[orderID] = order
	return nil
}

func (f *fakeOrderStore) TransitionFromActive(ctx context.Context, orderID string, status domain.OrderStatus) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return false, nil
	}
	order.Status = status
	f.orders[orderID] = order
	f.transitions = append(f.transitions, orderID+":"+string(status))
	return true, nil
}

func (f *fakeOrderStore) Complete(ctx context.Context, orderID, paymentID string, completedAt time.Time) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return false, nil
	}
	order.Status = domain.OrderStatusCompleted
	order.PaymentID = paymentID
	order.CompletedAt = &completedAt
	f.orders[orderID] = order
	return true, nil
}

func (f *fakeOrderStore) FindExpiredPending(ctx context.Context, now time.Time) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.Status == domain.OrderStatusPending && !o.ExpiresAt.After(now) {
			out = append(out, o)
		}
	}
	return out, nil
}

type releaseCall struct {
	eventID  string
	quantity int
}

type fakeInventory struct {
	events       map[string]domain.Event
	reserveErrs  []error
	releaseErr   error
	reserveCalls int
	releases     []releaseCall
}

func newFakeInventory(events ...domain.Event) *fakeInventory {
	f := &fakeInventory{events: make(map[string]domain.Event)}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeInventory) Get(ctx context.Context, eventID string) (domain.Event, error) {
	event, ok := f.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

func (f *fakeInventory) Reserve(ctx context.Context, eventID string, quantity int) error {
	f.reserveCalls++
	if len(f.reserveErrs) > 0 {
		err := f.reserveErrs[0]
		f.reserveErrs = f.reserveErrs[1:]
		if err != nil {
			return err
		}
	}
	event, ok := f.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if event.AvailableTickets < quantity {
		return domain.ErrInsufficientTickets
	}
	event.AvailableTickets -= quantity
	f.events[eventID] = event
	return nil
}

func (f *fakeInventory) Release(ctx context.Context, eventID string, quantity int) error {
	f.releases = append(f.releases, releaseCall{eventID: eventID, quantity: quantity})
	if f.releaseErr != nil {
		return f.releaseErr
	}
	event, ok := f.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.AvailableTickets += quantity
	if event.AvailableTickets > event.TotalTickets {
		event.AvailableTickets = event.TotalTickets
	}
	f.events[eventID] = event
	return nil
}

type fakeHoldStore struct {
	holds     map[string]domain.Hold
	createErr error
	nextID    int
	now       func() time.Time
}

func newFakeHoldStore(now func() time.Time) *fakeHoldStore {
	return &fakeHoldStore{holds: make(map[string]domain.Hold), now: now}
}

func (f *fakeHoldStore) Create(ctx context.Context, eventID, userID string, quantity int, totalPrice float64, ttl time.Duration) (domain.Hold, error) {
	if f.createErr != nil {
		return domain.Hold{}, f.createErr
	}
	f.nextID++
	now := f.now()
	hold := domain.Hold{
		ID:         fmt.Sprintf("hold-%d", f.nextID),
		EventID:    eventID,
		UserID:     userID,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		Active:     true,
	}
	f.holds[hold.ID] = hold
	return hold, nil
}

func (f *fakeHoldStore) Get(ctx context.Context, holdID string) (domain.Hold, error) {
	hold, ok := f.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	if !hold.ExpiresAt.After(f.now()) {
		hold.Active = false
	}
	return hold, nil
}

func (f *fakeHoldStore) Release(ctx context.Context, holdID string) error {
	delete(f.holds, holdID)
	return nil
}

type fakeGate struct {
	admitted map[string]bool
	waiting  map[string]int
}

func newFakeGate() *fakeGate {
	return &fakeGate{admitted: make(map[string]bool), waiting: make(map[string]int)}
}

func gateKey(userID, eventID string) string {
	return userID + "|" + eventID
}

func (f *fakeGate) admit(userID, eventID string) {
	f.admitted[gateKey(userID, eventID)] = true
}

func (f *fakeGate) Position(ctx context.Context, userID, eventID string) (domain.QueuePosition, error) {
	if f.admitted[gateKey(userID, eventID)] {
		return domain.QueuePosition{UserID: userID, EventID: eventID, Admitted: true}, nil
	}
	if rank, ok := f.waiting[gateKey(userID, eventID)]; ok {
		return domain.QueuePosition{UserID: userID, EventID: eventID, Position: rank}, nil
	}
	return domain.QueuePosition{}, domain.ErrQueueEntryNotFound
}

type stubProcessor struct {
	result PaymentResult
	err    error
	calls  int

	// onProcess runs inside Process, before the result is returned. Tests
	// use it to interleave writes with the payment window.
	onProcess func()
}

func (p *stubProcessor) Process(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	p.calls++
	if p.onProcess != nil {
		p.onProcess()
	}
	return p.result, p.err
}
