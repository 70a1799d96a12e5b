package app

import (
	"context"
	"errors"
	"time"

	"github.com/cimillas/ticket-rush/internal/clock"
	"github.com/cimillas/ticket-rush/internal/domain"
	"github.com/sirupsen/logrus"
)

// InventoryStore is the inventory boundary the orchestrator consumes. It
// is satisfied by the local Postgres repository and by the HTTP client
// when inventory runs as a separate service.
type InventoryStore interface {
	Get(ctx context.Context, eventID string) (domain.Event, error)
	Reserve(ctx context.Context, eventID string, quantity int) error
	Release(ctx context.Context, eventID string, quantity int) error
}

// HoldStore keeps the short-lived reservation records.
type HoldStore interface {
	Create(ctx context.Context, eventID, userID string, quantity int, totalPrice float64, ttl time.Duration) (domain.Hold, error)
	Get(ctx context.Context, holdID string) (domain.Hold, error)
	Release(ctx context.Context, holdID string) error
}

// AdmissionGate answers whether a user has cleared the waiting room.
type AdmissionGate interface {
	Position(ctx context.Context, userID, eventID string) (domain.QueuePosition, error)
}

// OrderStore is the relational system of record for order lifecycle.
type OrderStore interface {
	Create(ctx context.Context, order domain.Order) error
	Get(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	SetHoldID(ctx context.Context, orderID, holdID string) error
	TransitionFromActive(ctx context.Context, orderID string, status domain.OrderStatus) (bool, error)
	Complete(ctx context.Context, orderID, paymentID string, completedAt time.Time) (bool, error)
	FindExpiredPending(ctx context.Context, now time.Time) ([]domain.Order, error)
}

// BookingService drives the order state machine: admission check,
// version-guarded reservation, pending order, TTL hold, payment outcome,
// and compensating release when any later step fails.
type BookingService struct {
	orders    OrderStore
	inventory InventoryStore
	holds     HoldStore
	gate      AdmissionGate
	payments  PaymentProcessor
	clock     clock.Clock
	logger    logrus.FieldLogger

	holdTTL         time.Duration
	reserveAttempts int
	reserveBackoff  time.Duration
}

const (
	defaultHoldTTL = 10 * time.Minute

	// A failed compare-and-swap means a concurrent writer won, not that
	// stock ran out, so the orchestrator retries a bounded number of times
	// before surfacing the conflict to the caller.
	defaultReserveAttempts = 3
	defaultReserveBackoff  = 25 * time.Millisecond
)

func NewBookingService(
	orders OrderStore,
	inventory InventoryStore,
	holds HoldStore,
	gate AdmissionGate,
	payments PaymentProcessor,
	clk clock.Clock,
	logger logrus.FieldLogger,
	opts ...BookingServiceOption,
) *BookingService {
	svc := &BookingService{
		orders:          orders,
		inventory:       inventory,
		holds:           holds,
		gate:            gate,
		payments:        payments,
		clock:           clk,
		logger:          logger,
		holdTTL:         defaultHoldTTL,
		reserveAttempts: defaultReserveAttempts,
		reserveBackoff:  defaultReserveBackoff,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithHoldTTL overrides how long reservations stay live during checkout.
func WithHoldTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithReserveRetry overrides the bounded retry applied to CAS conflicts.
func WithReserveRetry(attempts int, backoff time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if attempts > 0 {
			s.reserveAttempts = attempts
		}
		if backoff >= 0 {
			s.reserveBackoff = backoff
		}
	}
}

type CreateBookingInput struct {
	UserID   string
	EventID  string
	Quantity int
}

type BookingResult struct {
	Order domain.Order
	Hold  domain.Hold
}

// CreateBooking reserves inventory for an admitted buyer and opens the
// checkout window. Inventory is decremented before the order row and hold
// exist; the order's expires_at lets the sweep release inventory even if
// the hold was never written.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (BookingResult, error) {
	if in.UserID == "" {
		return BookingResult{}, domain.ErrUserIDRequired
	}
	if in.Quantity <= 0 {
		return BookingResult{}, domain.ErrInvalidQuantity
	}

	pos, err := s.gate.Position(ctx, in.UserID, in.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrQueueEntryNotFound) {
			return BookingResult{}, domain.ErrNotAdmitted
		}
		return BookingResult{}, err
	}
	if !pos.Admitted {
		return BookingResult{}, domain.ErrNotAdmitted
	}

	event, err := s.inventory.Get(ctx, in.EventID)
	if err != nil {
		return BookingResult{}, err
	}
	totalPrice := event.Price * float64(in.Quantity)

	if err := s.reserveWithRetry(ctx, in.EventID, in.Quantity); err != nil {
		return BookingResult{}, err
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:         newID(),
		UserID:     in.UserID,
		EventID:    in.EventID,
		Quantity:   in.Quantity,
		TotalPrice: totalPrice,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.holdTTL),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseInventory(ctx, in.EventID, in.Quantity)
		return BookingResult{}, err
	}

	hold, err := s.holds.Create(ctx, in.EventID, in.UserID, in.Quantity, totalPrice, s.holdTTL)
	if err != nil {
		if _, terr := s.orders.TransitionFromActive(ctx, order.ID, domain.OrderStatusFailed); terr != nil {
			s.logger.WithError(terr).WithField("order_id", order.ID).Error("fail order after hold error")
		}
		s.releaseInventory(ctx, in.EventID, in.Quantity)
		return BookingResult{}, err
	}

	if err := s.orders.SetHoldID(ctx, order.ID, hold.ID); err != nil {
		// The order still expires on time and the sweep releases inventory,
		// so the booking stands; only residual-hold cleanup loses the link.
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("attach hold id")
	}
	order.HoldID = hold.ID

	return BookingResult{Order: order, Hold: hold}, nil
}

func (s *BookingService) reserveWithRetry(ctx context.Context, eventID string, quantity int) error {
	var err error
	for attempt := 0; attempt < s.reserveAttempts; attempt++ {
		if attempt > 0 && s.reserveBackoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.reserveBackoff):
			}
		}
		err = s.inventory.Reserve(ctx, eventID, quantity)
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return err
}

type ConfirmPaymentInput struct {
	OrderID       string
	HoldID        string
	UserID        string
	PaymentMethod string
}

type ConfirmResult struct {
	Order   domain.Order
	Message string
}

// ConfirmPayment settles a pending order. Calling it on an order already in
// a terminal state returns that state unchanged and touches nothing else.
func (s *BookingService) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) (ConfirmResult, error) {
	order, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if order.Status.Terminal() {
		return ConfirmResult{Order: order, Message: "order already settled"}, nil
	}

	holdID := order.HoldID
	if holdID == "" {
		holdID = in.HoldID
	}

	now := s.clock.Now()
	hold, err := s.holds.Get(ctx, holdID)
	holdLive := err == nil && hold.ActiveAt(now)
	if err != nil && !errors.Is(err, domain.ErrHoldNotFound) {
		return ConfirmResult{}, err
	}

	if !holdLive {
		return s.expireOrder(ctx, order)
	}

	moved, err := s.orders.TransitionFromActive(ctx, order.ID, domain.OrderStatusProcessing)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !moved {
		// A concurrent confirm or the sweep settled the order first.
		settled, err := s.orders.Get(ctx, order.ID)
		if err != nil {
			return ConfirmResult{}, err
		}
		return ConfirmResult{Order: settled, Message: "order already settled"}, nil
	}

	if err := s.holds.Release(ctx, holdID); err != nil {
		s.logger.WithError(err).WithField("hold_id", holdID).Warn("release hold")
	}

	payRes, err := s.payments.Process(ctx, PaymentRequest{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Amount:        order.TotalPrice,
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil || !payRes.Approved {
		if err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("payment gateway")
		}
		if _, terr := s.orders.TransitionFromActive(ctx, order.ID, domain.OrderStatusFailed); terr != nil {
			s.logger.WithError(terr).WithField("order_id", order.ID).Error("fail order after payment")
		}
		s.releaseInventory(ctx, order.EventID, order.Quantity)

		order.Status = domain.OrderStatusFailed
		msg := payRes.Message
		if msg == "" {
			msg = "payment failed"
		}
		return ConfirmResult{Order: order, Message: msg}, nil
	}

	done, err := s.orders.Complete(ctx, order.ID, payRes.PaymentID, now)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !done {
		// Another writer settled the order between PROCESSING and here
		// (a cancel racing the payment window). The payment is captured
		// with no completed order; flag it for reconciliation and report
		// the persisted state.
		settled, err := s.orders.Get(ctx, order.ID)
		if err != nil {
			return ConfirmResult{}, err
		}
		s.logger.WithFields(logrus.Fields{
			"order_id":   order.ID,
			"payment_id": payRes.PaymentID,
			"status":     settled.Status,
		}).Error("payment captured for settled order")
		return ConfirmResult{Order: settled, Message: "order already settled"}, nil
	}
	order.Status = domain.OrderStatusCompleted
	order.PaymentID = payRes.PaymentID
	order.CompletedAt = &now
	return ConfirmResult{Order: order, Message: "payment approved, tickets confirmed"}, nil
}

func (s *BookingService) expireOrder(ctx context.Context, order domain.Order) (ConfirmResult, error) {
	moved, err := s.orders.TransitionFromActive(ctx, order.ID, domain.OrderStatusExpired)
	if err != nil {
		return ConfirmResult{}, err
	}
	if moved {
		s.releaseInventory(ctx, order.EventID, order.Quantity)
	}
	order.Status = domain.OrderStatusExpired
	return ConfirmResult{Order: order, Message: "booking hold has expired"}, nil
}

// CancelBooking moves a non-terminal order to cancelled and compensates.
// Cancelling a settled order is rejected.
func (s *BookingService) CancelBooking(ctx context.Context, orderID, userID string) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if userID != "" && order.UserID != userID {
		return domain.ErrOrderAccessDenied
	}
	if order.Status.Terminal() {
		return domain.ErrOrderNotCancellable
	}

	moved, err := s.orders.TransitionFromActive(ctx, orderID, domain.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ErrOrderNotCancellable
	}

	s.releaseInventory(ctx, order.EventID, order.Quantity)
	if order.HoldID != "" {
		if err := s.holds.Release(ctx, order.HoldID); err != nil {
			s.logger.WithError(err).WithField("hold_id", order.HoldID).Warn("release hold")
		}
	}
	return nil
}

// GetOrder returns the order when the requester owns it.
func (s *BookingService) GetOrder(ctx context.Context, orderID, requesterID string) (domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if requesterID != "" && order.UserID != requesterID {
		return domain.Order{}, domain.ErrOrderAccessDenied
	}
	return order, nil
}

func (s *BookingService) ListUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}
	return s.orders.ListByUser(ctx, userID)
}

// releaseInventory is the compensation path. Failures here leave inventory
// transiently understated; they are logged and left to operators or the
// sweep to converge, never retried in-band.
func (s *BookingService) releaseInventory(ctx context.Context, eventID string, quantity int) {
	if err := s.inventory.Release(ctx, eventID, quantity); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": eventID,
			"quantity": quantity,
		}).Error("release inventory")
	}
}
