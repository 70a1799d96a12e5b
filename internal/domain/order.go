package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusExpired    OrderStatus = "expired"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Terminal reports whether the status is absorbing. Orders never leave a
// terminal status, and they are never deleted (audit trail).
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusFailed, OrderStatusExpired, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is the relational system of record for a booking.
type Order struct {
	ID          string
	UserID      string
	EventID     string
	HoldID      string
	Quantity    int
	TotalPrice  float64
	Status      OrderStatus
	PaymentID   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt *time.Time
}
