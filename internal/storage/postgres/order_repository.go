package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/ticket-rush/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, user_id, event_id, hold_id, quantity, total_price, status, payment_id, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, stmt,
		order.ID,
		order.UserID,
		order.EventID,
		order.HoldID,
		order.Quantity,
		order.TotalPrice,
		order.Status,
		order.PaymentID,
		order.CreatedAt,
		order.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create order: duplicate id: %w", err)
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, user_id, event_id, hold_id, quantity, total_price, status, payment_id, created_at, expires_at, completed_at
FROM orders
WHERE id = $1`

	var o domain.Order
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&o.ID, &o.UserID, &o.EventID, &o.HoldID,
		&o.Quantity, &o.TotalPrice, &o.Status, &o.PaymentID,
		&o.CreatedAt, &o.ExpiresAt, &o.CompletedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const query = `
SELECT id, user_id, event_id, hold_id, quantity, total_price, status, payment_id, created_at, expires_at, completed_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.EventID, &o.HoldID,
			&o.Quantity, &o.TotalPrice, &o.Status, &o.PaymentID,
			&o.CreatedAt, &o.ExpiresAt, &o.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SetHoldID links the order to the hold written right after it.
func (r *OrderRepository) SetHoldID(ctx context.Context, orderID, holdID string) error {
	const stmt = `UPDATE orders SET hold_id = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, stmt, orderID, holdID)
	if err != nil {
		return fmt.Errorf("set hold id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// TransitionFromActive moves an order out of pending/processing into the
// given status. It reports false when the order was already terminal, which
// makes terminal statuses absorbing no matter how many writers race
// (orchestrator, sweep, a late confirm).
func (r *OrderRepository) TransitionFromActive(ctx context.Context, orderID string, status domain.OrderStatus) (bool, error) {
	const stmt = `
UPDATE orders
SET status = $2
WHERE id = $1 AND status IN ('pending', 'processing')`

	tag, err := r.pool.Exec(ctx, stmt, orderID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("transition order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Complete records the successful payment outcome in one write.
func (r *OrderRepository) Complete(ctx context.Context, orderID, paymentID string, completedAt time.Time) (bool, error) {
	const stmt = `
UPDATE orders
SET status = 'completed', payment_id = $2, completed_at = $3
WHERE id = $1 AND status IN ('pending', 'processing')`

	tag, err := r.pool.Exec(ctx, stmt, orderID, paymentID, completedAt)
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindExpiredPending returns orders still pending past their hold window.
// The sweep forces these through the same expiry path the orchestrator uses.
func (r *OrderRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]domain.Order, error) {
	const query = `
SELECT id, user_id, event_id, hold_id, quantity, total_price, status, payment_id, created_at, expires_at, completed_at
FROM orders
WHERE status = 'pending' AND expires_at <= $1`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("find expired pending: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.EventID, &o.HoldID,
			&o.Quantity, &o.TotalPrice, &o.Status, &o.PaymentID,
			&o.CreatedAt, &o.ExpiresAt, &o.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
