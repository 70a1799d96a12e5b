package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/ticket-rush/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository owns the per-event inventory counters. All mutations go
// through version-guarded updates: writers race and the loser gets
// ErrVersionConflict rather than blocking.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, location, price, total_tickets, available_tickets, version, sale_starts_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		event.ID,
		event.Name,
		event.Location,
		event.Price,
		event.TotalTickets,
		event.AvailableTickets,
		event.Version,
		event.SaleStartsAt,
		event.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, eventID string) (domain.Event, error) {
	const query = `
SELECT id, name, location, price, total_tickets, available_tickets, version, sale_starts_at, created_at
FROM events
WHERE id = $1`

	var e domain.Event
	err := r.queryRow(ctx, query, eventID).Scan(
		&e.ID, &e.Name, &e.Location, &e.Price,
		&e.TotalTickets, &e.AvailableTickets, &e.Version,
		&e.SaleStartsAt, &e.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) List(ctx context.Context) ([]domain.Event, error) {
	const query = `
SELECT id, name, location, price, total_tickets, available_tickets, version, sale_starts_at, created_at
FROM events
ORDER BY created_at`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Location, &e.Price,
			&e.TotalTickets, &e.AvailableTickets, &e.Version,
			&e.SaleStartsAt, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Reserve decrements available tickets by quantity. It reads the current
// counter and version, rejects insufficient stock, then writes conditioned
// on the version being unchanged, all inside one transaction. A lost race
// surfaces as ErrVersionConflict; the caller decides whether to retry.
func (r *EventRepository) Reserve(ctx context.Context, eventID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	return withTx(ctx, r.pool, func(ctx context.Context) error {
		event, err := r.Get(ctx, eventID)
		if err != nil {
			return err
		}
		if event.AvailableTickets < quantity {
			return domain.ErrInsufficientTickets
		}

		const stmt = `
UPDATE events
SET available_tickets = available_tickets - $1, version = version + 1
WHERE id = $2 AND version = $3 AND available_tickets >= $1`

		tag, err := r.exec(ctx, stmt, quantity, eventID, event.Version)
		if err != nil {
			return fmt.Errorf("reserve tickets: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVersionConflict
		}
		return nil
	})
}

// Release returns quantity to the pool, clamped so available never exceeds
// total. Also version-guarded inside one transaction; used only for
// compensation, so a conflict is reported to the caller to log, never
// retried here.
func (r *EventRepository) Release(ctx context.Context, eventID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	return withTx(ctx, r.pool, func(ctx context.Context) error {
		event, err := r.Get(ctx, eventID)
		if err != nil {
			return err
		}

		restored := event.AvailableTickets + quantity
		if restored > event.TotalTickets {
			restored = event.TotalTickets
		}

		const stmt = `
UPDATE events
SET available_tickets = $1, version = version + 1
WHERE id = $2 AND version = $3`

		tag, err := r.exec(ctx, stmt, restored, eventID, event.Version)
		if err != nil {
			return fmt.Errorf("release tickets: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVersionConflict
		}
		return nil
	})
}

func (r *EventRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *EventRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *EventRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
