package domain

import "time"

// Hold is the short-lived proof that a buyer's inventory claim is still
// live during checkout. It lives in the TTL cache only; absence at
// confirmation time means the reservation has expired.
type Hold struct {
	ID         string    `json:"hold_id"`
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Active     bool      `json:"active"`
}

// ActiveAt reports whether the hold is still usable at the given instant.
// The cache's eviction can lag the wall clock, so callers must not trust
// the stored Active flag on its own.
func (h Hold) ActiveAt(now time.Time) bool {
	return h.Active && h.ExpiresAt.After(now)
}
