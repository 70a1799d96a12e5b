package domain

import "time"

// Event is a ticketed event and its inventory counters. AvailableTickets
// is only ever mutated through the version-guarded reserve/release path;
// Version increments on every successful write.
type Event struct {
	ID               string
	Name             string
	Location         string
	Price            float64
	TotalTickets     int
	AvailableTickets int
	Version          int
	SaleStartsAt     time.Time
	CreatedAt        time.Time
}
