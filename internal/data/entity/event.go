package entity

import "time"

// Event is the context a booking belongs to (wedding, conference, shoot).
// Read-only for the reconciliation core.
type Event struct {
	Base
	Title    string    `db:"title"`
	Venue    string    `db:"venue"`
	HeldAt   time.Time `db:"held_at"`
}
