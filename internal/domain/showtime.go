package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Showtime is a read-only copy of a screening owned by the booking authority.
type Showtime struct {
	ID       string
	MovieID  string
	StartsAt time.Time
	Price    decimal.Decimal

	// Slot is the authority's own datetime string for the screening. Seat
	// layouts are looked up by it, so it is kept verbatim.
	Slot string
}

// DateKey is the day a showtime is listed under, in the authority's YYYY-MM-DD format.
func (s Showtime) DateKey() string {
	return s.StartsAt.Format(time.DateOnly)
}
