package checkout

import (
	"time"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/shopspring/decimal"
)

type Stage string

const (
	StageIdle      Stage = "idle"
	StageSelecting Stage = "selecting"
	// a booking request is in flight
	StageBooking Stage = "booking"
	// a booking exists and no payment attempt is running
	StagePaymentIdle Stage = "payment-idle"
	// a provider order waits for the user's approval
	StagePaymentPending Stage = "payment-pending"
	// a payment call is in flight
	StageSettling  Stage = "settling"
	StageConfirmed Stage = "confirmed"
)

type NoticeKind string

const (
	NoticeConflict         NoticeKind = "conflict"
	NoticePaymentRejected  NoticeKind = "payment-rejected"
	NoticePaymentCancelled NoticeKind = "payment-cancelled"
	NoticeError            NoticeKind = "error"
)

// Notice is the user visible reason of the last state reset.
type Notice struct {
	Kind    NoticeKind
	Message string
	SeatIDs []string
}

// View is a consistent snapshot of one checkout.
type View struct {
	Stage      Stage
	MovieID    string
	Date       time.Time
	Showtimes  []domain.Showtime
	Showtime   *domain.Showtime
	Selection  []string
	LocalTotal decimal.Decimal

	// Seats is only set while seats can be picked.
	Seats *domain.SeatMap
	// Stale reports that the last seat layout fetch failed and Seats may be
	// out of date or missing.
	Stale bool

	Booking *domain.Booking
	Attempt *domain.PaymentAttempt
	Notice  *Notice
}
