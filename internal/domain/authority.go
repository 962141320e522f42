package domain

import (
	"context"
	"time"
)

type ShowtimeProvider interface {
	GetShowtimes(ctx context.Context, movieID string, date time.Time) ([]Showtime, error)
}

type SeatLayoutProvider interface {
	GetSeatLayout(ctx context.Context, showtime Showtime) (*SeatLayout, error)
}

type BookingAuthority interface {
	CreateBooking(ctx context.Context, showtimeID string, seatIDs []string) (*BookingRecord, error)
}

type PaymentAuthority interface {
	SettleCardPayment(ctx context.Context, bookingID string, card CardFields) (*SettlementResult, error)
	CreateProviderOrder(ctx context.Context, bookingID string) (*ProviderOrder, error)
	SettleProviderPayment(ctx context.Context, bookingID, providerOrderID string) (*SettlementResult, error)
}

// Authority is the remote booking authority as a whole.
type Authority interface {
	ShowtimeProvider
	SeatLayoutProvider
	BookingAuthority
	PaymentAuthority
}
