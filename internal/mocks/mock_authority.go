package mocks

import (
	"context"
	"time"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockAuthority struct {
	mock.Mock
}

func (m *MockAuthority) GetShowtimes(ctx context.Context, movieID string, date time.Time) ([]domain.Showtime, error) {
	args := m.Called(ctx, movieID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Showtime), args.Error(1)
}

func (m *MockAuthority) GetSeatLayout(ctx context.Context, showtime domain.Showtime) (*domain.SeatLayout, error) {
	args := m.Called(ctx, showtime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SeatLayout), args.Error(1)
}

func (m *MockAuthority) CreateBooking(
	ctx context.Context,
	showtimeID string,
	seatIDs []string) (*domain.BookingRecord, error) {

	args := m.Called(ctx, showtimeID, seatIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingRecord), args.Error(1)
}

func (m *MockAuthority) SettleCardPayment(
	ctx context.Context,
	bookingID string,
	card domain.CardFields) (*domain.SettlementResult, error) {

	args := m.Called(ctx, bookingID, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

func (m *MockAuthority) CreateProviderOrder(ctx context.Context, bookingID string) (*domain.ProviderOrder, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderOrder), args.Error(1)
}

func (m *MockAuthority) SettleProviderPayment(
	ctx context.Context,
	bookingID string,
	providerOrderID string) (*domain.SettlementResult, error) {

	args := m.Called(ctx, bookingID, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}
