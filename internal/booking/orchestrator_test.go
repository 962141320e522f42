package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/metrics"
	"github.com/lam4est/CinemaX/internal/mocks"
	"github.com/lam4est/CinemaX/internal/seatcache"
	"github.com/lam4est/CinemaX/internal/selection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var now = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

var show = domain.Showtime{
	ID:       "st-1",
	MovieID:  "mv-1",
	StartsAt: now.Add(3 * time.Hour),
	Price:    decimal.NewFromInt(100000),
	Slot:     "2026-03-14T21:00:00Z",
}

type OrchestratorTestSuite struct {
	suite.Suite
	authority    *mocks.MockAuthority
	metrics      *metrics.Metrics
	orchestrator *Orchestrator
}

func (s *OrchestratorTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.authority = new(mocks.MockAuthority)
	s.metrics = metrics.New(prometheus.NewRegistry())

	cache := seatcache.New(s.authority, seatcache.NewMemoryStore(), logger)

	s.orchestrator = NewOrchestrator(cache, s.authority, logger,
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return now }),
	)
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (s *OrchestratorTestSuite) TestCreate() {
	s.authority.On("GetSeatLayout", mock.Anything, show).Return(&domain.SeatLayout{
		Occupied:       []string{"C1"},
		ReservedUnpaid: []string{"B1"},
	}, nil)
	s.authority.On("CreateBooking", mock.Anything, "st-1", []string{"A1", "A2"}).Return(&domain.BookingRecord{
		ID:         "bk-1",
		ShowtimeID: "st-1",
		Seats:      []string{"A1", "A2"},
		TotalPrice: decimal.NewFromInt(200000),
	}, nil)

	got, err := s.orchestrator.Create(context.Background(), show, selection.New("A1", "A2"))
	s.Require().NoError(err)

	want := &domain.Booking{
		ID:            "bk-1",
		ShowtimeID:    "st-1",
		MovieID:       "mv-1",
		Seats:         []string{"A1", "A2"},
		TotalPrice:    decimal.NewFromInt(200000),
		LocalTotal:    decimal.NewFromInt(200000),
		PaymentStatus: domain.PaymentStatusUnpaid,
		Status:        domain.BookingStatusCreated,
		CreatedAt:     now,
	}

	opts := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, got, opts); diff != "" {
		s.T().Errorf("Create() mismatch (-want +got):\n%s", diff)
	}

	s.Equal(1.0, testutil.ToFloat64(s.metrics.BookingCounter("created")))
	s.authority.AssertExpectations(s.T())
}

func (s *OrchestratorTestSuite) TestCreateWithEmptySelectionMakesNoCalls() {
	_, err := s.orchestrator.Create(context.Background(), show, selection.New())
	s.Require().ErrorIs(err, domain.ErrEmptySelection)

	s.authority.AssertNotCalled(s.T(), "GetSeatLayout", mock.Anything, mock.Anything)
	s.authority.AssertNotCalled(s.T(), "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func (s *OrchestratorTestSuite) TestCreateRevalidatesAgainstFreshLayout() {
	s.authority.On("GetSeatLayout", mock.Anything, show).Return(&domain.SeatLayout{
		Occupied: []string{"A1"},
	}, nil)

	_, err := s.orchestrator.Create(context.Background(), show, selection.New("A1", "A2"))
	s.Require().ErrorIs(err, domain.ErrSeatUnavailable)

	var conflict *domain.SeatConflictError
	s.Require().ErrorAs(err, &conflict)
	s.Equal([]string{"A1"}, conflict.SeatIDs)

	s.authority.AssertNotCalled(s.T(), "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BookingCounter("invalid")))
}

func (s *OrchestratorTestSuite) TestCreateFailures() {
	tests := []struct {
		name       string
		err        error
		wantErr    error
		wantResult string
	}{
		{
			name:       "should surface authority conflict",
			err:        &domain.SeatConflictError{SeatIDs: []string{"A1"}, Err: domain.ErrBookingConflict},
			wantErr:    domain.ErrBookingConflict,
			wantResult: "conflict",
		},
		{
			name:       "should surface unreachable authority",
			err:        errors.Join(domain.ErrBookingUnreachable, errors.New("dial tcp: connection refused")),
			wantErr:    domain.ErrBookingUnreachable,
			wantResult: "unreachable",
		},
		{
			name:       "should surface unauthorized",
			err:        domain.ErrUnauthorized,
			wantErr:    domain.ErrUnauthorized,
			wantResult: "unauthorized",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			s.authority.On("GetSeatLayout", mock.Anything, show).Return(&domain.SeatLayout{}, nil)
			s.authority.On("CreateBooking", mock.Anything, "st-1", []string{"A1"}).Return(nil, tt.err)

			got, err := s.orchestrator.Create(context.Background(), show, selection.New("A1"))
			s.Require().ErrorIs(err, tt.wantErr)
			s.Nil(got)
			s.Equal(1.0, testutil.ToFloat64(s.metrics.BookingCounter(tt.wantResult)))
		})
	}
}

func (s *OrchestratorTestSuite) TestCreateProceedsWhenRefreshFails() {
	s.authority.On("GetSeatLayout", mock.Anything, show).Return(nil, errors.New("timeout"))
	s.authority.On("CreateBooking", mock.Anything, "st-1", []string{"A1"}).Return(&domain.BookingRecord{
		ID:         "bk-2",
		TotalPrice: decimal.NewFromInt(100000),
	}, nil)

	got, err := s.orchestrator.Create(context.Background(), show, selection.New("A1"))
	s.Require().NoError(err)
	s.Equal("bk-2", got.ID)
	s.Equal([]string{"A1"}, got.Seats)
}

func (s *OrchestratorTestSuite) TestAuthorityTotalWins() {
	tests := []struct {
		name      string
		authority decimal.Decimal
		want      decimal.Decimal
	}{
		{
			name:      "should use authority total when it differs",
			authority: decimal.NewFromInt(180000),
			want:      decimal.NewFromInt(180000),
		},
		{
			name:      "should fall back to local total when authority sends none",
			authority: decimal.Zero,
			want:      decimal.NewFromInt(200000),
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			s.authority.On("GetSeatLayout", mock.Anything, show).Return(&domain.SeatLayout{}, nil)
			s.authority.On("CreateBooking", mock.Anything, "st-1", []string{"A1", "A2"}).Return(&domain.BookingRecord{
				ID:         "bk-3",
				TotalPrice: tt.authority,
			}, nil)

			got, err := s.orchestrator.Create(context.Background(), show, selection.New("A1", "A2"))
			s.Require().NoError(err)
			s.True(tt.want.Equal(got.TotalPrice), "total = %s, want %s", got.TotalPrice, tt.want)
			s.True(decimal.NewFromInt(200000).Equal(got.LocalTotal))
		})
	}
}
