package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/metrics"
	"github.com/lam4est/CinemaX/internal/selection"
	"github.com/shopspring/decimal"
)

type SeatCache interface {
	Load(ctx context.Context, showtime domain.Showtime) (domain.SeatMap, error)
	Get(ctx context.Context, showtimeID, seatID string) domain.SeatState
}

// Orchestrator turns a validated selection into a booking at the authority.
// It never retries: a conflict sends the user back to seat selection and a
// transport failure is left to the user to retry.
type Orchestrator struct {
	cache     SeatCache
	authority domain.BookingAuthority
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func NewOrchestrator(cache SeatCache, authority domain.BookingAuthority, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache:     cache,
		authority: authority,
		logger:    logger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *Orchestrator) Create(ctx context.Context, showtime domain.Showtime, sel selection.Selection) (*domain.Booking, error) {
	if sel.IsEmpty() {
		o.metrics.BookingAttempted("invalid")
		return nil, domain.ErrEmptySelection
	}

	_, err := o.cache.Load(ctx, showtime)
	if err != nil && !errors.Is(err, domain.ErrSuperseded) {
		// the authority has the final word, so a stale snapshot is still usable here
		o.logger.Warn("could not refresh seat availability before booking", "showtime_id", showtime.ID, "error", err)
	}

	stateOf := func(seatID string) domain.SeatState {
		return o.cache.Get(ctx, showtime.ID, seatID)
	}

	err = selection.Validate(sel, stateOf, showtime.ID != "")
	if err != nil {
		o.metrics.BookingAttempted("invalid")
		return nil, err
	}

	record, err := o.authority.CreateBooking(ctx, showtime.ID, sel.IDs())
	if err != nil {
		o.metrics.BookingAttempted(resultOf(err))
		return nil, err
	}

	o.metrics.BookingAttempted("created")

	localTotal := showtime.Price.Mul(decimal.NewFromInt(int64(sel.Len())))

	booking := &domain.Booking{
		ID:            record.ID,
		ShowtimeID:    showtime.ID,
		MovieID:       showtime.MovieID,
		Seats:         record.Seats,
		TotalPrice:    reconcileTotal(o.logger, record, localTotal),
		LocalTotal:    localTotal,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Status:        domain.BookingStatusCreated,
		CreatedAt:     record.CreatedAt,
	}

	if len(booking.Seats) == 0 {
		booking.Seats = sel.IDs()
	}

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = o.now()
	}

	o.logger.Info("booking created",
		"booking_id", booking.ID,
		"showtime_id", booking.ShowtimeID,
		"seats", booking.Seats,
		"total", booking.TotalPrice.String(),
	)

	return booking, nil
}

// reconcileTotal prefers the authority's price. The local total only fills in
// when the authority did not send one.
func reconcileTotal(logger *slog.Logger, record *domain.BookingRecord, localTotal decimal.Decimal) decimal.Decimal {
	if !record.TotalPrice.IsPositive() {
		logger.Warn("authority returned no total, using local total", "booking_id", record.ID, "local_total", localTotal.String())
		return localTotal
	}

	if !record.TotalPrice.Equal(localTotal) {
		logger.Info("authority total differs from local total",
			"booking_id", record.ID,
			"authority_total", record.TotalPrice.String(),
			"local_total", localTotal.String(),
		)
	}

	return record.TotalPrice
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrBookingConflict):
		return "conflict"
	case errors.Is(err, domain.ErrBookingUnreachable):
		return "unreachable"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
