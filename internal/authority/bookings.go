package authority

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/shopspring/decimal"
)

type createBookingRequest struct {
	ShowID string   `json:"showId"`
	Seats  []string `json:"seats"`
}

type bookingReply struct {
	ID          flexID          `json:"_id"`
	AltID       flexID          `json:"id"`
	Show        flexID          `json:"show"`
	BookedSeats []string        `json:"bookedSeats"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// CreateBooking asks the authority to reserve seats. Any refusal other than a
// 401 is reported as a SeatConflictError wrapping ErrBookingConflict.
func (c *Client) CreateBooking(ctx context.Context, showtimeID string, seatIDs []string) (*domain.BookingRecord, error) {
	rep, err := c.do(ctx, call{
		op:     "create_booking",
		method: http.MethodPost,
		path:   "bookings/",
		body: createBookingRequest{
			ShowID: showtimeID,
			Seats:  seatIDs,
		},
		auth:        authRequired,
		unreachable: domain.ErrBookingUnreachable,
	})
	if err != nil {
		return nil, err
	}

	if !rep.ok() {
		body := rep.errorBody()

		seats := body.UnavailableSeats
		if len(seats) == 0 {
			seats = body.Seats
		}

		c.logger.Info("authority refused booking",
			"showtime_id", showtimeID,
			"status", rep.status,
			"message", body.message(rep.status),
			"seats", seats,
		)

		return nil, &domain.SeatConflictError{SeatIDs: seats, Err: domain.ErrBookingConflict}
	}

	var body bookingReply
	if err := rep.decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed booking reply: %w", domain.ErrBookingUnreachable, err)
	}

	id := body.ID
	if id == "" {
		id = body.AltID
	}

	if id == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrBookingUnreachable, errors.New("booking reply carries no id"))
	}

	record := &domain.BookingRecord{
		ID:         string(id),
		ShowtimeID: showtimeID,
		Seats:      body.BookedSeats,
		TotalPrice: body.TotalPrice,
	}

	if record.Seats == nil {
		record.Seats = seatIDs
	}

	return record, nil
}
