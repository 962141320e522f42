package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound = errors.New("record not found")

	// local validation, never reaches the network
	ErrNoShowtimeSelected    = errors.New("please select a showtime first")
	ErrSeatUnavailable       = errors.New("seat is already sold")
	ErrSelectionLimitReached = errors.New("you can only select 5 seats")
	ErrEmptySelection        = errors.New("at least one seat must be selected")
	ErrIncompleteCardInput   = errors.New("card number, holder name, expiry date and CVV are all required")
	ErrInvalidCardInput      = errors.New("card details are malformed")

	// transient, retryable by the user
	ErrAvailabilityFetchFailed = errors.New("seat availability could not be loaded")
	ErrBookingUnreachable      = errors.New("booking service is unreachable")
	ErrPaymentUnreachable      = errors.New("payment service is unreachable")

	// authoritative rejections
	ErrBookingConflict = errors.New("some of the selected seats are no longer available")
	ErrPaymentRejected = errors.New("payment was rejected")
	ErrUnauthorized    = errors.New("authentication required")

	// checkout flow
	ErrShowtimeNotFound          = errors.New("showtime not found for the selected date")
	ErrCheckoutAlreadyInProgress = errors.New("a checkout is already in progress")
	ErrCheckoutSettled           = errors.New("the booking is already paid")
	ErrNoActiveBooking           = errors.New("there is no booking awaiting payment")
	ErrPaymentInProgress         = errors.New("a payment is already being processed")
	ErrNoPendingOrder            = errors.New("there is no provider order awaiting approval")
	ErrOrderMismatch             = errors.New("provider order does not match the pending attempt")
	ErrUnsupportedPaymentMethod  = errors.New("unsupported payment method")
	ErrOrderUnavailable          = errors.New("a provider order could not be created")
	ErrSuperseded                = errors.New("the request was superseded by a newer selection")
)

// SeatConflictError names the seats that made a booking attempt fail. It unwraps
// to ErrBookingConflict when the authority rejected the booking and to
// ErrSeatUnavailable when the local re-validation caught it first.
type SeatConflictError struct {
	SeatIDs []string
	Err     error
}

func (e *SeatConflictError) Error() string {
	if len(e.SeatIDs) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %s", e.Err.Error(), strings.Join(e.SeatIDs, ", "))
}

func (e *SeatConflictError) Unwrap() error {
	return e.Err
}

// PaymentRejectedError carries the message returned by the authority so it can
// be shown to the user verbatim.
type PaymentRejectedError struct {
	Status  int
	Message string
}

func (e *PaymentRejectedError) Error() string {
	if e.Message == "" {
		return ErrPaymentRejected.Error()
	}

	return e.Message
}

func (e *PaymentRejectedError) Unwrap() error {
	return ErrPaymentRejected
}
