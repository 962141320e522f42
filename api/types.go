// Package api holds the request and response bodies of the checkout HTTP
// surface.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`

	// SeatIds lists the seats behind a booking conflict.
	SeatIds  []string  `json:"seatIds,omitempty"`
	Checkout *Checkout `json:"checkout,omitempty"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type SelectDateRequest struct {
	MovieId string             `json:"movieId" validate:"required"`
	Date    openapi_types.Date `json:"date" validate:"not_past"`
}

type SelectShowtimeRequest struct {
	ShowtimeId string `json:"showtimeId" validate:"required"`
}

type CardPaymentRequest struct {
	CardNumber string `json:"cardNumber"`
	CardName   string `json:"cardName"`
	ExpiryDate string `json:"expiryDate"`
	Cvv        string `json:"cvv"`
}

type RedirectPaymentRequest struct {
	Description string `json:"description" validate:"max=127"`
}

type ApproveRedirectRequest struct {
	OrderId string `json:"orderId" validate:"required"`
}

type FailRedirectRequest struct {
	Reason string `json:"reason"`
}

type Showtime struct {
	Id       string          `json:"id"`
	MovieId  string          `json:"movieId"`
	StartsAt time.Time       `json:"startsAt"`
	Time     string          `json:"time"`
	Price    decimal.Decimal `json:"price"`
}

// SeatMap lists occupied seats only; every other seat is available.
type SeatMap struct {
	ShowtimeId     string          `json:"showtimeId"`
	SoldSeats      []string        `json:"soldSeats"`
	ReservedSeats  []string        `json:"reservedSeats"`
	SelectedSeats  []string        `json:"selectedSeats"`
	LoadedAt       *time.Time      `json:"loadedAt,omitempty"`
	Stale          bool            `json:"stale"`
	MaxSelectable  int             `json:"maxSelectable"`
	SelectionTotal decimal.Decimal `json:"selectionTotal"`
}

type Booking struct {
	Id            string          `json:"id"`
	ShowtimeId    string          `json:"showtimeId"`
	Seats         []string        `json:"seats"`
	SeatCount     int             `json:"seatCount"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Currency      string          `json:"currency"`
	PaymentStatus string          `json:"paymentStatus"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type PaymentAttempt struct {
	Id            string    `json:"id"`
	Method        string    `json:"method"`
	Stage         string    `json:"stage"`
	Outcome       string    `json:"outcome"`
	OrderId       string    `json:"orderId,omitempty"`
	OrderSource   string    `json:"orderSource,omitempty"`
	ApprovalUrl   string    `json:"approvalUrl,omitempty"`
	FailureReason string    `json:"failureReason,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
}

type Notice struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	SeatIds []string `json:"seatIds,omitempty"`
}

type Checkout struct {
	Stage     string          `json:"stage"`
	MovieId   string          `json:"movieId,omitempty"`
	Date      string          `json:"date,omitempty"`
	Showtimes []Showtime      `json:"showtimes"`
	Showtime  *Showtime       `json:"showtime,omitempty"`
	Seats     *SeatMap        `json:"seats,omitempty"`
	Booking   *Booking        `json:"booking,omitempty"`
	Payment   *PaymentAttempt `json:"payment,omitempty"`
	Notice    *Notice         `json:"notice,omitempty"`
}

type CheckoutResponse struct {
	Checkout Checkout `json:"checkout"`
}

type SeatMapResponse struct {
	Seats SeatMap `json:"seats"`
}
