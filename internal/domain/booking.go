package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type BookingStatus string

const (
	BookingStatusCreated        BookingStatus = "created"
	BookingStatusPaymentPending BookingStatus = "payment-pending"
	BookingStatusSettled        BookingStatus = "settled"
	BookingStatusFailed         BookingStatus = "failed"
)

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusSettled || s == BookingStatusFailed
}

// Booking is the client's working copy of a booking record created by the
// authority. It is discarded, never retried, once its payment fails.
type Booking struct {
	ID            string
	ShowtimeID    string
	MovieID       string
	Seats         []string
	TotalPrice    decimal.Decimal
	LocalTotal    decimal.Decimal
	PaymentStatus PaymentStatus
	Status        BookingStatus
	CreatedAt     time.Time
}

// BookingRecord is the authority's reply to a booking request.
type BookingRecord struct {
	ID         string
	ShowtimeID string
	Seats      []string
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}

	c := *b
	c.Seats = slices.Clone(b.Seats)

	return &c
}

func (b *Booking) MarkPending() {
	b.Status = BookingStatusPaymentPending
}

func (b *Booking) MarkSettled() {
	b.Status = BookingStatusSettled
	b.PaymentStatus = PaymentStatusPaid
}

func (b *Booking) MarkFailed() {
	b.Status = BookingStatusFailed
	b.PaymentStatus = PaymentStatusUnpaid
}

// Reopen puts a booking back to created after a payment attempt ended without
// an authoritative outcome.
func (b *Booking) Reopen() {
	b.Status = BookingStatusCreated
	b.PaymentStatus = PaymentStatusUnpaid
}
