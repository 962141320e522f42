package integration_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lam4est/CinemaX/internal/checkout"
	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CheckoutSuite struct {
	BaseSuite
}

func TestCheckoutSuite(t *testing.T) {
	suite.Run(t, new(CheckoutSuite))
}

func (s *CheckoutSuite) card(number string) payment.Payload {
	return payment.Payload{Card: domain.CardFields{
		Number:     number,
		HolderName: "NGUYEN VAN A",
		Expiry:     "12/34",
		CVV:        "123",
	}}
}

// pick takes a controller to the evening showing with seats selected.
func (s *CheckoutSuite) pick(controller *checkout.Controller, seatIDs ...string) checkout.View {
	date, err := time.Parse(time.DateOnly, showDate)
	s.Require().NoError(err)

	view, err := controller.SelectDate(s.ctx, movieID, date)
	s.Require().NoError(err)
	s.Require().Len(view.Showtimes, 2)
	s.Equal("11", view.Showtimes[0].ID)
	s.Equal("12", view.Showtimes[1].ID)

	view, err = controller.SelectShowtime(s.ctx, "11")
	s.Require().NoError(err)
	s.Require().False(view.Stale)

	for _, id := range seatIDs {
		view, err = controller.ToggleSeat(s.ctx, id)
		s.Require().NoError(err)
	}

	return view
}

func (s *CheckoutSuite) TestCardCheckout() {
	s.authority.sell(eveningSlot, "C1")
	controller := s.newController("visitor-a", bearerToken)

	view := s.pick(controller, "A1", "A2")
	s.Require().NotNil(view.Seats)
	s.Equal(domain.SeatSoldPaid, view.Seats.State("C1"))
	s.True(view.LocalTotal.Equal(decimal.NewFromInt(200000)))

	_, err := controller.ToggleSeat(s.ctx, "C1")
	s.ErrorIs(err, domain.ErrSeatUnavailable)

	view, err = controller.ProceedToCheckout(s.ctx)
	s.Require().NoError(err)
	s.Equal(checkout.StagePaymentIdle, view.Stage)
	s.Equal("bk-1", view.Booking.ID)
	s.True(view.Booking.TotalPrice.Equal(decimal.NewFromInt(200000)))

	view, err = controller.Pay(s.ctx, domain.PaymentMethodCard, s.card(acceptedCard))
	s.Require().NoError(err)
	s.Equal(checkout.StageConfirmed, view.Stage)
	s.Equal(domain.PaymentStatusPaid, view.Booking.PaymentStatus)

	s.Equal(1, s.authority.count("booking"))
	s.Equal(1, s.authority.count("payment"))

	n, err := s.redis.Exists(s.ctx, "seatmap:visitor-a:11").Result()
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *CheckoutSuite) TestConflictDropsSeatTakenByAnotherVisitor() {
	first := s.newController("visitor-a", bearerToken)
	second := s.newController("visitor-b", bearerToken)

	s.pick(first, "A1", "A2")
	s.pick(second, "A2")

	_, err := second.ProceedToCheckout(s.ctx)
	s.Require().NoError(err)

	view, err := first.ProceedToCheckout(s.ctx)
	s.Require().ErrorIs(err, domain.ErrBookingConflict)

	var conflict *domain.SeatConflictError
	s.Require().True(errors.As(err, &conflict))
	s.Equal([]string{"A2"}, conflict.SeatIDs)

	s.Equal(checkout.StageSelecting, view.Stage)
	s.Equal([]string{"A1"}, view.Selection)
	s.Require().NotNil(view.Notice)
	s.Equal(checkout.NoticeConflict, view.Notice.Kind)
	s.Equal([]string{"A2"}, view.Notice.SeatIDs)
	s.Nil(view.Booking)

	view, err = first.ProceedToCheckout(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"A1"}, view.Booking.Seats)
}

func (s *CheckoutSuite) TestDeclinedCardRestoresSelection() {
	controller := s.newController("visitor-a", bearerToken)
	s.pick(controller, "B3", "B4")

	_, err := controller.ProceedToCheckout(s.ctx)
	s.Require().NoError(err)

	view, err := controller.Pay(s.ctx, domain.PaymentMethodCard, s.card(declinedCard))
	s.Require().ErrorIs(err, domain.ErrPaymentRejected)

	s.Equal(checkout.StageSelecting, view.Stage)
	s.Nil(view.Booking)
	s.Equal([]string{"B3", "B4"}, view.Selection)
	s.Require().NotNil(view.Notice)
	s.Equal(checkout.NoticePaymentRejected, view.Notice.Kind)
	s.Equal("Your card was declined", view.Notice.Message)
}

func (s *CheckoutSuite) TestRedirectCheckout() {
	controller := s.newController("visitor-a", bearerToken)
	s.pick(controller, "D5")

	_, err := controller.ProceedToCheckout(s.ctx)
	s.Require().NoError(err)

	view, err := controller.Pay(s.ctx, domain.PaymentMethodRedirect, payment.Payload{})
	s.Require().NoError(err)
	s.Equal(checkout.StagePaymentPending, view.Stage)
	s.Equal("https://provider.test/approve/PAYPAL-bk-1", view.Attempt.ApprovalURL)

	_, err = controller.ApproveRedirect(s.ctx, "PAYPAL-bk-9")
	s.ErrorIs(err, domain.ErrOrderMismatch)

	view, err = controller.ApproveRedirect(s.ctx, "PAYPAL-bk-1")
	s.Require().NoError(err)
	s.Equal(checkout.StageConfirmed, view.Stage)
	s.Equal(1, s.authority.count("order"))
	s.Equal(1, s.authority.count("payment"))
}

func (s *CheckoutSuite) TestAnonymousVisitorCannotBook() {
	controller := s.newController("visitor-a", "")
	s.pick(controller, "A1")

	view, err := controller.ProceedToCheckout(s.ctx)
	s.Require().ErrorIs(err, domain.ErrUnauthorized)

	s.Equal(checkout.StageSelecting, view.Stage)
	s.Equal([]string{"A1"}, view.Selection)
	s.Equal(0, s.authority.count("booking"))
}
