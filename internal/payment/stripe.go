package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// currencies Stripe expects in major units
var zeroDecimalCurrencies = map[string]bool{
	"vnd": true,
	"jpy": true,
	"krw": true,
}

// StripeOrderMinter creates a Stripe Checkout Session when the authority
// cannot mint a provider order itself.
type StripeOrderMinter struct {
	currency   string
	successUrl string
	cancelUrl  string
	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripeOrderMinter(currency, successUrl, cancelUrl string) *StripeOrderMinter {
	return &StripeOrderMinter{
		currency:   strings.ToLower(currency),
		successUrl: successUrl,
		cancelUrl:  cancelUrl,
		newSession: session.New,
	}
}

func (s *StripeOrderMinter) MintOrder(ctx context.Context, req OrderRequest) (*domain.ProviderOrder, error) {
	booking := req.Booking

	amount, err := s.minorUnits(booking.TotalPrice)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
						Description: stripe.String(fmt.Sprintf(
							"Seats: %s",
							strings.Join(booking.Seats, ", "),
						)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.cancelUrl),
		Metadata: map[string]string{
			"booking_id":  booking.ID,
			"showtime_id": booking.ShowtimeID,
			"attempt_id":  req.AttemptID.String(),
		},
		ClientReferenceID: stripe.String(booking.ID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.AttemptID.String())

	checkout, err := s.newSession(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &domain.ProviderOrder{
		ID:          checkout.ID,
		ApprovalURL: checkout.URL,
	}, nil
}

func (s *StripeOrderMinter) minorUnits(total decimal.Decimal) (int64, error) {
	if !total.IsPositive() {
		return 0, fmt.Errorf("cannot charge non-positive amount %s", total)
	}

	if zeroDecimalCurrencies[s.currency] {
		return total.Round(0).IntPart(), nil
	}

	return total.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// UnavailableOrderMinter is used when no provider credentials are configured.
type UnavailableOrderMinter struct{}

func (UnavailableOrderMinter) MintOrder(context.Context, OrderRequest) (*domain.ProviderOrder, error) {
	return nil, fmt.Errorf("no payment provider configured")
}
