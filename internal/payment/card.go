package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/metrics"
)

type normalizedCard struct {
	Number     string `validate:"card_number"`
	HolderName string `validate:"required,max=100"`
	Expiry     string `validate:"card_expiry"`
	CVV        string `validate:"cvv"`
}

// CardSettlement pays a booking with card details in one synchronous call.
type CardSettlement struct {
	authority domain.PaymentAuthority
	validate  *validator.Validate
	settle    settlement
	now       func() time.Time
}

func NewCardSettlement(
	authority domain.PaymentAuthority,
	validate *validator.Validate,
	logger *slog.Logger,
	m *metrics.Metrics) *CardSettlement {

	return &CardSettlement{
		authority: authority,
		validate:  validate,
		settle:    settlement{logger: logger, metrics: m},
		now:       time.Now,
	}
}

func (c *CardSettlement) Method() domain.PaymentMethod {
	return domain.PaymentMethodCard
}

// Start checks and normalises the card before anything leaves the process,
// then settles. A rejection fails the booking for good.
func (c *CardSettlement) Start(ctx context.Context, booking *domain.Booking, payload Payload) (*domain.PaymentAttempt, error) {
	card, err := c.NormalizeCard(payload.Card)
	if err != nil {
		return nil, err
	}

	attempt := domain.NewPaymentAttempt(domain.PaymentMethodCard, c.now())

	err = c.settle.run(ctx, booking, attempt, func(ctx context.Context) (*domain.SettlementResult, error) {
		return c.authority.SettleCardPayment(ctx, booking.ID, card)
	})

	return attempt, err
}

func (c *CardSettlement) Resume(context.Context, *domain.Booking, *domain.PaymentAttempt, Callback) error {
	return domain.ErrNoPendingOrder
}

// NormalizeCard checks that all four fields are present, strips spaces from the
// number, formats the expiry as MM/YY and validates the result.
func (c *CardSettlement) NormalizeCard(fields domain.CardFields) (domain.CardFields, error) {
	fields = domain.CardFields{
		Number:     strings.TrimSpace(fields.Number),
		HolderName: strings.TrimSpace(fields.HolderName),
		Expiry:     strings.TrimSpace(fields.Expiry),
		CVV:        strings.TrimSpace(fields.CVV),
	}

	err := c.validate.Struct(fields)
	if err != nil {
		return domain.CardFields{}, domain.ErrIncompleteCardInput
	}

	card := normalizedCard{
		Number:     digitsOnly(fields.Number),
		HolderName: fields.HolderName,
		Expiry:     formatExpiry(fields.Expiry),
		CVV:        fields.CVV,
	}

	err = c.validate.Struct(card)
	if err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return domain.CardFields{}, &InvalidCardError{Fields: vErrs}
		}

		return domain.CardFields{}, fmt.Errorf("%w: %w", domain.ErrInvalidCardInput, err)
	}

	return domain.CardFields(card), nil
}

// InvalidCardError lists the card fields that failed validation.
type InvalidCardError struct {
	Fields validator.ValidationErrors
}

func (e *InvalidCardError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field())
	}

	return fmt.Sprintf("%s: %s", domain.ErrInvalidCardInput.Error(), strings.Join(names, ", "))
}

func (e *InvalidCardError) Unwrap() error {
	return domain.ErrInvalidCardInput
}

// digitsOnly drops the spaces and dashes users type between card number groups.
func digitsOnly(number string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, number)
}

// formatExpiry turns "0928", "9/28" or "09/2028" into "09/28". Anything it does
// not recognise is returned unchanged for the validator to reject.
func formatExpiry(expiry string) string {
	expiry = strings.ReplaceAll(expiry, " ", "")

	month, year, found := strings.Cut(expiry, "/")
	if !found {
		if len(expiry) != 4 {
			return expiry
		}
		month, year = expiry[:2], expiry[2:]
	}

	if len(month) == 1 {
		month = "0" + month
	}

	if len(year) == 4 && strings.HasPrefix(year, "20") {
		year = year[2:]
	}

	return month + "/" + year
}
