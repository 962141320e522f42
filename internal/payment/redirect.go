package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/metrics"
)

// RedirectSettlement pays through an external provider: an order is created,
// the user approves it on the provider's page, and the approval is settled
// with the authority in exactly one call.
type RedirectSettlement struct {
	authority domain.PaymentAuthority
	minter    OrderMinter
	logger    *slog.Logger
	settle    settlement
	now       func() time.Time
}

// NewRedirectSettlement builds the redirect gateway. minter may be nil, in
// which case a placeholder order from the authority is an error.
func NewRedirectSettlement(
	authority domain.PaymentAuthority,
	minter OrderMinter,
	logger *slog.Logger,
	m *metrics.Metrics) *RedirectSettlement {

	return &RedirectSettlement{
		authority: authority,
		minter:    minter,
		logger:    logger,
		settle:    settlement{logger: logger, metrics: m},
		now:       time.Now,
	}
}

func (r *RedirectSettlement) Method() domain.PaymentMethod {
	return domain.PaymentMethodRedirect
}

// Start creates the provider order. The authority is asked first; when it
// fails or only has a placeholder, the provider mints the order itself.
func (r *RedirectSettlement) Start(ctx context.Context, booking *domain.Booking, payload Payload) (*domain.PaymentAttempt, error) {
	attempt := domain.NewPaymentAttempt(domain.PaymentMethodRedirect, r.now())

	order, source, err := r.createOrder(ctx, booking, attempt, payload.Description)
	if err != nil {
		attempt.FailureReason = err.Error()
		return attempt, err
	}

	attempt.CorrelationID = order.ID
	attempt.ApprovalURL = order.ApprovalURL
	attempt.OrderSource = source
	attempt.Stage = domain.PaymentStageOrderCreated

	r.logger.Info("provider order created",
		"booking_id", booking.ID,
		"order_id", order.ID,
		"source", source,
		"attempt_id", attempt.ID,
	)

	return attempt, nil
}

func (r *RedirectSettlement) createOrder(
	ctx context.Context,
	booking *domain.Booking,
	attempt *domain.PaymentAttempt,
	description string) (*domain.ProviderOrder, domain.OrderSource, error) {

	order, err := r.authority.CreateProviderOrder(ctx, booking.ID)

	switch {
	case err == nil && !order.Placeholder:
		return order, domain.OrderSourceAuthority, nil
	case errors.Is(err, domain.ErrUnauthorized), ctx.Err() != nil:
		return nil, "", err
	case err != nil:
		r.logger.Warn("authority could not create provider order, minting with provider", "booking_id", booking.ID, "error", err)
	default:
		r.logger.Info("authority order is a placeholder, minting with provider", "booking_id", booking.ID)
	}

	if r.minter == nil {
		return nil, "", domain.ErrOrderUnavailable
	}

	if description == "" {
		description = "Booking " + booking.ID
	}

	order, err = r.minter.MintOrder(ctx, OrderRequest{
		Booking:     booking,
		AttemptID:   attempt.ID,
		Description: description,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrOrderUnavailable, err)
	}

	return order, domain.OrderSourceProvider, nil
}

// Resume applies a provider callback to a pending attempt. Approval triggers
// the settlement call; cancel and error end the attempt and return it to
// idle with the booking still unpaid.
func (r *RedirectSettlement) Resume(ctx context.Context, booking *domain.Booking, attempt *domain.PaymentAttempt, cb Callback) error {
	if attempt == nil {
		return domain.ErrNoPendingOrder
	}

	switch attempt.Stage {
	case domain.PaymentStageSettled:
		return domain.ErrCheckoutSettled
	case domain.PaymentStageApproved, domain.PaymentStageSettling:
		return domain.ErrPaymentInProgress
	}

	switch cb.Kind {
	case CallbackApprove:
		if attempt.Stage != domain.PaymentStageOrderCreated {
			return domain.ErrNoPendingOrder
		}

		if cb.ProviderOrderID != "" && cb.ProviderOrderID != attempt.CorrelationID {
			return domain.ErrOrderMismatch
		}

		attempt.Stage = domain.PaymentStageApproved

		return r.settle.run(ctx, booking, attempt, func(ctx context.Context) (*domain.SettlementResult, error) {
			return r.authority.SettleProviderPayment(ctx, booking.ID, attempt.CorrelationID)
		})

	case CallbackCancel, CallbackError:
		if attempt.Stage == domain.PaymentStageFailed {
			return domain.ErrNoPendingOrder
		}

		attempt.Stage = domain.PaymentStageIdle
		attempt.Outcome = domain.PaymentOutcomeCancelled
		if cb.Kind == CallbackError {
			attempt.Outcome = domain.PaymentOutcomeRejected
			if cb.Err != nil {
				attempt.FailureReason = cb.Err.Error()
			}
		}

		booking.Reopen()
		r.settle.metrics.PaymentFinished(string(attempt.Method), string(attempt.Outcome))

		r.logger.Info("provider attempt ended", "booking_id", booking.ID, "callback", cb.Kind, "attempt_id", attempt.ID)

		return nil

	default:
		return fmt.Errorf("unknown provider callback %q", cb.Kind)
	}
}
