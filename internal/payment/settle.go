package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/metrics"
)

// settlement runs the single settlement round trip shared by both methods and
// applies its outcome to the booking and the attempt.
type settlement struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (s settlement) run(
	ctx context.Context,
	booking *domain.Booking,
	attempt *domain.PaymentAttempt,
	call func(ctx context.Context) (*domain.SettlementResult, error)) error {

	booking.MarkPending()
	attempt.Stage = domain.PaymentStageSettling

	result, err := call(ctx)
	if err == nil && result.Status == domain.SettlementRejected {
		err = &domain.PaymentRejectedError{Message: result.Message}
	}

	method := string(attempt.Method)

	switch {
	case err == nil:
		booking.MarkSettled()
		attempt.Stage = domain.PaymentStageSettled
		attempt.Outcome = domain.PaymentOutcomeApproved
		s.metrics.PaymentFinished(method, string(attempt.Outcome))

		s.logger.Info("payment settled", "booking_id", booking.ID, "method", method, "attempt_id", attempt.ID)

		return nil

	case errors.Is(err, domain.ErrPaymentRejected):
		booking.MarkFailed()
		attempt.Stage = domain.PaymentStageFailed
		attempt.Outcome = domain.PaymentOutcomeRejected
		attempt.FailureReason = err.Error()
		s.metrics.PaymentFinished(method, string(attempt.Outcome))

		s.logger.Info("payment rejected", "booking_id", booking.ID, "method", method, "reason", attempt.FailureReason)

		return err

	default:
		// no authoritative answer: the booking stays payable
		booking.Reopen()
		attempt.Stage = domain.PaymentStageFailed
		attempt.FailureReason = err.Error()
		s.metrics.PaymentFinished(method, "unreachable")

		s.logger.Warn("payment settlement did not complete", "booking_id", booking.ID, "method", method, "error", err)

		return err
	}
}
