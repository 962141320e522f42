package authority

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lam4est/CinemaX/internal/domain"
)

type cardPaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
	CardNumber    string `json:"card_number"`
	CardName      string `json:"card_name"`
	ExpiryDate    string `json:"expiry_date"`
	CVV           string `json:"cvv"`
}

type providerPaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
	PayPalOrderID string `json:"paypal_order_id"`
}

type settlementReply struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Message       string `json:"message"`
}

type providerOrderReply struct {
	OrderID     flexID `json:"order_id"`
	ApprovalURL string `json:"approval_url"`
	Warning     string `json:"warning"`
}

var rejectedStatuses = map[string]bool{
	"failed":   true,
	"rejected": true,
	"declined": true,
	"unpaid":   true,
}

// SettleCardPayment submits already normalised card fields in one round trip.
func (c *Client) SettleCardPayment(ctx context.Context, bookingID string, card domain.CardFields) (*domain.SettlementResult, error) {
	return c.settle(ctx, "settle_card_payment", bookingID, cardPaymentRequest{
		PaymentMethod: "card",
		CardNumber:    card.Number,
		CardName:      card.HolderName,
		ExpiryDate:    card.Expiry,
		CVV:           card.CVV,
	})
}

// SettleProviderPayment reports an approved provider order to the authority.
func (c *Client) SettleProviderPayment(ctx context.Context, bookingID, providerOrderID string) (*domain.SettlementResult, error) {
	return c.settle(ctx, "settle_provider_payment", bookingID, providerPaymentRequest{
		PaymentMethod: "paypal",
		PayPalOrderID: providerOrderID,
	})
}

// CreateProviderOrder asks the authority to mint a provider order. A reply with
// a warning or without an id means the authority runs in placeholder mode.
func (c *Client) CreateProviderOrder(ctx context.Context, bookingID string) (*domain.ProviderOrder, error) {
	rep, err := c.do(ctx, call{
		op:          "create_provider_order",
		method:      http.MethodPost,
		path:        "bookings/" + url.PathEscape(bookingID) + "/paypal/order/",
		auth:        authRequired,
		unreachable: domain.ErrPaymentUnreachable,
	})
	if err != nil {
		return nil, err
	}

	if !rep.ok() {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderUnavailable, rep.errorBody().message(rep.status))
	}

	var body providerOrderReply
	if err := rep.decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed order reply: %w", domain.ErrOrderUnavailable, err)
	}

	order := &domain.ProviderOrder{
		ID:          string(body.OrderID),
		ApprovalURL: body.ApprovalURL,
		Placeholder: body.Warning != "" || body.OrderID == "",
	}

	if order.Placeholder {
		c.logger.Info("authority returned placeholder provider order", "booking_id", bookingID, "warning", body.Warning)
	}

	return order, nil
}

func (c *Client) settle(ctx context.Context, op, bookingID string, payload any) (*domain.SettlementResult, error) {
	rep, err := c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        "bookings/" + url.PathEscape(bookingID) + "/payment/",
		body:        payload,
		auth:        authRequired,
		unreachable: domain.ErrPaymentUnreachable,
	})
	if err != nil {
		return nil, err
	}

	if !rep.ok() {
		return nil, &domain.PaymentRejectedError{
			Status:  rep.status,
			Message: rep.errorBody().message(rep.status),
		}
	}

	var body settlementReply
	if err := rep.decode(&body); err != nil {
		c.logger.Warn("unreadable settlement reply, treating 2xx as paid", "booking_id", bookingID, "error", err)
	}

	status := strings.ToLower(body.Status)
	if status == "" {
		status = strings.ToLower(body.PaymentStatus)
	}

	if rejectedStatuses[status] {
		return &domain.SettlementResult{Status: domain.SettlementRejected, Message: body.Message}, nil
	}

	return &domain.SettlementResult{Status: domain.SettlementPaid, Message: body.Message}, nil
}
