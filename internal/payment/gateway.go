// Package payment settles bookings with the authority, either directly with
// card details or through a redirect provider.
package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/lam4est/CinemaX/internal/domain"
)

// Payload is the method specific input of Gateway.Start.
type Payload struct {
	Card domain.CardFields

	// Description labels the provider order when the provider mints it.
	Description string
}

type CallbackKind string

const (
	CallbackApprove CallbackKind = "approve"
	CallbackCancel  CallbackKind = "cancel"
	CallbackError   CallbackKind = "error"
)

// Callback is what the redirect provider reports after the user leaves its
// approval page.
type Callback struct {
	Kind            CallbackKind
	ProviderOrderID string
	Err             error
}

// Gateway drives one payment method. Start and Resume mutate the booking and
// the attempt they are given; callers pass copies they own.
type Gateway interface {
	Method() domain.PaymentMethod
	Start(ctx context.Context, booking *domain.Booking, payload Payload) (*domain.PaymentAttempt, error)
	Resume(ctx context.Context, booking *domain.Booking, attempt *domain.PaymentAttempt, cb Callback) error
}

// OrderRequest asks a provider to mint an order for a booking.
type OrderRequest struct {
	Booking     *domain.Booking
	AttemptID   uuid.UUID
	Description string
}

type OrderMinter interface {
	MintOrder(ctx context.Context, req OrderRequest) (*domain.ProviderOrder, error)
}

// Registry picks the gateway of a payment method.
type Registry map[domain.PaymentMethod]Gateway

func NewRegistry(gateways ...Gateway) Registry {
	r := make(Registry, len(gateways))
	for _, g := range gateways {
		r[g.Method()] = g
	}

	return r
}

func (r Registry) Get(method domain.PaymentMethod) (Gateway, error) {
	g, ok := r[method]
	if !ok {
		return nil, domain.ErrUnsupportedPaymentMethod
	}

	return g, nil
}
