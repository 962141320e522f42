package mocks

import (
	"context"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/payment"
	"github.com/stretchr/testify/mock"
)

type MockOrderMinter struct {
	mock.Mock
}

func (m *MockOrderMinter) MintOrder(ctx context.Context, req payment.OrderRequest) (*domain.ProviderOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderOrder), args.Error(1)
}
