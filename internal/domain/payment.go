package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodRedirect PaymentMethod = "redirect"
)

type PaymentOutcome string

const (
	PaymentOutcomePending   PaymentOutcome = "pending"
	PaymentOutcomeApproved  PaymentOutcome = "approved"
	PaymentOutcomeRejected  PaymentOutcome = "rejected"
	PaymentOutcomeCancelled PaymentOutcome = "cancelled"
)

// PaymentStage tracks a redirect attempt through the provider protocol. Card
// attempts go straight from idle to settling.
type PaymentStage string

const (
	PaymentStageIdle         PaymentStage = "idle"
	PaymentStageOrderCreated PaymentStage = "order-created"
	PaymentStageApproved     PaymentStage = "approved"
	PaymentStageSettling     PaymentStage = "settling"
	PaymentStageSettled      PaymentStage = "settled"
	PaymentStageFailed       PaymentStage = "failed"
)

func (s PaymentStage) IsTerminal() bool {
	return s == PaymentStageSettled || s == PaymentStageFailed
}

// OrderSource tells where a provider order id came from.
type OrderSource string

const (
	OrderSourceAuthority OrderSource = "authority"
	OrderSourceProvider  OrderSource = "provider"
)

// PaymentAttempt lives for a single settlement try and is never persisted.
type PaymentAttempt struct {
	ID            uuid.UUID
	Method        PaymentMethod
	CorrelationID string
	OrderSource   OrderSource
	ApprovalURL   string
	Outcome       PaymentOutcome
	Stage         PaymentStage
	FailureReason string
	StartedAt     time.Time
}

func NewPaymentAttempt(method PaymentMethod, now time.Time) *PaymentAttempt {
	return &PaymentAttempt{
		ID:        uuid.New(),
		Method:    method,
		Outcome:   PaymentOutcomePending,
		Stage:     PaymentStageIdle,
		StartedAt: now,
	}
}

func (a *PaymentAttempt) Clone() *PaymentAttempt {
	if a == nil {
		return nil
	}

	c := *a

	return &c
}

type CardFields struct {
	Number     string `validate:"required"`
	HolderName string `validate:"required"`
	Expiry     string `validate:"required"`
	CVV        string `validate:"required"`
}

type SettlementStatus string

const (
	SettlementPaid     SettlementStatus = "paid"
	SettlementRejected SettlementStatus = "rejected"
)

type SettlementResult struct {
	Status  SettlementStatus
	Message string
}

// ProviderOrder is a redirect provider order reference. Placeholder is set when
// the authority answered in degraded mode and the id must not be used.
type ProviderOrder struct {
	ID          string
	ApprovalURL string
	Placeholder bool
}
