package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatusType string

const (
	PaymentStatusPending   PaymentStatusType = "pending"
	PaymentStatusSucceeded PaymentStatusType = "succeeded"
	PaymentStatusFailed    PaymentStatusType = "failed"
)

func (s PaymentStatusType) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

// CanTransitionTo is true only for pending -> succeeded and pending -> failed.
func (s PaymentStatusType) CanTransitionTo(next PaymentStatusType) bool {
	return s == PaymentStatusPending && next.IsTerminal()
}

// Payment is one attempt to pay toward a lease. CheckoutSessionID is the
// correlation key with the payment processor and is unique.
type Payment struct {
	Versioned
	ID                uuid.UUID         `json:"id"`
	TenantID          uuid.UUID         `json:"tenant_id"`
	LeaseID           uuid.UUID         `json:"lease_id"`
	AmountCents       int64             `json:"amount_cents"`
	Status            PaymentStatusType `json:"payment_status"`
	CheckoutSessionID string            `json:"stripe_payment_intent_id"`
	// StripeChargeID holds the payment intent the session settled with, once known.
	StripeChargeID *string   `json:"stripe_charge_id,omitempty"`
	FailureReason  *string   `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p *Payment) GetID() string {
	return p.ID.String()
}
