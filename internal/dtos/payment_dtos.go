package dtos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/models"
)

// CreatePaymentRequest starts a checkout. A missing or zero amount_paid
// charges the lease rent; lease_id defaults to the tenant's active lease.
type CreatePaymentRequest struct {
	AmountPaid *Money     `json:"amount_paid,omitempty"`
	LeaseID    *uuid.UUID `json:"lease_id,omitempty"`
}

type CreatePaymentResponse struct {
	CheckoutURL   string    `json:"checkout_url"`
	PaymentID     uuid.UUID `json:"payment_id"`
	AmountPaid    Money     `json:"amount_paid"`
	PaymentStatus string    `json:"payment_status"`
}

type UpdatePaymentRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=pending succeeded failed"`
}

type VerifyPaymentResponse struct {
	SessionID     string `json:"session_id"`
	PaymentStatus string `json:"payment_status"`
	SessionStatus string `json:"session_status"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Result   string `json:"result"`
}

type PaymentResponse struct {
	ID                    uuid.UUID `json:"id"`
	TenantID              uuid.UUID `json:"tenant_id"`
	LeaseID               uuid.UUID `json:"lease_id"`
	AmountPaid            Money     `json:"amount_paid"`
	PaymentStatus         string    `json:"payment_status"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id"`
	StripeChargeID        *string   `json:"stripe_charge_id,omitempty"`
	FailureReason         *string   `json:"failure_reason,omitempty"`
	CheckoutURL           string    `json:"checkout_url"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	RowVersion            int64     `json:"row_version"`
}

func NewPaymentResponse(p *models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                    p.ID,
		TenantID:              p.TenantID,
		LeaseID:               p.LeaseID,
		AmountPaid:            MoneyFromCents(p.AmountCents),
		PaymentStatus:         string(p.Status),
		StripePaymentIntentID: p.CheckoutSessionID,
		StripeChargeID:        p.StripeChargeID,
		FailureReason:         p.FailureReason,
		CheckoutURL:           fmt.Sprintf(constants.CheckoutURLFormat, p.CheckoutSessionID),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
		RowVersion:            p.RowVersion,
	}
}

func NewPaymentListResponse(payments []*models.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, NewPaymentResponse(p))
	}
	return out
}
