package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/dtos"
	"github.com/poofware/rental-service/internal/services"
	"github.com/poofware/rental-service/internal/utils"
)

// Stripe rejects payloads above this, so anything larger is not theirs.
const maxWebhookBodyBytes = 1 << 16

type StripeWebhookController struct {
	paymentService *services.PaymentService
}

func NewStripeWebhookController(s *services.PaymentService) *StripeWebhookController {
	return &StripeWebhookController{paymentService: s}
}

// WebhookHandler -> POST /api/v1/rentals/payments/webhook
func (c *StripeWebhookController) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeUnauthorized, "Missing Stripe-Signature header", nil)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Failed to read webhook body", nil, err)
		return
	}

	// Processing must not be cut short by Stripe dropping the connection.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), constants.WebhookHandlingTimeout)
	defer cancel()

	result, err := c.paymentService.ReconcileWebhook(ctx, payload, sigHeader)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.WebhookResponse{Received: true, Result: string(result)})
}
