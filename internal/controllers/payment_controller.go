package controllers

import (
	"net/http"

	"github.com/poofware/rental-service/internal/dtos"
	"github.com/poofware/rental-service/internal/services"
	"github.com/poofware/rental-service/internal/utils"
)

const verifySessionParam = "session_id"

type PaymentController struct {
	paymentService *services.PaymentService
}

func NewPaymentController(s *services.PaymentService) *PaymentController {
	return &PaymentController{paymentService: s}
}

// POST /api/v1/rentals/payments/pay
func (c *PaymentController) RequestPaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.CreatePaymentRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.paymentService.RequestPayment(r.Context(), caller, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/rentals/payments/verify?session_id=...
func (c *PaymentController) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	sessionID := r.URL.Query().Get(verifySessionParam)
	if sessionID == "" {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Missing 'session_id' query param", nil)
		return
	}
	resp, err := c.paymentService.VerifyPayment(r.Context(), caller, sessionID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/rentals/payments
func (c *PaymentController) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	resp, err := c.paymentService.ListPayments(r.Context(), caller)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/rentals/payments/{id}
func (c *PaymentController) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	resp, err := c.paymentService.GetPayment(r.Context(), caller, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// PUT /api/v1/rentals/payments/{id}
func (c *PaymentController) UpdatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.UpdatePaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.paymentService.UpdatePayment(r.Context(), caller, id, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/rentals/payments/{id}
func (c *PaymentController) DeletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	if err := c.paymentService.DeletePayment(r.Context(), caller, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Payment deleted"})
}
