package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/rental-service/internal/config"
	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/dtos"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/repositories"
	"github.com/poofware/rental-service/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ReconcileResult describes what a webhook delivery did.
type ReconcileResult string

const (
	ReconcileApplied   ReconcileResult = "applied"
	ReconcileDuplicate ReconcileResult = "already_settled"
	ReconcileIgnored   ReconcileResult = "ignored"
)

// SweepResult summarizes one stale-pending sweep.
type SweepResult struct {
	Checked   int
	Succeeded int
	Failed    int
	Errors    int
}

// PaymentService correlates checkout sessions with local payment rows and
// drives each payment through pending -> succeeded | failed exactly once.
// It keeps no state between calls.
type PaymentService struct {
	cfg         *config.Config
	tenantRepo  repositories.TenantRepository
	leaseRepo   repositories.LeaseRepository
	paymentRepo repositories.PaymentRepository
	gateway     CheckoutGateway
	notifier    PaymentNotifier
	now         func() time.Time
}

func NewPaymentService(
	cfg *config.Config,
	tenantRepo repositories.TenantRepository,
	leaseRepo repositories.LeaseRepository,
	paymentRepo repositories.PaymentRepository,
	gateway CheckoutGateway,
	notifier PaymentNotifier,
) *PaymentService {
	return &PaymentService{
		cfg:         cfg,
		tenantRepo:  tenantRepo,
		leaseRepo:   leaseRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		notifier:    notifier,
		now:         time.Now,
	}
}

// RequestPayment opens a checkout session for the caller's lease and
// records a pending payment keyed by the session id.
func (s *PaymentService) RequestPayment(ctx context.Context, caller models.Principal, req dtos.CreatePaymentRequest) (*dtos.CreatePaymentResponse, error) {
	tenant, err := resolveTenant(ctx, s.tenantRepo, caller, nil)
	if err != nil {
		return nil, err
	}

	lease, err := s.resolveLease(ctx, tenant, req.LeaseID)
	if err != nil {
		return nil, err
	}

	amountCents := lease.RentAmountCents
	if req.AmountPaid != nil && !req.AmountPaid.IsZero() {
		amountCents, err = utils.PositiveCents(req.AmountPaid.Decimal)
		if err != nil {
			return nil, utils.Validation("amount_paid: %s", err.Error())
		}
	}
	if amountCents <= 0 || amountCents > utils.MaxAmountCents {
		return nil, utils.Validation("amount_paid: %s", utils.ErrAmountNotPositive.Error())
	}

	paymentID := uuid.New()
	log := utils.Logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"lease_id":   lease.ID,
		"tenant_id":  tenant.ID,
	})

	session, err := s.gateway.CreateSession(ctx, CheckoutSessionRequest{
		PaymentID:    paymentID,
		LeaseID:      lease.ID,
		TenantID:     tenant.ID,
		AmountCents:  amountCents,
		Currency:     constants.CheckoutCurrency,
		LineItemName: fmt.Sprintf(constants.CheckoutLineItemNameFormat, lease.ID),
		SuccessURL:   s.cfg.CheckoutSuccessURL,
		CancelURL:    s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		log.WithError(err).Error("Checkout session creation failed")
		return nil, utils.GatewayFailure(errors.New(GatewayMessage(err)))
	}

	payment := &models.Payment{
		ID:                paymentID,
		TenantID:          tenant.ID,
		LeaseID:           lease.ID,
		AmountCents:       amountCents,
		Status:            models.PaymentStatusPending,
		CheckoutSessionID: session.ID,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		// The session exists at the processor without a local row. Its
		// webhook will 404 and the session expires unpaid.
		log.WithError(err).WithField("session_id", session.ID).Error("Orphaned checkout session: failed to record payment")
		if errors.Is(err, utils.ErrDuplicateCheckoutID) {
			return nil, utils.Conflict("Checkout session already recorded", err)
		}
		return nil, utils.Internal("Failed to record payment", err)
	}

	log.WithField("session_id", session.ID).Info("Checkout session created")
	return &dtos.CreatePaymentResponse{
		CheckoutURL:   session.URL,
		PaymentID:     payment.ID,
		AmountPaid:    dtos.MoneyFromCents(amountCents),
		PaymentStatus: string(payment.Status),
	}, nil
}

func (s *PaymentService) resolveLease(ctx context.Context, tenant *models.Tenant, leaseID *uuid.UUID) (*models.Lease, error) {
	var (
		lease *models.Lease
		err   error
	)
	if leaseID != nil {
		lease, err = s.leaseRepo.GetByID(ctx, *leaseID)
	} else {
		lease, err = s.leaseRepo.FindActiveByTenantID(ctx, tenant.ID)
	}
	if err != nil {
		return nil, utils.Internal("Failed to load lease", err)
	}
	if lease == nil {
		return nil, utils.NotFound("Lease not found", utils.ErrLeaseNotFound)
	}
	if lease.TenantID != tenant.ID {
		return nil, utils.Forbidden("Lease does not belong to this tenant")
	}
	return lease, nil
}

// ReconcileWebhook verifies a processor callback and applies it. The
// signature is checked before anything in the payload is read.
func (s *PaymentService) ReconcileWebhook(ctx context.Context, payload []byte, signature string) (ReconcileResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.StripeWebhookSecret)
	if err != nil {
		return "", &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeUnauthorized,
			Message:    "Invalid webhook signature",
			Err:        fmt.Errorf("%w: %v", utils.ErrInvalidSignature, err),
		}
	}

	ev, err := decodeGatewayEvent(event)
	if err != nil {
		return "", &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeInvalidPayload,
			Message:    "Malformed webhook event",
			Err:        err,
		}
	}

	log := utils.Logger.WithFields(logrus.Fields{"event_id": ev.ID, "event_type": ev.Type})
	target, ok := ev.Kind.TargetStatus()
	if !ok {
		log.Info("Unhandled Stripe event type received")
		return ReconcileIgnored, nil
	}

	payment, err := s.paymentForEvent(ctx, ev)
	if err != nil {
		return "", utils.Internal("Failed to load payment", err)
	}
	if payment == nil {
		log.WithField("session_id", ev.SessionID).Warn("Webhook references no known payment")
		return "", utils.NotFound("Payment not found", utils.ErrPaymentNotFound)
	}

	chargeRef := ev.PaymentIntentID
	applied, updated, err := s.transition(ctx, payment.ID, target, chargeRef, ev.FailureReason)
	if err != nil {
		return "", paymentRepoError(err, "Failed to update payment")
	}
	if !applied {
		log.WithField("payment_id", payment.ID).Infof("Payment already %s; %s is a no-op", updated.Status, ev.Kind)
		return ReconcileDuplicate, nil
	}

	log.WithField("payment_id", payment.ID).Infof("Payment moved to %s", updated.Status)
	s.notify(ctx, updated)
	return ReconcileApplied, nil
}

func (s *PaymentService) paymentForEvent(ctx context.Context, ev GatewayEvent) (*models.Payment, error) {
	if ev.SessionID != "" {
		return s.paymentRepo.GetByCheckoutSessionID(ctx, ev.SessionID)
	}
	if ev.PaymentID != "" {
		id, err := uuid.Parse(ev.PaymentID)
		if err != nil {
			return nil, nil
		}
		return s.paymentRepo.GetByID(ctx, id)
	}
	return nil, nil
}

// transition moves a pending payment to target. A payment already in a
// terminal state is left alone and reported with applied=false.
func (s *PaymentService) transition(
	ctx context.Context,
	id uuid.UUID,
	target models.PaymentStatusType,
	chargeRef string,
	failureReason string,
) (applied bool, result *models.Payment, err error) {
	err = s.paymentRepo.UpdateWithRetry(ctx, id, func(p *models.Payment) error {
		result = p
		if !p.Status.CanTransitionTo(target) {
			applied = false
			return repositories.ErrNoChange
		}
		p.Status = target
		if chargeRef != "" {
			p.StripeChargeID = utils.Ptr(chargeRef)
		}
		if target == models.PaymentStatusFailed && failureReason != "" {
			p.FailureReason = utils.Ptr(failureReason)
		}
		applied = true
		return nil
	})
	return applied, result, err
}

func (s *PaymentService) notify(ctx context.Context, p *models.Payment) {
	if s.notifier == nil {
		return
	}
	tenant, err := s.tenantRepo.GetByID(ctx, p.TenantID)
	if err != nil || tenant == nil {
		utils.Logger.WithError(err).Warnf("Skipping notification for payment %s: tenant unavailable", p.ID)
		return
	}
	nctx, cancel := context.WithTimeout(ctx, constants.NotificationTimeout)
	defer cancel()
	s.notifier.PaymentSettled(nctx, tenant, p)
}

// VerifyPayment asks the processor for a session's current status without
// touching local state.
func (s *PaymentService) VerifyPayment(ctx context.Context, caller models.Principal, sessionID string) (*dtos.VerifyPaymentResponse, error) {
	if !caller.IsAdmin() {
		payment, err := s.paymentRepo.GetByCheckoutSessionID(ctx, sessionID)
		if err != nil {
			return nil, utils.Internal("Failed to load payment", err)
		}
		if payment == nil {
			return nil, utils.NotFound("Payment not found", utils.ErrPaymentNotFound)
		}
		if err := authorizeTenantResource(ctx, s.tenantRepo, caller, payment.TenantID); err != nil {
			return nil, err
		}
	}

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, utils.GatewayFailure(errors.New(GatewayMessage(err)))
	}
	return &dtos.VerifyPaymentResponse{
		SessionID:     session.ID,
		PaymentStatus: session.PaymentStatus,
		SessionStatus: session.Status,
	}, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, caller models.Principal) ([]dtos.PaymentResponse, error) {
	if !caller.IsAdmin() {
		return nil, utils.Forbidden("Only admins can list payments")
	}
	payments, err := s.paymentRepo.ListAll(ctx)
	if err != nil {
		return nil, utils.Internal("Failed to list payments", err)
	}
	return dtos.NewPaymentListResponse(payments), nil
}

func (s *PaymentService) GetPayment(ctx context.Context, caller models.Principal, id uuid.UUID) (*dtos.PaymentResponse, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.Internal("Failed to load payment", err)
	}
	if payment == nil {
		return nil, utils.NotFound("Payment not found", utils.ErrPaymentNotFound)
	}
	if err := authorizeTenantResource(ctx, s.tenantRepo, caller, payment.TenantID); err != nil {
		return nil, err
	}
	resp := dtos.NewPaymentResponse(payment)
	return &resp, nil
}

// UpdatePayment lets an admin settle a payment by hand. Only the
// pending -> terminal moves are accepted; restating the current status is
// a no-op.
func (s *PaymentService) UpdatePayment(ctx context.Context, caller models.Principal, id uuid.UUID, req dtos.UpdatePaymentRequest) (*dtos.PaymentResponse, error) {
	if !caller.IsAdmin() {
		return nil, utils.Forbidden("Only admins can update payments")
	}
	target := models.PaymentStatusType(req.PaymentStatus)

	var (
		result  *models.Payment
		applied bool
	)
	err := s.paymentRepo.UpdateWithRetry(ctx, id, func(p *models.Payment) error {
		result = p
		if p.Status == target {
			return repositories.ErrNoChange
		}
		if !p.Status.CanTransitionTo(target) {
			return utils.Conflict(fmt.Sprintf("Cannot change payment from %s to %s", p.Status, target), utils.ErrInvalidTransition)
		}
		p.Status = target
		if target == models.PaymentStatusFailed {
			p.FailureReason = utils.Ptr("marked failed by admin")
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, paymentRepoError(err, "Failed to update payment")
	}
	if applied {
		utils.Logger.WithFields(logrus.Fields{"payment_id": id, "admin_id": caller.UserID}).Infof("Payment manually moved to %s", target)
		s.notify(ctx, result)
	}
	resp := dtos.NewPaymentResponse(result)
	return &resp, nil
}

func (s *PaymentService) DeletePayment(ctx context.Context, caller models.Principal, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return utils.Forbidden("Only admins can delete payments")
	}
	if err := s.paymentRepo.Delete(ctx, id); err != nil {
		return paymentRepoError(err, "Failed to delete payment")
	}
	utils.Logger.WithFields(logrus.Fields{"payment_id": id, "admin_id": caller.UserID}).Info("Payment deleted")
	return nil
}

// SweepStalePending polls the processor for payments that have been
// pending longer than StalePendingAfter, in case their webhook was lost.
// Transitions go through the same pending-only path as webhooks.
func (s *PaymentService) SweepStalePending(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	cutoff := s.now().UTC().Add(-constants.StalePendingAfter)
	stale, err := s.paymentRepo.FindPendingCreatedBefore(ctx, cutoff, constants.StalePaymentSweepBatchSize)
	if err != nil {
		return res, fmt.Errorf("listing stale pending payments: %w", err)
	}

	for _, p := range stale {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		session, err := s.gateway.RetrieveSession(ctx, p.CheckoutSessionID)
		if err != nil {
			res.Errors++
			utils.Logger.WithError(err).Warnf("Sweep could not retrieve session %s for payment %s", p.CheckoutSessionID, p.ID)
			continue
		}

		var target models.PaymentStatusType
		var reason string
		switch {
		case session.PaymentStatus == "paid":
			target = models.PaymentStatusSucceeded
		case session.Status == "expired":
			target = models.PaymentStatusFailed
			reason = "checkout session expired"
		default:
			continue
		}

		applied, updated, err := s.transition(ctx, p.ID, target, session.PaymentIntentID, reason)
		if err != nil {
			res.Errors++
			utils.Logger.WithError(err).Errorf("Sweep failed to update payment %s", p.ID)
			continue
		}
		if !applied {
			continue
		}
		if target == models.PaymentStatusSucceeded {
			res.Succeeded++
		} else {
			res.Failed++
		}
		utils.Logger.Infof("Sweep moved payment %s to %s", p.ID, target)
		s.notify(ctx, updated)
	}
	return res, nil
}

func paymentRepoError(err error, msg string) error {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, utils.ErrPaymentNotFound):
		return utils.NotFound("Payment not found", err)
	case errors.Is(err, utils.ErrRowVersionConflict):
		return &utils.AppError{StatusCode: http.StatusConflict, Code: utils.ErrCodeRowVersionConflict, Message: "Payment was modified concurrently", Err: err}
	default:
		return utils.Internal(msg, err)
	}
}
