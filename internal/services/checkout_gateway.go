package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/utils"
	"github.com/stripe/stripe-go/v82"
)

// CheckoutSessionRequest describes one hosted-checkout charge.
type CheckoutSessionRequest struct {
	PaymentID    uuid.UUID
	LeaseID      uuid.UUID
	TenantID     uuid.UUID
	AmountCents  int64
	Currency     string
	LineItemName string
	SuccessURL   string
	CancelURL    string
}

// CheckoutSession is the gateway's view of a session.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentStatus   string
	Status          string
	PaymentIntentID string
}

// CheckoutGateway is the payment processor as seen by the payment
// coordinator.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, id string) (*CheckoutSession, error)
}

// checkoutSessionAPI matches the checkout session service on stripe.Client.
type checkoutSessionAPI interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	Retrieve(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error)
}

type StripeCheckoutGateway struct {
	sessions       checkoutSessionAPI
	maxAttempts    int
	initialBackoff time.Duration
	callTimeout    time.Duration
}

// NewStripeCheckoutGateway builds a gateway around its own stripe.Client
// so no package-level API key is involved.
func NewStripeCheckoutGateway(secretKey string) *StripeCheckoutGateway {
	sc := stripe.NewClient(secretKey, stripe.WithBackends(stripe.NewBackendsWithConfig(stripeBackendConfig())))
	return newStripeCheckoutGateway(sc.V1CheckoutSessions)
}

// stripeBackendConfig turns off the library's own network retries;
// withRetry is the only retry layer, bounded by GatewayMaxAttempts.
func stripeBackendConfig() *stripe.BackendConfig {
	return &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(0)}
}

func newStripeCheckoutGateway(api checkoutSessionAPI) *StripeCheckoutGateway {
	return &StripeCheckoutGateway{
		sessions:       api,
		maxAttempts:    constants.GatewayMaxAttempts,
		initialBackoff: constants.GatewayInitialBackoff,
		callTimeout:    constants.GatewayCallTimeout,
	}
}

func (g *StripeCheckoutGateway) CreateSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	metadata := map[string]string{
		constants.CheckoutMetadataLeaseIDKey:   req.LeaseID.String(),
		constants.CheckoutMetadataTenantIDKey:  req.TenantID.String(),
		constants.CheckoutMetadataPaymentIDKey: req.PaymentID.String(),
	}
	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(req.LineItemName),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.PaymentID.String()),
		Metadata:          metadata,
		// Copied onto the payment intent so payment_intent.* events can be
		// correlated without the session.
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	// Same key on every attempt: a retried create returns the first session.
	params.SetIdempotencyKey("checkout-" + req.PaymentID.String())

	var sess *stripe.CheckoutSession
	err := g.withRetry(ctx, "create checkout session", func(callCtx context.Context) error {
		var err error
		sess, err = g.sessions.Create(callCtx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCheckoutSession(sess), nil
}

func (g *StripeCheckoutGateway) RetrieveSession(ctx context.Context, id string) (*CheckoutSession, error) {
	var sess *stripe.CheckoutSession
	err := g.withRetry(ctx, "retrieve checkout session", func(callCtx context.Context) error {
		var err error
		sess, err = g.sessions.Retrieve(callCtx, id, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCheckoutSession(sess), nil
}

// withRetry runs fn with a per-call timeout, retrying transient failures
// with exponential backoff.
func (g *StripeCheckoutGateway) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := g.initialBackoff
	var err error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !isTransientGatewayError(err) || attempt == g.maxAttempts {
			break
		}

		utils.Logger.WithError(err).Warnf("Stripe %s failed on attempt %d/%d; retrying in %v", op, attempt, g.maxAttempts, backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isTransientGatewayError is true for rate limiting, processor-side 5xx
// and transport failures. Card and request errors are final.
func isTransientGatewayError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return true
}

// GatewayMessage extracts the processor's human-readable message.
func GatewayMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Status:        string(s.Status),
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
