package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/rental-service/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

// scriptedSessions returns errs in order, then succeeds.
type scriptedSessions struct {
	errs       []error
	calls      int
	lastParams *stripe.CheckoutSessionCreateParams
	keys       []string
}

func (s *scriptedSessions) next() error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedSessions) Create(_ context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	s.lastParams = params
	if params.IdempotencyKey != nil {
		s.keys = append(s.keys, *params.IdempotencyKey)
	}
	if err := s.next(); err != nil {
		return nil, err
	}
	return &stripe.CheckoutSession{
		ID:            "cs_test_gw",
		URL:           "https://checkout.stripe.com/c/pay/cs_test_gw",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
		Status:        stripe.CheckoutSessionStatusOpen,
	}, nil
}

func (s *scriptedSessions) Retrieve(_ context.Context, id string, _ *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return &stripe.CheckoutSession{
		ID:            id,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Status:        stripe.CheckoutSessionStatusComplete,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_123"},
	}, nil
}

func testGateway(api checkoutSessionAPI) *StripeCheckoutGateway {
	g := newStripeCheckoutGateway(api)
	g.initialBackoff = time.Millisecond
	return g
}

func TestCreateSessionBuildsParams(t *testing.T) {
	api := &scriptedSessions{}
	g := testGateway(api)
	paymentID := uuid.New()

	sess, err := g.CreateSession(context.Background(), CheckoutSessionRequest{
		PaymentID:    paymentID,
		LeaseID:      uuid.New(),
		TenantID:     uuid.New(),
		AmountCents:  98765,
		Currency:     "usd",
		LineItemName: "Rent",
		SuccessURL:   "https://app.example.com/success",
		CancelURL:    "https://app.example.com/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_gw", sess.ID)
	assert.Equal(t, "open", sess.Status)

	p := api.lastParams
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, int64(98765), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "payment", *p.Mode)
	assert.Equal(t, paymentID.String(), p.Metadata[constants.CheckoutMetadataPaymentIDKey])
	assert.Equal(t, paymentID.String(), p.PaymentIntentData.Metadata[constants.CheckoutMetadataPaymentIDKey])
	assert.Equal(t, []string{"checkout-" + paymentID.String()}, api.keys)
}

func TestCreateSessionRetriesTransientErrorsWithSameKey(t *testing.T) {
	api := &scriptedSessions{errs: []error{
		&stripe.Error{HTTPStatusCode: http.StatusTooManyRequests},
		&stripe.Error{HTTPStatusCode: http.StatusServiceUnavailable},
	}}
	g := testGateway(api)

	_, err := g.CreateSession(context.Background(), CheckoutSessionRequest{PaymentID: uuid.New(), AmountCents: 100})
	require.NoError(t, err)
	assert.Equal(t, 3, api.calls)
	require.Len(t, api.keys, 3)
	assert.Equal(t, api.keys[0], api.keys[2])
}

func TestCreateSessionDoesNotRetryCardErrors(t *testing.T) {
	api := &scriptedSessions{errs: []error{
		&stripe.Error{HTTPStatusCode: http.StatusPaymentRequired, Msg: "Your card was declined."},
	}}
	g := testGateway(api)

	_, err := g.CreateSession(context.Background(), CheckoutSessionRequest{PaymentID: uuid.New(), AmountCents: 100})
	require.Error(t, err)
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, "Your card was declined.", GatewayMessage(err))
}

func TestRetrieveSessionGivesUpAfterMaxAttempts(t *testing.T) {
	transport := errors.New("connection reset by peer")
	api := &scriptedSessions{errs: []error{transport, transport, transport, transport}}
	g := testGateway(api)

	_, err := g.RetrieveSession(context.Background(), "cs_x")
	require.ErrorIs(t, err, transport)
	assert.Equal(t, constants.GatewayMaxAttempts, api.calls)
}

func TestRetrieveSessionMapsPaymentIntent(t *testing.T) {
	g := testGateway(&scriptedSessions{})

	sess, err := g.RetrieveSession(context.Background(), "cs_done")
	require.NoError(t, err)
	assert.Equal(t, "paid", sess.PaymentStatus)
	assert.Equal(t, "complete", sess.Status)
	assert.Equal(t, "pi_123", sess.PaymentIntentID)
}

func TestStripeBackendHasNoBuiltInRetries(t *testing.T) {
	cfg := stripeBackendConfig()
	require.NotNil(t, cfg.MaxNetworkRetries)
	assert.Equal(t, int64(0), *cfg.MaxNetworkRetries)
	assert.NotNil(t, NewStripeCheckoutGateway("sk_test_123").sessions)
}

func TestIsTransientGatewayError(t *testing.T) {
	assert.False(t, isTransientGatewayError(context.Canceled))
	assert.False(t, isTransientGatewayError(&stripe.Error{HTTPStatusCode: http.StatusBadRequest}))
	assert.True(t, isTransientGatewayError(&stripe.Error{HTTPStatusCode: http.StatusBadGateway}))
	assert.True(t, isTransientGatewayError(context.DeadlineExceeded))
}
