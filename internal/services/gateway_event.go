package services

import (
	"encoding/json"
	"fmt"

	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/models"
	"github.com/stripe/stripe-go/v82"
)

// GatewayEventKind is the closed set of processor events that can move a
// payment. Everything else decodes to EventUnhandled.
type GatewayEventKind int

const (
	EventUnhandled GatewayEventKind = iota
	EventCheckoutCompleted
	EventCheckoutAsyncSucceeded
	EventCheckoutAsyncFailed
	EventCheckoutExpired
	EventPaymentFailed
)

func (k GatewayEventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return "checkout_completed"
	case EventCheckoutAsyncSucceeded:
		return "checkout_async_succeeded"
	case EventCheckoutAsyncFailed:
		return "checkout_async_failed"
	case EventCheckoutExpired:
		return "checkout_expired"
	case EventPaymentFailed:
		return "payment_failed"
	default:
		return "unhandled"
	}
}

// TargetStatus is the payment state the event drives a pending payment to.
func (k GatewayEventKind) TargetStatus() (models.PaymentStatusType, bool) {
	switch k {
	case EventCheckoutCompleted, EventCheckoutAsyncSucceeded:
		return models.PaymentStatusSucceeded, true
	case EventCheckoutAsyncFailed, EventCheckoutExpired, EventPaymentFailed:
		return models.PaymentStatusFailed, true
	default:
		return "", false
	}
}

// GatewayEvent is a verified processor event reduced to what
// reconciliation needs.
type GatewayEvent struct {
	ID              string
	Type            string
	Kind            GatewayEventKind
	SessionID       string
	PaymentIntentID string
	// PaymentID comes from object metadata when the event is not a
	// checkout session event.
	PaymentID     string
	FailureReason string
}

// decodeGatewayEvent maps a verified stripe.Event onto a GatewayEvent.
func decodeGatewayEvent(event stripe.Event) (GatewayEvent, error) {
	out := GatewayEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return out, fmt.Errorf("decoding checkout session for %s: %w", event.Type, err)
		}
		out.SessionID = sess.ID
		if sess.PaymentIntent != nil {
			out.PaymentIntentID = sess.PaymentIntent.ID
		}
		switch event.Type {
		case stripe.EventTypeCheckoutSessionCompleted:
			// Delayed payment methods complete the session before the
			// money moves; their outcome arrives as an async_payment event.
			if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
				return out, nil
			}
			out.Kind = EventCheckoutCompleted
		case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
			out.Kind = EventCheckoutAsyncSucceeded
		case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
			out.Kind = EventCheckoutAsyncFailed
			out.FailureReason = "async payment failed"
		case stripe.EventTypeCheckoutSessionExpired:
			out.Kind = EventCheckoutExpired
			out.FailureReason = "checkout session expired"
		}

	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("decoding payment intent for %s: %w", event.Type, err)
		}
		out.Kind = EventPaymentFailed
		out.PaymentIntentID = pi.ID
		out.PaymentID = pi.Metadata[constants.CheckoutMetadataPaymentIDKey]
		out.FailureReason = "payment failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			out.FailureReason = pi.LastPaymentError.Msg
		}
	}
	return out, nil
}
