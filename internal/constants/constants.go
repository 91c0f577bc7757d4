package constants

import "time"

const (
	// Checkout
	CheckoutCurrency           = "usd"
	CheckoutLineItemNameFormat = "Rent for lease %s"
	CheckoutURLFormat          = "https://checkout.stripe.com/pay/%s"
	CheckoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

	CheckoutMetadataLeaseIDKey   = "lease_id"
	CheckoutMetadataTenantIDKey  = "tenant_id"
	CheckoutMetadataPaymentIDKey = "payment_id"

	// Gateway calls
	GatewayCallTimeout     = 10 * time.Second
	GatewayMaxAttempts     = 3
	GatewayInitialBackoff  = 250 * time.Millisecond
	WebhookHandlingTimeout = 15 * time.Second

	// Stale pending sweep
	StalePaymentSweepCronSpec   = "*/15 * * * *"
	StalePaymentSweepJobTimeout = 5 * time.Minute
	StalePendingAfter           = 1 * time.Hour
	StalePaymentSweepBatchSize  = 100

	// Notifications
	EmailSubjectPaymentSucceeded = "Your rent payment was received"
	EmailSubjectPaymentFailed    = "Your rent payment did not go through"
	NotificationTimeout          = 10 * time.Second
)
