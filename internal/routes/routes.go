package routes

const (
	Health = "/health"

	Leases = "/api/v1/rentals/leases"
	Lease  = "/api/v1/rentals/leases/{id}"

	PaymentsPay     = "/api/v1/rentals/payments/pay"
	PaymentsWebhook = "/api/v1/rentals/payments/webhook"
	PaymentsVerify  = "/api/v1/rentals/payments/verify"
	Payments        = "/api/v1/rentals/payments"
	Payment         = "/api/v1/rentals/payments/{id}"
)
