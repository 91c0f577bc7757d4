package main

import (
	"crypto/rsa"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/poofware/rental-service/internal/controllers"
	"github.com/poofware/rental-service/internal/middleware"
	"github.com/poofware/rental-service/internal/routes"
)

// corsAllowedMethods covers every method registered in newRouter.
var corsAllowedMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

type routeHandlers struct {
	health  *controllers.HealthController
	lease   *controllers.LeaseController
	payment *controllers.PaymentController
	webhook *controllers.StripeWebhookController
}

func newRouter(publicKey *rsa.PublicKey, issuer string, h routeHandlers) *mux.Router {
	router := mux.NewRouter()

	// Public routes
	router.HandleFunc(routes.Health, h.health.HealthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.PaymentsWebhook, h.webhook.WebhookHandler).Methods(http.MethodPost)

	// Any authenticated caller; ownership is checked in the services.
	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(publicKey, issuer))
	secured.HandleFunc(routes.Leases, h.lease.CreateLeaseHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.Leases, h.lease.ListLeasesHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.Lease, h.lease.GetLeaseHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.PaymentsPay, h.payment.RequestPaymentHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.PaymentsVerify, h.payment.VerifyPaymentHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.Payment, h.payment.GetPaymentHandler).Methods(http.MethodGet)

	// Updates are partial; PATCH is accepted as an alias of PUT.
	admin := router.NewRoute().Subrouter()
	admin.Use(middleware.AuthMiddleware(publicKey, issuer), middleware.AdminOnly)
	admin.HandleFunc(routes.Lease, h.lease.UpdateLeaseHandler).Methods(http.MethodPut, http.MethodPatch)
	admin.HandleFunc(routes.Lease, h.lease.DeleteLeaseHandler).Methods(http.MethodDelete)
	admin.HandleFunc(routes.Payments, h.payment.ListPaymentsHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.Payment, h.payment.UpdatePaymentHandler).Methods(http.MethodPut, http.MethodPatch)
	admin.HandleFunc(routes.Payment, h.payment.DeletePaymentHandler).Methods(http.MethodDelete)

	return router
}
