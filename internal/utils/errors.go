package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain-level errors the repositories and services return. Controllers
// never see these directly; services wrap them into an AppError.
var (
	ErrTenantNotFound      = errors.New("tenant_not_found")
	ErrLeaseNotFound       = errors.New("lease_not_found")
	ErrUnitNotFound        = errors.New("unit_not_found")
	ErrNoAvailableUnit     = errors.New("no_available_unit")
	ErrUnitOccupied        = errors.New("unit_occupied")
	ErrActiveLeaseExists   = errors.New("active_lease_exists")
	ErrPaymentNotFound     = errors.New("payment_not_found")
	ErrDuplicateCheckoutID = errors.New("duplicate_checkout_session")
	ErrInvalidSignature    = errors.New("invalid_webhook_signature")
	ErrInvalidTransition   = errors.New("invalid_status_transition")

	ErrRowVersionConflict     = errors.New("row_version_conflict")
	ErrExternalServiceFailure = errors.New("external_service_failure")
	ErrNoRowsUpdated          = errors.New("no_rows_updated")
)

// AppError carries the HTTP status and public code a service failure
// should be reported with.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NotFound(msg string, err error) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Code: ErrCodeNotFound, Message: msg, Err: err}
}

func Unauthenticated(msg string, err error) *AppError {
	return &AppError{StatusCode: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: msg, Err: err}
}

func Forbidden(msg string) *AppError {
	return &AppError{StatusCode: http.StatusForbidden, Code: ErrCodeForbidden, Message: msg}
}

func Conflict(msg string, err error) *AppError {
	return &AppError{StatusCode: http.StatusConflict, Code: ErrCodeConflict, Message: msg, Err: err}
}

func Validation(format string, args ...any) *AppError {
	msg := fmt.Sprintf(format, args...)
	return &AppError{StatusCode: http.StatusBadRequest, Code: ErrCodeValidation, Message: msg}
}

// GatewayFailure reports a payment processor problem. The processor's
// own message is surfaced so callers can tell it apart from bad input.
func GatewayFailure(err error) *AppError {
	return &AppError{
		StatusCode: http.StatusBadGateway,
		Code:       ErrCodeExternalServiceFailure,
		Message:    "Payment processor error: " + err.Error(),
		Err:        fmt.Errorf("%w: %v", ErrExternalServiceFailure, err),
	}
}

func Internal(msg string, err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Code: ErrCodeInternal, Message: msg, Err: err}
}

// HandleAppError writes err using its AppError status, or a generic 500.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
		return
	}
	RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
}
