package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in the code field of error bodies
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTransientFailure   = "TRANSIENT_FAILURE"
	CodeTimeout            = "TIMEOUT"

	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"

	CodeIdempotencyKeyRequired = "IDEMPOTENCY_KEY_REQUIRED"
	CodeIdempotencyKeyInvalid  = "IDEMPOTENCY_KEY_INVALID"
	CodeIdempotencyMismatch    = "IDEMPOTENCY_PARAMETER_MISMATCH"
	CodeIdempotencyInFlight    = "IDEMPOTENCY_CONCURRENT_REQUEST"
)

// AppError is an error with a stable code and the HTTP status it is served with
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails replaces the details map
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap records the underlying cause. It is logged, never serialized.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// IsClientError reports a 4xx: the request was rejected, the service is healthy
func (e *AppError) IsClientError() bool {
	return e.HTTPStatus >= http.StatusBadRequest && e.HTTPStatus < http.StatusInternalServerError
}

// Retryable reports whether the caller may resend the same request unchanged
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeTransientFailure, CodeTimeout, CodeServiceUnavailable, CodeIdempotencyInFlight:
		return true
	}
	return false
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error keyed by field
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrUnauthorized creates an unauthorized error
func ErrUnauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(CodeUnauthorized, message, http.StatusUnauthorized)
}

// ErrNotFoundWithID creates a not found error for one resource
func ErrNotFoundWithID(resource, id string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetail("id", id)
}

// ErrInsufficientStock names the product line that could not be fulfilled
func ErrInsufficientStock(productID, studioID string) *AppError {
	return NewAppError(CodeInsufficientStock, fmt.Sprintf("insufficient stock for product %s", productID), http.StatusConflict).
		WithDetails(map[string]string{"productId": productID, "studioId": studioID})
}

// ErrInternal creates an internal error. The cause stays in Err.
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrServiceUnavailable reports a dependency that is down
func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

// ErrTransient signals a failure the caller may retry as a whole
func ErrTransient(operation string) *AppError {
	return NewAppError(CodeTransientFailure, fmt.Sprintf("%s could not be completed due to concurrent updates, retry the request", operation), http.StatusServiceUnavailable)
}

// ErrTimeout reports an operation that ran out of time and was rolled back
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// ErrRouteNotFound is served for unknown paths
func ErrRouteNotFound() *AppError {
	return NewAppError(CodeRouteNotFound, "The requested resource was not found", http.StatusNotFound)
}

// ErrMethodNotAllowed is served for a known path with the wrong method
func ErrMethodNotAllowed() *AppError {
	return NewAppError(CodeMethodNotAllowed, "The request method is not supported for this resource", http.StatusMethodNotAllowed)
}

// ErrIdempotencyKeyRequired is served when a mutating request arrives without a key
func ErrIdempotencyKeyRequired() *AppError {
	return NewAppError(CodeIdempotencyKeyRequired, "Idempotency-Key header is required for this operation", http.StatusBadRequest)
}

// ErrIdempotencyKeyInvalid wraps a key format failure
func ErrIdempotencyKeyInvalid(err error) *AppError {
	return NewAppError(CodeIdempotencyKeyInvalid, err.Error(), http.StatusBadRequest).Wrap(err)
}

// ErrIdempotencyMismatch is served when a key is reused with a different body
func ErrIdempotencyMismatch() *AppError {
	return NewAppError(CodeIdempotencyMismatch, "Request parameters differ from the original request with this idempotency key", http.StatusUnprocessableEntity)
}

// ErrIdempotencyInFlight is served while the first request with a key is still running
func ErrIdempotencyInFlight() *AppError {
	return NewAppError(CodeIdempotencyInFlight, "A request with this idempotency key is currently being processed", http.StatusConflict)
}

// AsAppError finds an AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError returns the AppError in err's chain, or an internal error wrapping err.
// Callers map their domain errors first; anything unmapped is a 500.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
