// Package apperrors provides the unified error taxonomy used across the
// reservation, agent-commerce, and library-loan components (spec.md §6.1,
// §7). Handlers map a *ServiceError to the transport envelope; domain
// functions construct one of these via the helpers below rather than
// returning ad-hoc errors.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is one of the taxonomy's machine-readable identifiers.
type Code string

const (
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeMethodNotAllowed   Code = "METHOD_NOT_ALLOWED"
	CodeConflict           Code = "CONFLICT"
	CodeGone               Code = "GONE"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL"
	CodeUnavailable        Code = "UNAVAILABLE"

	// Domain-specific _SNAKE_CASE identifiers (spec.md §7), carried in
	// Details["reasonCode"] alongside one of the taxonomy codes above.
	ReasonStationCapacityExceeded = "STATION_CAPACITY_EXCEEDED"
	ReasonInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ReasonPickupWindowExpired     = "PICKUP_WINDOW_EXPIRED"
	ReasonIdempotencyKeyConflict  = "IDEMPOTENCY_KEY_CONFLICT"
	ReasonRescheduleLimitReached  = "RESCHEDULE_LIMIT_REACHED"
	ReasonTermsNotAccepted        = "TERMS_NOT_ACCEPTED"
	ReasonQuoteExpired            = "QUOTE_EXPIRED"
	ReasonX1CProhibitedUse        = "x1c_prohibited_use"
)

// ServiceError is a structured error carrying the taxonomy code, the HTTP
// status it maps to, a human-readable message, and recovery-relevant
// details (spec.md §7: "conflict responses carry enough context for the
// client to recover").
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a recovery-relevant detail and returns the receiver
// for chaining.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithReason stamps a domain-specific reason code into Details.
func (e *ServiceError) WithReason(reason string) *ServiceError {
	return e.WithDetails("reasonCode", reason)
}

// New creates a ServiceError.
func New(code Code, message string, httpStatus int) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap wraps an existing error with a ServiceError.
func Wrap(code Code, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// --- Constructors, one per taxonomy bucket ---

func InvalidArgument(message string) *ServiceError {
	return New(CodeInvalidArgument, message, http.StatusBadRequest)
}

func Unauthenticated(message string) *ServiceError {
	return New(CodeUnauthenticated, message, http.StatusUnauthorized)
}

func Forbidden(message string) *ServiceError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func NotFound(resource, id string) *ServiceError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetails("resource", resource).WithDetails("id", id)
}

func MethodNotAllowed(allowed ...string) *ServiceError {
	e := New(CodeMethodNotAllowed, "method not allowed", http.StatusMethodNotAllowed)
	if len(allowed) > 0 {
		e.WithDetails("allowed", allowed)
	}
	return e
}

func Conflict(message, reason string) *ServiceError {
	return New(CodeConflict, message, http.StatusConflict).WithReason(reason)
}

func Gone(message string) *ServiceError {
	return New(CodeGone, message, http.StatusGone)
}

// FailedPrecondition defaults to HTTP 412; the terms-acceptance gate uses
// 428 explicitly (spec.md §6.1: "FAILED_PRECONDITION 412 or 428 (terms)").
func FailedPrecondition(message, reason string) *ServiceError {
	return New(CodeFailedPrecondition, message, http.StatusPreconditionFailed).WithReason(reason)
}

func TermsNotAccepted(requiredPhase string) *ServiceError {
	return New(CodeFailedPrecondition, "terms of service not accepted", http.StatusPreconditionRequired).
		WithReason(ReasonTermsNotAccepted).WithDetails("requiredPhase", requiredPhase)
}

func RateLimited(retryAfterMs int64) *ServiceError {
	return New(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests).
		WithDetails("retryAfterMs", retryAfterMs)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(CodeInternal, message, http.StatusInternalServerError, err)
}

func Unavailable(message string, err error) *ServiceError {
	return Wrap(CodeUnavailable, message, http.StatusServiceUnavailable, err)
}

// StationCapacityExceeded is the canonical CONFLICT for spec.md P-QUEUE-CAP.
func StationCapacityExceeded(stationID string) *ServiceError {
	return Conflict("station is at capacity", ReasonStationCapacityExceeded).
		WithDetails("stationId", stationID)
}

// InvalidStatusTransition is the canonical CONFLICT for spec.md P-STATUS-MATRIX.
func InvalidStatusTransition(from, to string) *ServiceError {
	return Conflict(fmt.Sprintf("invalid status transition: %s->%s", from, to), ReasonInvalidStatusTransition).
		WithDetails("from", from).WithDetails("to", to)
}

// IdempotencyKeyConflict is the canonical CONFLICT for spec.md P-IDEMPOTENT.
func IdempotencyKeyConflict(key string) *ServiceError {
	return Conflict("idempotency key reused with a different payload", ReasonIdempotencyKeyConflict).
		WithDetails("duplicateItemId", key)
}

// RescheduleLimitReached is the canonical CONFLICT for spec.md P-PICKUP.
func RescheduleLimitReached() *ServiceError {
	return Conflict("pickup window reschedule limit reached", ReasonRescheduleLimitReached)
}

// --- Helpers ---

// IsServiceError reports whether err is, or wraps, a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// AsServiceError extracts a *ServiceError from an error chain.
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus returns the mapped HTTP status for any error, defaulting to 500.
func HTTPStatus(err error) int {
	if se := AsServiceError(err); se != nil {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
