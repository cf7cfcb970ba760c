// Package apierror provides standardized error response structures for the API
// and the error kinds raised by the inventory core.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so the HTTP layer can pick a status code.
type Kind string

const (
	KindValidation          Kind = "ValidationError"
	KindNotFound            Kind = "NotFound"
	KindInactiveProduct     Kind = "InactiveProduct"
	KindDeletedProduct      Kind = "DeletedProduct"
	KindInvalidQuantity     Kind = "InvalidQuantity"
	KindInvalidOperation    Kind = "InvalidOperation"
	KindMissingPricing      Kind = "MissingPricingConfiguration"
	KindDiscountExceedsLine Kind = "DiscountExceedsAmount"
	KindDiscountExceedsSum  Kind = "DiscountExceedsTotal"
	KindInsufficientStock   Kind = "InsufficientStock"
	KindInvalidExpiration   Kind = "InvalidExpiration"
	KindExceedsReturnable   Kind = "ExceedsReturnableQuantity"
	KindPaymentExceeds      Kind = "PaymentExceedsBalance"
	KindConflict            Kind = "Conflict"
	KindInternal            Kind = "Internal"

	// HTTP-layer kinds, never raised by services.
	KindUnauthorized Kind = "Unauthorized"
	KindForbidden    Kind = "Forbidden"
	KindRateLimited  Kind = "TooManyRequests"
)

// Error is a classified business or storage failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error with a formatted message.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it in the chain.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind onto the response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInsufficientStock:
		return http.StatusConflict
	case KindInternal:
		return http.StatusInternalServerError
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func New(kind Kind, msg string) *APIError {
	return &APIError{Error: string(kind), Message: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Error: string(KindValidation), Message: "validation failed", Fields: fields}
}
