// Package apierr defines the closed set of error kinds surfaced by the
// content pipeline and maps them to HTTP statuses and remediation hints.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for dispatch. The set is closed; callers switch
// on Kind rather than inspecting messages or fields.
type Kind string

const (
	KindConfig       Kind = "config"
	KindSchema       Kind = "schema_validation"
	KindRateLimit    Kind = "rate_limited"
	KindTransient    Kind = "transient"
	KindEntitlement  Kind = "entitlement"
	KindDataMissing  Kind = "data_missing"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Classified is implemented by every error type that carries a Kind.
type Classified interface {
	error
	Kind() Kind
	Remediation() string
}

// KindOf returns the kind of the first classified error in err's chain.
// Context expiry is reported as transient; anything else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var c Classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindInternal
}

// RemediationOf returns the operator-facing hint for err, if any.
func RemediationOf(err error) string {
	var c Classified
	if errors.As(err, &c) {
		return c.Remediation()
	}
	return ""
}

// HTTPStatus maps a kind to the status code returned by the HTTP surface.
func HTTPStatus(k Kind) int {
	switch k {
	case KindEntitlement:
		return http.StatusPaymentRequired
	case KindDataMissing, KindConflict:
		return http.StatusConflict
	case KindSchema:
		return http.StatusBadGateway
	case KindRateLimit, KindTransient, KindConfig:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a generic classified error for the non-pipeline kinds.
type Error struct {
	K    Kind
	Hint string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.K)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error       { return e.Err }
func (e *Error) Kind() Kind          { return e.K }
func (e *Error) Remediation() string { return e.Hint }

// New wraps err with kind k.
func New(k Kind, hint string, err error) *Error {
	return &Error{K: k, Hint: hint, Err: err}
}

func NotFound(what string, id any) *Error {
	return &Error{K: KindNotFound, Err: fmt.Errorf("%s %v not found", what, id)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{K: KindForbidden, Err: fmt.Errorf(format, args...)}
}

func Invalid(format string, args ...any) *Error {
	return &Error{K: KindInvalidInput, Err: fmt.Errorf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{K: KindConflict, Err: fmt.Errorf(format, args...)}
}
