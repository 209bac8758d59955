package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Sentinel error kinds for provider faults.
var (
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrThrottled          = errors.New("request throttled")
	ErrUnavailable        = errors.New("provider unavailable")
)

// APIError wraps a failed SDK call with the operation and resource it targeted.
type APIError struct {
	Service  string
	Op       string
	Resource string
	// Code is the provider error code, empty when the fault was not an API error.
	Code string
	// Kind is one of the sentinel errors above, nil when unclassified.
	Kind error
	Err  error
}

func (e *APIError) Error() string {
	target := e.Service + " " + e.Op
	if e.Resource != "" {
		target += " " + e.Resource
	}
	if e.Kind != nil {
		return fmt.Sprintf("%s: %v: %v", target, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", target, e.Err)
}

// Unwrap exposes both the kind and the underlying SDK error to errors.Is/As.
func (e *APIError) Unwrap() []error {
	if e.Kind != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Err}
}

func wrapError(service, op, resource string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := &APIError{Service: service, Op: op, Resource: resource, Err: err}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return wrapped
	}
	wrapped.Code = apiErr.ErrorCode()

	switch wrapped.Code {
	case "AccessDenied", "Forbidden", "UnauthorizedOperation":
		wrapped.Kind = ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AuthFailure", "ExpiredToken":
		wrapped.Kind = ErrInvalidCredentials
	case "NoSuchBucket", "NotFound", "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed":
		wrapped.Kind = ErrNotFound
	case "IncorrectInstanceState", "IncorrectState", "UnsupportedOperation":
		wrapped.Kind = ErrInvalidState
	case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded":
		wrapped.Kind = ErrThrottled
	case "ServiceUnavailable", "InternalError", "Unavailable":
		wrapped.Kind = ErrUnavailable
	}
	return wrapped
}

// KindOf names the fault kind of err for logs and metrics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return "api_error"
	}
	return "internal"
}
