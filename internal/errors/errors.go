package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the PostPilot client
var (
	// Session errors
	ErrNoSession          = errors.New("no session")
	ErrNoRefreshToken     = errors.New("no refresh token")
	ErrSessionExpired     = errors.New("session expired")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrLoginFailed        = errors.New("login failed")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidAccountType = errors.New("invalid account type")

	// Request errors
	ErrForbidden        = errors.New("forbidden")
	ErrCSRFUnavailable  = errors.New("csrf token unavailable")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrTransport        = errors.New("transport failure")

	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// Storage errors
	ErrNotFound      = errors.New("not found")
	ErrLockTimeout   = errors.New("lock timeout")
	ErrUnsupported   = errors.New("unsupported operation")
	ErrConfigMissing = errors.New("configuration missing")
)

// Kind classifies an error into the categories the UI layer reacts to.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindUnauthenticated
	KindForbidden
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// HTTPError is returned for any non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Unwrap lets errors.Is match the sentinel for the status class.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	default:
		return nil
	}
}

// Classify maps err onto the client error taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	// rejected credentials are a validation problem, not an expired session
	if errors.Is(err, ErrLoginFailed) {
		return KindValidation
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusUnauthorized:
			return KindUnauthenticated
		case httpErr.StatusCode == http.StatusForbidden:
			return KindForbidden
		case httpErr.StatusCode >= 500:
			return KindTransport
		case httpErr.StatusCode >= 400:
			return KindValidation
		}
	}
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrNoSession), errors.Is(err, ErrRefreshFailed):
		return KindUnauthenticated
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrCSRFUnavailable):
		return KindForbidden
	case errors.Is(err, ErrMalformedPayload), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidAccountType):
		return KindValidation
	case errors.Is(err, ErrTransport):
		return KindTransport
	}
	return KindUnknown
}

// UserMessage returns the toast text shown for err.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindTransport:
		return "Network error, please try again."
	case KindUnauthenticated:
		return "Your session has expired, please log in again."
	case KindForbidden:
		return "The request was rejected, please refresh the page and try again."
	case KindValidation:
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Message != "" {
			return httpErr.Message
		}
		return "Some of the information provided is invalid."
	default:
		return "Something went wrong, please try again."
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
