package edgo

import (
	"errors"
	"fmt"
)

// Error kinds carried by ClientError. They drive retry classification:
// a kind is either always retryable, never retryable, or (for Status)
// retryable depending on the status code.
const (
	ErrorKindValidation = "Validation"
	ErrorKindNetwork    = "Network"
	ErrorKindTimeout    = "Timeout"
	ErrorKindRateLimit  = "RateLimit"
	ErrorKindNotFound   = "NotFound"
	ErrorKindStatus     = "Status"
	ErrorKindDecode     = "Decode"
)

// ErrNotFound is the sentinel for typed absence: a 404 response, or a ticker
// missing from the lookup dataset. Matchable with errors.Is.
var ErrNotFound = errors.New("edgo: not found")

// ClientError is the error type returned by all client operations.
type ClientError struct {
	Kind       string
	Message    string
	StatusCode int
	URL        string
	Cause      error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.URL)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches either another ClientError of the same kind or the ErrNotFound
// sentinel for NotFound errors.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == ErrNotFound {
		return e.Kind == ErrorKindNotFound
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Kind == targetErr.Kind
	}
	return false
}

// IsRetryable reports whether an error represents a transient failure that
// may succeed on retry. Network errors, timeouts, 429 responses and 5xx
// responses are retryable. Validation errors, 404s, other 4xx responses and
// decode failures are not: the first never reached the network and the rest
// will not improve by asking again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Kind {
		case ErrorKindNetwork, ErrorKindTimeout, ErrorKindRateLimit:
			return true
		case ErrorKindStatus:
			return clientErr.StatusCode >= 500
		default:
			return false
		}
	}

	return false
}

// IsNotFound reports whether err is a typed absence (404 or unknown ticker).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func validationError(message string, cause error) *ClientError {
	return &ClientError{Kind: ErrorKindValidation, Message: message, Cause: cause}
}

func decodeError(message string, cause error) *ClientError {
	return &ClientError{Kind: ErrorKindDecode, Message: message, Cause: cause}
}
