package synology

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind is the closed set of failure categories the client can report.
// Unknown server error codes always collapse into KindServerError so new
// firmware never produces an unhandled category.
type ErrorKind int

const (
	// KindTransport indicates a network-level error (connection refused, timeout, DNS)
	KindTransport ErrorKind = iota
	// KindInvalidCredentials indicates the server rejected the account or password
	KindInvalidCredentials
	// KindUnavailable indicates the server is unreachable or in maintenance
	KindUnavailable
	// KindAuthExpired indicates the session token is no longer valid
	KindAuthExpired
	// KindNotFound indicates the referenced task does not exist on the server
	KindNotFound
	// KindRateLimited indicates the server is throttling requests
	KindRateLimited
	// KindServerError indicates a server-side failure or an unknown error code
	KindServerError
	// KindMalformed indicates a response that could not be decoded
	KindMalformed
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "Transport Error"
	case KindInvalidCredentials:
		return "Invalid Credentials"
	case KindUnavailable:
		return "Server Unavailable"
	case KindAuthExpired:
		return "Session Expired"
	case KindNotFound:
		return "Not Found"
	case KindRateLimited:
		return "Rate Limited"
	case KindServerError:
		return "Server Error"
	case KindMalformed:
		return "Malformed Response"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error represents a failure while talking to the Download Station API
type Error struct {
	Kind      ErrorKind // Category of error
	Message   string    // Human-readable error message
	Code      int       // API envelope error code (0 if not applicable)
	Err       error     // Underlying error (if any)
	Retryable bool      // Whether a later retry may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Code != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s (code %d, caused by: %v)", e.Kind, e.Message, e.Code, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("%s: %s (code %d)", e.Kind, e.Message, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransportError creates a network-level error with automatic classification
func NewTransportError(message string, err error) *Error {
	kindMsg, retryable := classifyNetworkError(err)
	if kindMsg != "" {
		message = fmt.Sprintf("%s: %s", message, kindMsg)
	}
	return &Error{
		Kind:      KindTransport,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}

// classifyNetworkError inspects the error chain for well-known network
// failure modes. Returns a short description and whether retrying makes sense.
func classifyNetworkError(err error) (string, bool) {
	if err == nil {
		return "", true
	}

	if os.IsTimeout(err) {
		return "request timed out", true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return "server refused connection", true
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return "host unreachable", true
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return "network unreachable", true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return classifyNetworkError(urlErr.Err)
	}

	return "", true
}

// NewAuthError creates an authentication error from a login envelope code.
// The code table comes from the SYNO.API.Auth documentation; anything not
// listed is treated as invalid credentials since the server refused the login.
func NewAuthError(code int) *Error {
	var msg string
	switch code {
	case 400:
		msg = "no such account or incorrect password"
	case 401:
		msg = "account disabled"
	case 402:
		msg = "permission denied"
	case 403:
		msg = "2-step verification code required"
	case 404:
		msg = "failed to authenticate 2-step verification code"
	default:
		msg = "authentication rejected"
	}
	return &Error{
		Kind:      KindInvalidCredentials,
		Message:   msg,
		Code:      code,
		Retryable: false,
	}
}

// NewUnavailableError creates an error for a server that answered but
// cannot currently serve requests (maintenance, 5xx).
func NewUnavailableError(message string, statusCode int) *Error {
	return &Error{
		Kind:      KindUnavailable,
		Message:   fmt.Sprintf("%s (HTTP %d)", message, statusCode),
		Retryable: true,
	}
}

// NewAPIError maps a common-API envelope error code to its closed kind.
// Codes 105-107 are the session-invalid family; everything unrecognized
// is a server error.
func NewAPIError(code int) *Error {
	switch code {
	case 105, 106, 107:
		return &Error{
			Kind:      KindAuthExpired,
			Message:   "session is no longer valid",
			Code:      code,
			Retryable: true,
		}
	default:
		return &Error{
			Kind:      KindServerError,
			Message:   "server reported an error",
			Code:      code,
			Retryable: false,
		}
	}
}

// NewTaskError maps a per-task action error code to its closed kind.
// The task error table is from the DownloadStation Task API documentation.
func NewTaskError(code int) *Error {
	switch code {
	case 404:
		return &Error{
			Kind:      KindNotFound,
			Message:   "no such task",
			Code:      code,
			Retryable: false,
		}
	case 405:
		return &Error{
			Kind:      KindServerError,
			Message:   "invalid task action",
			Code:      code,
			Retryable: false,
		}
	case 408:
		return &Error{
			Kind:      KindNotFound,
			Message:   "file does not exist",
			Code:      code,
			Retryable: false,
		}
	default:
		return &Error{
			Kind:      KindServerError,
			Message:   "task action failed",
			Code:      code,
			Retryable: false,
		}
	}
}

// NewRateLimitedError creates an error for throttled requests
func NewRateLimitedError() *Error {
	return &Error{
		Kind:      KindRateLimited,
		Message:   "server is throttling requests",
		Retryable: true,
	}
}

// NewMalformedError creates an error for an undecodable response. The server
// API is semi-documented, so unexpected shapes surface as errors rather
// than panics.
func NewMalformedError(message string, err error) *Error {
	return &Error{
		Kind:      KindMalformed,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// KindOf returns the error kind, or KindServerError for foreign errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServerError
}

// IsTransportError checks if an error is a network-level failure
func IsTransportError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransport
}

// IsAuthExpired checks if an error reports an invalid session
func IsAuthExpired(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuthExpired
}

// IsInvalidCredentials checks if an error reports a rejected login
func IsInvalidCredentials(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInvalidCredentials
}

// IsNotFound checks if an error reports a missing task
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// IsRetryable checks if a later retry may succeed
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// ShortMessage returns a concise, operator-friendly message for the status bar
func ShortMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Kind {
	case KindTransport:
		return "Server not responding - check connection"
	case KindInvalidCredentials:
		return "Login failed: " + e.Message
	case KindUnavailable:
		return "Server unavailable - will keep retrying"
	case KindAuthExpired:
		return "Session expired - re-authenticating"
	case KindNotFound:
		return "Task not found on server"
	case KindRateLimited:
		return "Server is rate limiting requests"
	case KindMalformed:
		return "Unexpected response from server"
	default:
		if e.Code != 0 {
			return fmt.Sprintf("Server error (code %d)", e.Code)
		}
		return "Server error"
	}
}
