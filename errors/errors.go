package errors

import (
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// AppError carries a machine-readable Code alongside the message. It is
// what a Response exposes as its Failure and what Send returns for wiring
// problems. HTTPStatus is the status the failure maps to when a caller
// needs to surface it over HTTP itself.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches cause and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails copies details into e, overwriting keys it already has.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// New builds an AppError whose Retryable flag follows its code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Retryable: IsRetryableCode(code)}
}

// InvalidState creates an error for a descriptor that cannot be materialized.
func InvalidState(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf(format, args...),
	}
}

// ConfigurationFault creates an error for a wiring bug: missing ambient
// context or options that failed validation.
func ConfigurationFault(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeConfigurationFault,
		Message: fmt.Sprintf(format, args...),
	}
}

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request timed out.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Canceled creates a new AppError for a call canceled by the caller.
func Canceled(operation string) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: "The operation was canceled.",
		Details: map[string]any{"operation": operation},
	}
}

// TransportFault wraps a network or protocol failure.
func TransportFault(cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransportFault, Message: "The transport failed to complete the request.",
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
	}
}

// HTTPStatus creates an error for a response whose status is >= 400.
func HTTPStatus(status int, uri string) *AppError {
	return &AppError{
		Code: ErrCodeHTTPStatus, Message: fmt.Sprintf("The server responded with %d %s.", status, http.StatusText(status)),
		HTTPStatus: status, Retryable: status >= 500 || status == http.StatusTooManyRequests,
		Details: map[string]any{"status": status, "uri": uri},
	}
}

// NoResponse creates an error for a call that produced no wire response.
func NoResponse(uri string) *AppError {
	return &AppError{
		Code: ErrCodeNoResponse, Message: "NO RESPONSE",
		Retryable: true,
		Details:   map[string]any{"uri": uri},
	}
}

// LoggingFault wraps a failure raised by a request/response logger hook.
func LoggingFault(hook string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeLoggingFault, Message: fmt.Sprintf("Logger hook %s failed.", hook),
		Details: map[string]any{"hook": hook}, Cause: cause,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
