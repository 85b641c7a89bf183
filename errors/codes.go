package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Programmer and wiring errors. These are returned to the caller.
const (
	// ErrCodeInvalidState indicates a descriptor or header is structurally incomplete.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeConfigurationFault indicates missing ambient context or invalid client options.
	ErrCodeConfigurationFault ErrorCode = "CONFIGURATION_FAULT"
	// ErrCodeInvalidInput indicates the input failed validation.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Call outcome errors. These are recorded on a response, never returned by Send.
const (
	// ErrCodeTimeout indicates the per-request timeout elapsed.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the caller canceled the call.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeTransportFault indicates the transport failed (network, protocol).
	ErrCodeTransportFault ErrorCode = "TRANSPORT_FAULT"
	// ErrCodeHTTPStatus indicates the server answered with a status >= 400.
	ErrCodeHTTPStatus ErrorCode = "HTTP_STATUS"
	// ErrCodeNoResponse indicates no wire response was received.
	ErrCodeNoResponse ErrorCode = "NO_RESPONSE"
)

// Internal errors
const (
	// ErrCodeLoggingFault indicates a request/response logger hook failed.
	ErrCodeLoggingFault ErrorCode = "LOGGING_FAULT"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:        true,
	ErrCodeTransportFault: true,
	ErrCodeNoResponse:     true,
	ErrCodeInternal:       false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
