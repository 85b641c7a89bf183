package logger

import "time"

// Field keys shared by the client's log events.
const (
	FieldClient        = "client"
	FieldComponent     = "component"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"
	FieldCorrelationID = "correlation_id"
	FieldSourceSystem  = "source_system"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldDuration      = "duration_ms"

	FieldMethod       = "method"
	FieldURI          = "uri"
	FieldStatusCode   = "status_code"
	FieldContentType  = "content_type"
	FieldHeaders      = "headers"
	FieldBody         = "body"
	FieldAttempt      = "attempt"
	FieldTimedOut     = "timed_out"
	FieldCanceled     = "canceled"
	FieldErrorCode    = "error_code"
	FieldRequestBytes = "request_bytes"
)

// Fields pairs up alternating keys and values. Pairs whose key is not a
// string, and a trailing key without a value, are dropped.
//
//	log.Debug("sent", logger.Fields(logger.FieldMethod, "GET", logger.FieldStatusCode, 200))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := range len(kvs) / 2 {
		if key, ok := kvs[2*i].(string); ok {
			m[key] = kvs[2*i+1]
		}
	}
	return m
}

// ErrorFields names the failed operation and its error.
func ErrorFields(op string, err error) map[string]interface{} {
	return Fields(FieldOperation, op, FieldError, err.Error())
}

// DurationFields names an operation and how long it took, in milliseconds.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return Fields(FieldOperation, op, FieldDuration, d.Milliseconds())
}
