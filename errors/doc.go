// Package errors provides the error taxonomy shared by the httpapi packages.
//
// Two families exist. Programmer and wiring errors (INVALID_STATE,
// CONFIGURATION_FAULT, INVALID_INPUT) are returned to the caller. Call
// outcomes (TIMEOUT, CANCELED, TRANSPORT_FAULT, HTTP_STATUS, NO_RESPONSE)
// are recorded on the response descriptor and never returned by Send.
package errors
