// Package header models the typed request and content headers of a request
// descriptor and writes them onto net/http headers.
//
// Values missing a required field (an Authorization without a scheme, an
// entity tag without a tag) fail with an INVALID_STATE error when applied.
// Custom headers and cookies carry force flags: a non-forcing entry never
// overwrites a header already present.
package header
