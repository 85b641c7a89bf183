package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/httpclient/content"
	"github.com/kbukum/httpapi/httpclient/header"
	"github.com/kbukum/httpapi/httpclient/sse"
)

// Response is the outcome of one Send. Timeouts, cancellation, transport
// faults and error statuses are recorded here rather than returned.
//
// The caller owns the response and must Close it.
type Response struct {
	Request *Request
	// StatusCode is nil when no wire response was received.
	StatusCode *int
	// RequestTimedOut and OperationCanceled are nil until set.
	RequestTimedOut   *bool
	OperationCanceled *bool
	// Err is the transport fault of the call, if any.
	Err error

	wire      *http.Response
	body      *content.Raw
	closeOnce sync.Once
	closeErr  error
}

func newResponse(req *Request) *Response {
	return &Response{Request: req}
}

func (r *Response) setWire(resp *http.Response) {
	r.wire = resp
	status := resp.StatusCode
	r.StatusCode = &status
	r.body = content.FromWire(resp.Header, resp.Body)
}

// HTTPResponse returns the wire response, or nil.
func (r *Response) HTTPResponse() *http.Response { return r.wire }

// Status returns the status code, or 0 when there is none.
func (r *Response) Status() int {
	if r.StatusCode == nil {
		return 0
	}
	return *r.StatusCode
}

// TimedOut reports whether the per-request timeout fired.
func (r *Response) TimedOut() bool { return r.RequestTimedOut != nil && *r.RequestTimedOut }

// Canceled reports whether the caller canceled the call.
func (r *Response) Canceled() bool { return r.OperationCanceled != nil && *r.OperationCanceled }

// StatusCodeIsOK reports a status below 400.
func (r *Response) StatusCodeIsOK() bool {
	return r.StatusCode != nil && *r.StatusCode < 400
}

// IsOK reports a status below 400 with no fault, cancellation or timeout.
func (r *Response) IsOK() bool {
	return r.StatusCodeIsOK() && r.Err == nil && !r.Canceled() && !r.TimedOut()
}

// HasError is the negation of IsOK.
func (r *Response) HasError() bool { return !r.IsOK() }

// HasErrorOrNoResponse reports an error or a missing wire response.
func (r *Response) HasErrorOrNoResponse() bool {
	return r.HasError() || r.wire == nil
}

// CancelOrTimeoutText describes a timeout or cancellation, or returns "".
func (r *Response) CancelOrTimeoutText() string {
	switch {
	case r.TimedOut():
		return "The request timed out."
	case r.Canceled():
		return "The operation was canceled."
	}
	return ""
}

// ErrorText returns the text of Err, or "".
func (r *Response) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Failure classifies the response. It returns nil when IsOK holds.
func (r *Response) Failure() error {
	if r.IsOK() {
		return nil
	}
	uri := ""
	if r.Request != nil {
		uri = r.Request.ResolveURI()
	}
	switch {
	case r.TimedOut():
		return errors.Timeout("send").WithDetail("uri", uri)
	case r.Canceled():
		return errors.Canceled("send").WithDetail("uri", uri)
	case r.Err != nil:
		if appErr, ok := errors.AsAppError(r.Err); ok {
			return appErr
		}
		return errors.TransportFault(r.Err).WithDetail("uri", uri)
	case r.StatusCode != nil:
		return errors.HTTPStatus(*r.StatusCode, uri)
	}
	return errors.NoResponse(uri)
}

// Header returns the wire response headers, or an empty header.
func (r *Response) Header() http.Header {
	if r.wire == nil {
		return http.Header{}
	}
	return r.wire.Header
}

// AllHeaders returns a copy of every response header.
func (r *Response) AllHeaders() http.Header {
	return r.Header().Clone()
}

// ResponseHeaders returns the headers that describe the response itself.
func (r *Response) ResponseHeaders() http.Header {
	h, _ := header.SplitContent(r.Header())
	return h
}

// ContentHeaders returns the headers that describe the body.
func (r *Response) ContentHeaders() http.Header {
	_, h := header.SplitContent(r.Header())
	return h
}

// ReadAsBytes reads the body. The body is read from the wire once and
// served from memory afterwards. It returns nil when there is no response.
func (r *Response) ReadAsBytes(ctx context.Context) ([]byte, error) {
	if r.body == nil {
		return nil, nil
	}
	return r.body.Bytes(ctx)
}

// ReadAsString reads the body as a string.
func (r *Response) ReadAsString(ctx context.Context) (string, error) {
	data, err := r.ReadAsBytes(ctx)
	return string(data), err
}

// ReadAsStream returns a reader over the body. It returns nil when there
// is no response.
func (r *Response) ReadAsStream(ctx context.Context) (io.ReadCloser, error) {
	if r.body == nil {
		return nil, nil
	}
	return r.body.Reader(ctx)
}

// CopyContentTo writes the body to w.
func (r *Response) CopyContentTo(ctx context.Context, w io.Writer) error {
	data, err := r.ReadAsBytes(ctx)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Events reads a text/event-stream body incrementally. The body is not
// buffered, so it cannot be read again afterwards.
func (r *Response) Events() (sse.Reader, error) {
	if r.wire == nil {
		return nil, errors.NoResponse(r.Request.ResolveURI())
	}
	if !sse.IsEventStream(r.wire.Header) {
		return nil, errors.InvalidState("Content-Type %q is not %s", r.wire.Header.Get("Content-Type"), sse.ContentType)
	}
	body, err := r.body.Take()
	if err != nil {
		return nil, err
	}
	return sse.NewReader(body), nil
}

// Close releases the wire response. It is safe to call more than once.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		if r.body != nil {
			r.closeErr = r.body.Close()
		}
	})
	return r.closeErr
}

// ReadJSON decodes the body into a T. A response with no body decodes to
// the zero value.
func ReadJSON[T any](ctx context.Context, r *Response) (T, error) {
	var out T
	data, err := r.ReadAsBytes(ctx)
	if err != nil {
		return out, err
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, errors.Internal(err).WithDetail("operation", "decode response")
	}
	return out, nil
}
