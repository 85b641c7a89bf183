package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/httpclient/content"
	"github.com/kbukum/httpapi/httpclient/header"
	"github.com/kbukum/httpapi/util"
)

// Method is an HTTP request method.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodHead    Method = http.MethodHead
	MethodOptions Method = http.MethodOptions
	MethodTrace   Method = http.MethodTrace
	MethodConnect Method = http.MethodConnect
)

// FormField is a form-data pair.
type FormField struct {
	Key   string
	Value string
}

// Request describes an outbound call. It is built per call, usually with a
// RequestBuilder, and consumed once by Client.Send.
type Request struct {
	BaseAddress  string
	RelativePath string
	QueryString  string
	Method       Method

	// ClearDefaultHeaders drops the client's default headers, such as its
	// User-Agent, before Headers are applied.
	ClearDefaultHeaders bool
	Headers             *header.RequestHeaders

	// MultipartSubType and MultipartBoundary are used only when more than
	// one body part is attached.
	MultipartSubType  string
	MultipartBoundary string

	RequestTimeout *time.Duration

	FormData       []FormField
	TextContents   []*content.Text
	JSONContents   []*content.JSON
	StreamContents []*content.Stream
	BinaryContents []*content.Binary
	// RawContent carries the body of a request built by RequestFromHTTP.
	RawContent *content.Raw

	defaults http.Header
}

// NewRequest returns an empty request with an empty header set.
func NewRequest() *Request {
	return &Request{Headers: header.New()}
}

// parts returns the body parts in multipart assembly order.
func (r *Request) parts() []content.Part {
	parts := make([]content.Part, 0, len(r.TextContents)+len(r.JSONContents)+len(r.StreamContents)+len(r.BinaryContents)+1)
	for _, p := range r.TextContents {
		parts = append(parts, p)
	}
	for _, p := range r.JSONContents {
		parts = append(parts, p)
	}
	for _, p := range r.StreamContents {
		parts = append(parts, p)
	}
	for _, p := range r.BinaryContents {
		parts = append(parts, p)
	}
	if r.RawContent != nil {
		parts = append(parts, r.RawContent)
	}
	return parts
}

// ContentCount returns the number of body parts plus form pairs.
func (r *Request) ContentCount() int {
	return len(r.FormData) + len(r.parts())
}

// ResolveWireContent derives the one body of the request. No parts means
// no body. A single part keeps its own media type. More parts are assembled
// into a multipart body, which requires MultipartSubType; form pairs are
// legal only for multipart/form-data.
func (r *Request) ResolveWireContent() (*content.Wire, error) {
	parts := r.parts()
	count := len(r.FormData) + len(parts)

	switch {
	case count == 0:
		return nil, nil
	case count == 1 && len(r.FormData) == 1:
		return nil, errors.InvalidState("form-data requires a multipart request")
	case count == 1:
		if isNilPart(parts[0]) {
			return nil, errors.InvalidState("%s content == null", parts[0].Kind())
		}
		return parts[0].Materialize()
	}

	if strings.TrimSpace(r.MultipartSubType) == "" {
		return nil, errors.InvalidState("MultipartSubType == null")
	}
	mp := content.NewMultipart(r.MultipartSubType, r.MultipartBoundary)
	for _, f := range r.FormData {
		if err := mp.AddField(f.Key, f.Value); err != nil {
			return nil, err
		}
	}
	for _, p := range parts {
		if isNilPart(p) {
			return nil, errors.InvalidState("%s content == null", p.Kind())
		}
		if err := mp.AddPart(p); err != nil {
			return nil, err
		}
	}
	return mp.Materialize()
}

func isNilPart(p content.Part) bool {
	switch v := p.(type) {
	case *content.Text:
		return v == nil
	case *content.JSON:
		return v == nil
	case *content.Stream:
		return v == nil
	case *content.Binary:
		return v == nil
	case *content.Raw:
		return v == nil
	}
	return p == nil
}

// ResolveURI joins base address, relative path and query string. A missing
// base address becomes "/" unless the path is already absolute.
func (r *Request) ResolveURI() string {
	base := strings.TrimSpace(r.BaseAddress)
	path := strings.TrimSpace(r.RelativePath)
	query := normalizeQuery(r.QueryString)

	if base == "" {
		if isAbsoluteURI(path) {
			return path + query
		}
		base = "/"
	}
	if path == "" {
		return base + query
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/") + query
}

func normalizeQuery(q string) string {
	q = strings.TrimLeft(strings.TrimSpace(q), "?")
	if q == "" {
		return ""
	}
	return "?" + q
}

func isAbsoluteURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

// ToHTTPRequest materializes the wire request. The client's default
// headers go first unless ClearDefaultHeaders is set, then the header set,
// then the content headers of the body.
func (r *Request) ToHTTPRequest(ctx context.Context) (*http.Request, error) {
	if strings.TrimSpace(string(r.Method)) == "" {
		return nil, errors.InvalidState("Method == null")
	}
	wire, err := r.ResolveWireContent()
	if err != nil {
		return nil, err
	}

	uri := r.ResolveURI()
	var body io.Reader
	if wire != nil {
		body = wire.ReadCloser()
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(string(r.Method)), uri, body)
	if err != nil {
		return nil, errors.InvalidState("invalid request %s %s", r.Method, uri).WithCause(err)
	}

	if !r.ClearDefaultHeaders {
		for name, values := range r.defaults {
			req.Header[name] = append([]string(nil), values...)
		}
	}
	if err := r.Headers.Apply(req.Header); err != nil {
		return nil, err
	}
	if _, ok := req.Header["User-Agent"]; !ok && r.ClearDefaultHeaders {
		// An empty value keeps net/http from adding its own.
		req.Header["User-Agent"] = []string{""}
	}

	if wire != nil {
		for name, values := range wire.Header {
			req.Header[name] = append([]string(nil), values...)
		}
		req.ContentLength = wire.Length
		req.GetBody = wire.GetBody
		if wire.Length == 0 {
			req.Body = http.NoBody
			req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		}
	}
	moveRequestFields(req)
	return req, nil
}

// moveRequestFields moves headers that net/http takes from request fields
// rather than from Header.
func moveRequestFields(req *http.Request) {
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}
	req.Header.Del("Host")

	if te := splitTokens(req.Header.Values("Transfer-Encoding")); len(te) > 0 {
		req.TransferEncoding = te
		if slices.ContainsFunc(te, func(t string) bool { return strings.EqualFold(t, "chunked") }) {
			req.ContentLength = -1
		}
	}
	req.Header.Del("Transfer-Encoding")

	if names := splitTokens(req.Header.Values("Trailer")); len(names) > 0 {
		req.Trailer = http.Header{}
		for _, name := range names {
			req.Trailer[http.CanonicalHeaderKey(name)] = nil
		}
	}
	req.Header.Del("Trailer")
}

func splitTokens(values []string) []string {
	var out []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// RequestFromHTTP builds a request from an existing wire request. The body,
// if any, becomes a single raw part carrying the content headers. Other
// headers are copied only when withHeaders is set.
func RequestFromHTTP(req *http.Request, withHeaders bool) (*Request, error) {
	if req == nil {
		return nil, errors.InvalidState("request == null")
	}
	r := NewRequest()
	r.Method = Method(req.Method)
	if r.Method == "" {
		r.Method = MethodGet
	}
	if req.URL != nil {
		if req.URL.IsAbs() {
			r.BaseAddress = req.URL.Scheme + "://" + req.URL.Host
		}
		r.RelativePath = req.URL.EscapedPath()
		r.QueryString = normalizeQuery(req.URL.RawQuery)
	}

	requestHeaders, contentHeaders := header.SplitContent(req.Header)
	if withHeaders {
		for _, name := range util.SortedKeys(requestHeaders) {
			values := requestHeaders[name]
			if name == header.CookieHeader {
				for _, v := range values {
					r.Headers.AddRawCookie(v)
				}
				continue
			}
			r.Headers.AddValues(name, values, true)
		}
		if req.Host != "" && (req.URL == nil || req.Host != req.URL.Host) {
			r.Headers.Host = req.Host
		}
	}

	if req.Body != nil && req.Body != http.NoBody {
		body := req.Body
		if req.GetBody != nil {
			fresh, err := req.GetBody()
			if err != nil {
				return nil, errors.InvalidState("request body cannot be replayed").WithCause(err)
			}
			body = fresh
		}
		r.RawContent = content.FromWire(contentHeaders, body)
	}
	return r, nil
}
