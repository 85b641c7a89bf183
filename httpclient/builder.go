package httpclient

import (
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/httpclient/content"
	"github.com/kbukum/httpapi/httpclient/header"
	"github.com/kbukum/httpapi/util"
)

// RequestBuilder fills a Request fluently. Setters that take force only
// apply when force is set or the field is still empty. The first invalid
// call is recorded and returned by Build.
type RequestBuilder struct {
	req *Request
	err error
}

// NewRequestBuilder returns a builder over a new Request.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{req: NewRequest()}
}

// BuilderFor returns a builder that mutates req.
func BuilderFor(req *Request) *RequestBuilder {
	if req.Headers == nil {
		req.Headers = header.New()
	}
	return &RequestBuilder{req: req}
}

func (b *RequestBuilder) fail(err error) *RequestBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Build returns the request, or the first recorded error.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.req, nil
}

// Request returns the request being built, regardless of errors.
func (b *RequestBuilder) Request() *Request { return b.req }

// Err returns the first recorded error.
func (b *RequestBuilder) Err() error { return b.err }

func (b *RequestBuilder) BaseAddress(address string, force bool) *RequestBuilder {
	if force || b.req.BaseAddress == "" {
		b.req.BaseAddress = address
	}
	return b
}

// RelativePath sets the path. A leading "/" is dropped.
func (b *RequestBuilder) RelativePath(path string, force bool) *RequestBuilder {
	if force || b.req.RelativePath == "" {
		b.req.RelativePath = strings.TrimLeft(path, "/")
	}
	return b
}

// QueryString sets the whole query. It is stored with a leading "?".
func (b *RequestBuilder) QueryString(query string, force bool) *RequestBuilder {
	if force || b.req.QueryString == "" {
		b.req.QueryString = normalizeQuery(query)
	}
	return b
}

// QueryValues sets the query from a map. Keys are encoded in sorted order.
func (b *RequestBuilder) QueryValues(values map[string]string, force bool) *RequestBuilder {
	if len(values) == 0 {
		return b
	}
	pairs := make([]string, 0, len(values))
	for _, k := range util.SortedKeys(values) {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(values[k]))
	}
	return b.QueryString(strings.Join(pairs, "&"), force)
}

// AddQueryString appends one key=value pair. An empty key is ignored.
func (b *RequestBuilder) AddQueryString(key, value string) *RequestBuilder {
	if strings.TrimSpace(key) == "" {
		return b
	}
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if q := normalizeQuery(b.req.QueryString); q != "" {
		b.req.QueryString = q + "&" + pair
	} else {
		b.req.QueryString = "?" + pair
	}
	return b
}

func (b *RequestBuilder) Method(method Method, force bool) *RequestBuilder {
	if strings.TrimSpace(string(method)) == "" {
		return b.fail(errors.InvalidState("method == null"))
	}
	if force || b.req.Method == "" {
		b.req.Method = method
	}
	return b
}

func (b *RequestBuilder) Get(path string) *RequestBuilder {
	return b.Method(MethodGet, true).RelativePath(path, true)
}

func (b *RequestBuilder) Post(path string) *RequestBuilder {
	return b.Method(MethodPost, true).RelativePath(path, true)
}

func (b *RequestBuilder) Put(path string) *RequestBuilder {
	return b.Method(MethodPut, true).RelativePath(path, true)
}

func (b *RequestBuilder) Patch(path string) *RequestBuilder {
	return b.Method(MethodPatch, true).RelativePath(path, true)
}

func (b *RequestBuilder) Delete(path string) *RequestBuilder {
	return b.Method(MethodDelete, true).RelativePath(path, true)
}

// ClearDefaultHeaders drops the client default headers for this request.
func (b *RequestBuilder) ClearDefaultHeaders(clear bool) *RequestBuilder {
	b.req.ClearDefaultHeaders = clear
	return b
}

// ConfigureHeaders mutates the header set in place.
func (b *RequestBuilder) ConfigureHeaders(fn func(h *header.RequestHeaders)) *RequestBuilder {
	if fn != nil {
		fn(b.req.Headers)
	}
	return b
}

// AddHeader adds a custom header.
func (b *RequestBuilder) AddHeader(name, value string, force bool) *RequestBuilder {
	b.req.Headers.Add(name, value, force)
	return b
}

// AddCookie adds a cookie pair.
func (b *RequestBuilder) AddCookie(name, value string, force bool) *RequestBuilder {
	b.req.Headers.AddCookie(name, value, force)
	return b
}

// WithAuth sets a non-forcing Authorization header, or the API key query
// pair, from cfg.
func (b *RequestBuilder) WithAuth(cfg *AuthConfig) *RequestBuilder {
	if err := cfg.applyTo(b.req, false); err != nil {
		return b.fail(err)
	}
	return b
}

// Multipart declares the multipart sub-type and an optional boundary.
func (b *RequestBuilder) Multipart(subType, boundary string) *RequestBuilder {
	if strings.TrimSpace(subType) == "" {
		return b.fail(errors.InvalidState("multipart subType == null"))
	}
	b.req.MultipartSubType = subType
	b.req.MultipartBoundary = boundary
	return b
}

// RequestTimeout bounds the call. The timeout also bounds reading the
// response body.
func (b *RequestBuilder) RequestTimeout(d time.Duration, force bool) *RequestBuilder {
	if force || b.req.RequestTimeout == nil {
		b.req.RequestTimeout = &d
	}
	return b
}

// AddFormData adds a form pair. A non-forcing pair is skipped when the key
// is already present. Forcing pairs are always appended, so a key may repeat.
func (b *RequestBuilder) AddFormData(key, value string, force bool) *RequestBuilder {
	if !force {
		for _, f := range b.req.FormData {
			if f.Key == key {
				return b
			}
		}
	}
	b.req.FormData = append(b.req.FormData, FormField{Key: key, Value: value})
	return b
}

// AddFormDataList adds each pair in order.
func (b *RequestBuilder) AddFormDataList(fields []FormField, force bool) *RequestBuilder {
	for _, f := range fields {
		b.AddFormData(f.Key, f.Value, force)
	}
	return b
}

func (b *RequestBuilder) AddText(part *content.Text, force bool) *RequestBuilder {
	if part == nil {
		return b.fail(errors.InvalidState("text content == null"))
	}
	if force || len(b.req.TextContents) == 0 {
		b.req.TextContents = append(b.req.TextContents, part)
	}
	return b
}

func (b *RequestBuilder) AddJSON(part *content.JSON, force bool) *RequestBuilder {
	if part == nil {
		return b.fail(errors.InvalidState("json content == null"))
	}
	if force || len(b.req.JSONContents) == 0 {
		b.req.JSONContents = append(b.req.JSONContents, part)
	}
	return b
}

func (b *RequestBuilder) AddStream(part *content.Stream, force bool) *RequestBuilder {
	if part == nil {
		return b.fail(errors.InvalidState("stream content == null"))
	}
	if force || len(b.req.StreamContents) == 0 {
		b.req.StreamContents = append(b.req.StreamContents, part)
	}
	return b
}

func (b *RequestBuilder) AddBinary(part *content.Binary, force bool) *RequestBuilder {
	if part == nil {
		return b.fail(errors.InvalidState("binary content == null"))
	}
	if force || len(b.req.BinaryContents) == 0 {
		b.req.BinaryContents = append(b.req.BinaryContents, part)
	}
	return b
}
