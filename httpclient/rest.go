package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/kbukum/httpapi/httpclient/content"
)

// TypedResponse wraps a response with a decoded body of type T.
type TypedResponse[T any] struct {
	StatusCode int
	Header     http.Header
	Data       T
}

// RequestOption configures a single typed request.
type RequestOption func(b *RequestBuilder)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(b *RequestBuilder) { b.AddHeader(key, value, true) }
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(b *RequestBuilder) { b.AddQueryString(key, value) }
}

// WithRequestAuth sets the Authorization of the request, ahead of the
// client's Auth.
func WithRequestAuth(auth *AuthConfig) RequestOption {
	return func(b *RequestBuilder) { b.WithAuth(auth) }
}

// WithTimeout bounds the request.
func WithTimeout(d time.Duration) RequestOption {
	return func(b *RequestBuilder) { b.RequestTimeout(d, true) }
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body and decodes the response into type T.
func Post[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, MethodPost, path, body, opts...)
}

// Put performs a PUT request with a JSON body and decodes the response into type T.
func Put[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, MethodPut, path, body, opts...)
}

// Patch performs a PATCH request with a JSON body and decodes the response into type T.
func Patch[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the JSON response into type T.
func Delete[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, MethodDelete, path, nil, opts...)
}

// doTyped sends a JSON request and decodes the response. A failed response
// returns its classified error; if the error body decodes as T it is
// returned alongside.
func doTyped[T any](c *Client, ctx context.Context, method Method, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	b := NewRequestBuilder().Method(method, true).RelativePath(path, true)
	b.AddHeader("Accept", content.DefaultJSONMediaType, false)
	if body != nil {
		b.AddJSON(content.NewJSON(body), true)
	}
	for _, opt := range opts {
		opt(b)
	}
	req, err := b.Build()
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	if failure := resp.Failure(); failure != nil {
		if resp.StatusCode != nil {
			if data, decErr := ReadJSON[T](ctx, resp); decErr == nil {
				return &TypedResponse[T]{StatusCode: resp.Status(), Header: resp.Header(), Data: data}, failure
			}
		}
		return nil, failure
	}

	data, err := ReadJSON[T](ctx, resp)
	if err != nil {
		return nil, err
	}
	return &TypedResponse[T]{StatusCode: resp.Status(), Header: resp.Header(), Data: data}, nil
}
