package content

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/kbukum/httpapi/httpclient/header"
)

// Kind discriminates the part variants.
type Kind int

const (
	KindText Kind = iota
	KindJSON
	KindBinary
	KindStream
	KindRaw
)

var kindNames = map[Kind]string{
	KindText:   "text",
	KindJSON:   "json",
	KindBinary: "binary",
	KindStream: "stream",
	KindRaw:    "raw",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Part is a single body part.
type Part interface {
	Kind() Kind
	// Headers returns the declared content headers. Never nil.
	Headers() *header.ContentHeaders
	// FormName and FileName name the part inside multipart/form-data.
	FormName() string
	FileName() string
	// Materialize builds the wire body.
	Materialize() (*Wire, error)
	// ReadAsString renders the body for diagnostics.
	ReadAsString(ctx context.Context) (string, error)
}

// Base carries what every part shares. Embed it in a part.
type Base struct {
	ContentHeaders header.ContentHeaders
	// ClearDefaultHeaders drops the variant's default headers (such as its
	// Content-Type) before the declared headers are applied.
	ClearDefaultHeaders bool
	// Field and File name the part in multipart/form-data.
	Field string
	File  string
}

func (b *Base) Headers() *header.ContentHeaders { return &b.ContentHeaders }
func (b *Base) FormName() string                { return b.Field }
func (b *Base) FileName() string                { return b.File }

// Wire is a materialized body.
type Wire struct {
	Header http.Header
	Body   io.Reader
	// Length is the body size in bytes, or -1 when unknown.
	Length int64
	// GetBody returns a fresh copy of the body. Nil when the body can be
	// read only once.
	GetBody func() (io.ReadCloser, error)
}

// ContentType returns the Content-Type header of the body.
func (w *Wire) ContentType() string {
	if w == nil {
		return ""
	}
	return w.Header.Get("Content-Type")
}

// Replayable reports whether GetBody is available.
func (w *Wire) Replayable() bool { return w != nil && w.GetBody != nil }

// ReadCloser returns the body as an io.ReadCloser.
func (w *Wire) ReadCloser() io.ReadCloser {
	if w == nil || w.Body == nil {
		return http.NoBody
	}
	if rc, ok := w.Body.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(w.Body)
}

// finish applies the default and declared headers to a body.
func (b *Base) finish(defaults http.Header, body io.Reader, length int64, getBody func() (io.ReadCloser, error)) (*Wire, error) {
	h := defaults
	if h == nil || b.ClearDefaultHeaders {
		h = http.Header{}
	}
	if err := b.ContentHeaders.Apply(h); err != nil {
		return nil, err
	}
	if b.ContentHeaders.ContentLength != nil {
		length = *b.ContentHeaders.ContentLength
	}
	h.Del("Content-Length")
	return &Wire{Header: h, Body: body, Length: length, GetBody: getBody}, nil
}

func (b *Base) finishBytes(defaults http.Header, data []byte) (*Wire, error) {
	return b.finish(defaults, bytes.NewReader(data), int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

func contentType(value string) http.Header {
	h := http.Header{}
	if value != "" {
		h.Set("Content-Type", value)
	}
	return h
}
