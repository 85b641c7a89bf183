package content

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/kbukum/httpapi/errors"
)

// Raw is a body received from the wire. The body is read once, on first
// access, and served from memory afterwards.
type Raw struct {
	Base
	header http.Header
	body   io.ReadCloser
	memo   Memo[[]byte]
}

// FromWire wraps a received body. The header is kept as the default
// content headers of the part.
func FromWire(h http.Header, body io.ReadCloser) *Raw {
	return &Raw{header: h.Clone(), body: body}
}

// NewRaw wraps bytes that are already in memory.
func NewRaw(h http.Header, data []byte) *Raw {
	r := &Raw{header: h.Clone()}
	r.memo.Set(data)
	return r
}

func (r *Raw) Kind() Kind { return KindRaw }

// Header returns the wire header the part was built from.
func (r *Raw) Header() http.Header { return r.header }

// Bytes reads and caches the body. The transport body is closed once it has
// been read. A read that fails after touching the body is not retried: the
// same error is returned from then on.
func (r *Raw) Bytes(ctx context.Context) ([]byte, error) {
	return r.memo.Get(func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.body == nil || r.body == http.NoBody {
			return nil, nil
		}
		data, err := io.ReadAll(r.body)
		_ = r.body.Close()
		if err != nil {
			return nil, Fail(errors.TransportFault(err))
		}
		return data, nil
	})
}

// Reader returns a fresh reader over the cached body.
func (r *Raw) Reader(ctx context.Context) (io.ReadCloser, error) {
	data, err := r.Bytes(ctx)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Read reports whether the body has been taken from the wire, whether or not
// the read succeeded.
func (r *Raw) Read() bool { return r.memo.State() != Unread }

// Take hands the unread transport body to the caller, who then owns it.
// It fails once the body has been read or taken, and every later read of
// the part fails too.
func (r *Raw) Take() (io.ReadCloser, error) {
	var body io.ReadCloser
	_, err := r.memo.Get(func() ([]byte, error) {
		body = r.body
		return nil, Fail(errors.InvalidState("body was taken by a stream reader"))
	})
	if body != nil {
		return body, nil
	}
	if err == nil {
		err = errors.InvalidState("body was already read")
	}
	return nil, err
}

// Close releases the transport body unless it was read to the end.
func (r *Raw) Close() error {
	if r.memo.State() == Cached || r.body == nil {
		return nil
	}
	return r.body.Close()
}

// Materialize replays the cached bytes, reading the body first if needed.
func (r *Raw) Materialize() (*Wire, error) {
	data, err := r.Bytes(context.Background())
	if err != nil {
		return nil, err
	}
	defaults := http.Header{}
	for name, values := range r.header {
		if name != "Content-Length" {
			defaults[name] = append([]string(nil), values...)
		}
	}
	return r.finishBytes(defaults, data)
}

func (r *Raw) ReadAsString(ctx context.Context) (string, error) {
	data, err := r.Bytes(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
