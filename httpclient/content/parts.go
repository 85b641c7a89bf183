package content

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"

	"github.com/kbukum/httpapi/errors"
)

const (
	DefaultTextMediaType = "text/plain"
	DefaultJSONMediaType = "application/json"
	DefaultCharset       = "utf-8"
)

// Text is a string body. A Text built with NewText always has a payload,
// even an empty one; a zero Text has none until Value is set.
type Text struct {
	Base
	Value     string
	MediaType string
	Charset   string

	set bool
}

// NewText returns a text/plain part.
func NewText(value string) *Text { return &Text{Value: value, set: true} }

func (t *Text) Kind() Kind { return KindText }

func (t *Text) mediaType() string {
	mt, cs := t.MediaType, t.Charset
	if mt == "" {
		mt = DefaultTextMediaType
	}
	if cs == "" {
		cs = DefaultCharset
	}
	return mime.FormatMediaType(mt, map[string]string{"charset": cs})
}

func (t *Text) Materialize() (*Wire, error) {
	if t.Value == "" && !t.set {
		return nil, errors.InvalidState("Text: Value == null")
	}
	return t.finishBytes(contentType(t.mediaType()), []byte(t.Value))
}

func (t *Text) ReadAsString(context.Context) (string, error) { return t.Value, nil }

// JSON is a body encoded from Value with encoding/json. A nil Value is
// encoded as null.
type JSON struct {
	Base
	Value     any
	MediaType string
}

// NewJSON returns an application/json part.
func NewJSON(value any) *JSON { return &JSON{Value: value} }

func (j *JSON) Kind() Kind { return KindJSON }

func (j *JSON) encode() ([]byte, error) {
	data, err := json.Marshal(j.Value)
	if err != nil {
		return nil, errors.InvalidState("JSON: cannot encode %T", j.Value).WithCause(err)
	}
	return data, nil
}

func (j *JSON) Materialize() (*Wire, error) {
	data, err := j.encode()
	if err != nil {
		return nil, err
	}
	mt := j.MediaType
	if mt == "" {
		mt = DefaultJSONMediaType
	}
	return j.finishBytes(contentType(mime.FormatMediaType(mt, map[string]string{"charset": DefaultCharset})), data)
}

func (j *JSON) ReadAsString(context.Context) (string, error) {
	data, err := j.encode()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Binary is a byte slice body. Offset and Count select a window of Data;
// a zero Count means to the end.
type Binary struct {
	Base
	Data   []byte
	Offset int
	Count  int
}

// NewBinary returns a part over data.
func NewBinary(data []byte) *Binary { return &Binary{Data: data} }

func (b *Binary) Kind() Kind { return KindBinary }

func (b *Binary) window() ([]byte, error) {
	if b.Data == nil {
		return nil, errors.InvalidState("Binary: Data == null")
	}
	end := len(b.Data)
	if b.Count > 0 {
		end = b.Offset + b.Count
	}
	if b.Offset < 0 || b.Count < 0 || b.Offset > len(b.Data) || end > len(b.Data) {
		return nil, errors.InvalidState("Binary: window [%d:%d] out of range for %d bytes", b.Offset, end, len(b.Data))
	}
	return b.Data[b.Offset:end], nil
}

func (b *Binary) Materialize() (*Wire, error) {
	data, err := b.window()
	if err != nil {
		return nil, err
	}
	return b.finishBytes(nil, data)
}

func (b *Binary) ReadAsString(context.Context) (string, error) {
	data, err := b.window()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Stream is a body read from Reader. It can be sent once.
type Stream struct {
	Base
	Reader io.Reader
}

// NewStream returns a part over r.
func NewStream(r io.Reader) *Stream { return &Stream{Reader: r} }

func (s *Stream) Kind() Kind { return KindStream }

func (s *Stream) Materialize() (*Wire, error) {
	if s.Reader == nil {
		return nil, errors.InvalidState("Stream: Reader == null")
	}
	length := int64(-1)
	if l, ok := s.Reader.(interface{ Len() int }); ok {
		length = int64(l.Len())
	}
	return s.finish(nil, s.Reader, length, nil)
}

// ReadAsString reads a seekable stream and rewinds it. Other readers
// cannot be observed without consuming them.
func (s *Stream) ReadAsString(context.Context) (string, error) {
	if s.Reader == nil {
		return "", errors.InvalidState("Stream: Reader == null")
	}
	seeker, ok := s.Reader.(io.ReadSeeker)
	if !ok {
		return "", errors.InvalidState("Stream: body is not replayable")
	}
	pos, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", errors.Internal(err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, seeker); err != nil {
		return "", errors.Internal(err)
	}
	if _, err := seeker.Seek(pos, io.SeekStart); err != nil {
		return "", errors.Internal(err)
	}
	return buf.String(), nil
}

var (
	_ Part = (*Text)(nil)
	_ Part = (*JSON)(nil)
	_ Part = (*Binary)(nil)
	_ Part = (*Stream)(nil)
	_ Part = (*Raw)(nil)
)
