package httpclient

import (
	"io"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/httpclient/content"
	"github.com/kbukum/httpapi/httpclient/header"
	"github.com/kbukum/httpapi/util"
)

const defaultFileContentType = "application/octet-stream"

// MultipartBody is a multipart/form-data body: simple fields plus files.
type MultipartBody struct {
	// Fields are sent in sorted key order.
	Fields map[string]string
	Files  []FileField
}

// FileField is a file to upload in a form-data request.
type FileField struct {
	// FieldName is the form field name (e.g., "file", "audio").
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType defaults to application/octet-stream.
	ContentType string
	// Data is the file content. Used if Reader is nil.
	Data []byte
	// Reader streams large files. A streamed request cannot be retried.
	Reader io.Reader
}

func (f FileField) part() (content.Part, error) {
	ct := f.ContentType
	if ct == "" {
		ct = defaultFileContentType
	}
	base := content.Base{Field: f.FieldName, File: f.FileName}
	base.ContentHeaders.ContentType = &header.MediaType{MediaType: ct}

	switch {
	case f.Data != nil:
		return &content.Binary{Base: base, Data: f.Data}, nil
	case f.Reader != nil:
		return &content.Stream{Base: base, Reader: f.Reader}, nil
	}
	return nil, errors.InvalidState("file %q has neither Data nor Reader", f.FieldName)
}

// AddFile adds a file part and declares multipart/form-data unless a
// multipart sub-type is already set.
func (b *RequestBuilder) AddFile(f FileField) *RequestBuilder {
	if f.FieldName == "" {
		return b.fail(errors.InvalidState("file FieldName == null"))
	}
	p, err := f.part()
	if err != nil {
		return b.fail(err)
	}
	b.ensureFormData()
	switch v := p.(type) {
	case *content.Binary:
		b.AddBinary(v, true)
	case *content.Stream:
		b.AddStream(v, true)
	}
	return b
}

// AddMultipartBody adds every field and file of m.
func (b *RequestBuilder) AddMultipartBody(m MultipartBody) *RequestBuilder {
	b.ensureFormData()
	for _, k := range util.SortedKeys(m.Fields) {
		b.AddFormData(k, m.Fields[k], true)
	}
	for _, f := range m.Files {
		b.AddFile(f)
	}
	return b
}

func (b *RequestBuilder) ensureFormData() {
	if b.req.MultipartSubType == "" {
		b.req.MultipartSubType = content.FormDataSubType
	}
}
