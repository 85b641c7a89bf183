package content

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/httpapi/errors"
)

// FormDataSubType is the multipart sub-type that allows named fields.
const FormDataSubType = "form-data"

// IsFormData reports whether subType is form-data, ignoring case.
func IsFormData(subType string) bool {
	return strings.EqualFold(strings.TrimSpace(subType), FormDataSubType)
}

type section struct {
	part  Part
	field string
	value string
}

// Multipart assembles parts into one multipart/<SubType> body. Sections are
// written in the order they were added.
type Multipart struct {
	SubType  string
	Boundary string
	sections []section
}

// NewMultipart returns an empty container. An empty boundary is replaced
// by a generated one when the body is materialized.
func NewMultipart(subType, boundary string) *Multipart {
	return &Multipart{SubType: subType, Boundary: boundary}
}

// AddField adds a form field. Only valid for form-data.
func (m *Multipart) AddField(name, value string) error {
	if !IsFormData(m.SubType) {
		return errors.InvalidState("multipart/%s: form fields require multipart/form-data", m.SubType)
	}
	m.sections = append(m.sections, section{field: name, value: value})
	return nil
}

// AddPart adds a content part. In form-data the part is written under its
// FormName and FileName; other sub-types write anonymous sections.
func (m *Multipart) AddPart(p Part) error {
	if p == nil {
		return errors.InvalidState("multipart: part == null")
	}
	m.sections = append(m.sections, section{part: p})
	return nil
}

// Len returns the number of sections.
func (m *Multipart) Len() int { return len(m.sections) }

// Materialize writes every section into a buffered, replayable body.
func (m *Multipart) Materialize() (*Wire, error) {
	if strings.TrimSpace(m.SubType) == "" {
		return nil, errors.InvalidState("MultipartSubType == null")
	}
	subType := strings.ToLower(strings.TrimSpace(m.SubType))
	formData := IsFormData(subType)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	boundary := m.Boundary
	if boundary == "" {
		boundary = uuid.NewString()
	}
	if err := w.SetBoundary(boundary); err != nil {
		return nil, errors.InvalidState("invalid multipart boundary %q", boundary).WithCause(err)
	}

	for _, s := range m.sections {
		if s.part == nil {
			if err := w.WriteField(s.field, s.value); err != nil {
				return nil, errors.Internal(err)
			}
			continue
		}
		if err := writePart(w, s.part, formData); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Internal(err)
	}

	data := buf.Bytes()
	ct := mime.FormatMediaType("multipart/"+subType, map[string]string{"boundary": w.Boundary()})
	base := Base{}
	return base.finishBytes(contentType(ct), data)
}

func writePart(w *multipart.Writer, p Part, formData bool) error {
	wire, err := p.Materialize()
	if err != nil {
		return err
	}
	h := textproto.MIMEHeader{}
	for name, values := range wire.Header {
		h[name] = append([]string(nil), values...)
	}
	if formData && p.FormName() != "" {
		params := map[string]string{"name": p.FormName()}
		if p.FileName() != "" {
			params["filename"] = p.FileName()
		}
		h.Set("Content-Disposition", mime.FormatMediaType(FormDataSubType, params))
	}
	section, err := w.CreatePart(h)
	if err != nil {
		return errors.Internal(err)
	}
	if wire.Body != nil {
		if _, err := io.Copy(section, wire.Body); err != nil {
			return errors.TransportFault(err)
		}
	}
	return nil
}
