package header

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/httpapi/httpclient/overlay"
)

// ContentHeaders are the headers declared on a content part.
type ContentHeaders struct {
	Allow              []string
	ContentDisposition *ContentDisposition
	ContentEncoding    []string
	ContentLanguage    []string
	ContentLength      *int64
	ContentLocation    string
	ContentMD5         []byte
	ContentRange       *ContentRange
	ContentType        *MediaType
	Expires            *time.Time
	LastModified       *time.Time
	// Extra holds additional content headers with force flags.
	Extra overlay.List[string]
}

// Apply overlays the declared headers onto h. Single-valued headers replace
// what h holds; list headers are appended.
func (c *ContentHeaders) Apply(h http.Header) error {
	if c == nil {
		return nil
	}
	w := writer{h: h}
	for _, a := range c.Allow {
		w.addString("Allow", a)
	}
	if c.ContentDisposition != nil {
		w.set("Content-Disposition", c.ContentDisposition.Format)
	}
	for _, e := range c.ContentEncoding {
		w.addString("Content-Encoding", e)
	}
	for _, l := range c.ContentLanguage {
		w.addString("Content-Language", l)
	}
	if c.ContentLength != nil {
		w.setString("Content-Length", strconv.FormatInt(*c.ContentLength, 10))
	}
	w.setString("Content-Location", c.ContentLocation)
	if len(c.ContentMD5) > 0 {
		w.setString("Content-MD5", formatMD5(c.ContentMD5))
	}
	if c.ContentRange != nil {
		w.set("Content-Range", c.ContentRange.Format)
	}
	if c.ContentType != nil {
		w.set("Content-Type", c.ContentType.Format)
	}
	if c.Expires != nil {
		w.setString("Expires", formatDate(*c.Expires))
	}
	if c.LastModified != nil {
		w.setString("Last-Modified", formatDate(*c.LastModified))
	}
	if w.err != nil {
		return w.err
	}
	c.Extra.Apply(
		func(name string) bool { return h.Get(name) != "" },
		func(name, value string) { h.Set(name, value) },
	)
	return nil
}

// IsContentHeader reports whether name belongs to the entity rather than
// the request.
func IsContentHeader(name string) bool {
	switch http.CanonicalHeaderKey(name) {
	case "Allow", "Content-Disposition", "Content-Encoding", "Content-Language",
		"Content-Length", "Content-Location", "Content-Md5", "Content-Range",
		"Content-Type", "Expires", "Last-Modified":
		return true
	}
	return false
}

// SplitContent moves the content headers of src into a new header and
// returns both halves.
func SplitContent(src http.Header) (request, content http.Header) {
	request, content = http.Header{}, http.Header{}
	for name, values := range src {
		dst := request
		if IsContentHeader(name) {
			dst = content
		}
		dst[name] = append([]string(nil), values...)
	}
	return request, content
}
