package header

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/httpapi/httpclient/overlay"
)

// CookieHeader is the wire name of the cookie header.
const CookieHeader = "Cookie"

// RequestHeaders is the typed header set of a request descriptor. Unset
// (nil or empty) fields are not written.
type RequestHeaders struct {
	Accept             []MediaTypeWithQuality
	AcceptCharset      []StringWithQuality
	AcceptEncoding     []StringWithQuality
	AcceptLanguage     []StringWithQuality
	Authorization      *Authentication
	ProxyAuthorization *Authentication
	CacheControl       *CacheControl
	Connection         []string
	ConnectionClose    *bool
	Date               *time.Time
	Expect             []NameValueWithParameters
	ExpectContinue     *bool
	From               string
	Host               string
	IfMatch            []EntityTag
	IfNoneMatch        []EntityTag
	IfModifiedSince    *time.Time
	IfUnmodifiedSince  *time.Time
	IfRange            *RangeCondition
	MaxForwards        *int
	Pragma             []NameValue
	Range              *Range
	Referer            string
	TE                 []TransferCodingWithQuality
	Trailer            []string
	TransferEncoding   []TransferCoding
	// TransferEncodingChunked adds "chunked" to Transfer-Encoding.
	TransferEncodingChunked *bool
	Upgrade                 []Product
	UserAgent               []ProductInfo
	Via                     []Via
	Warning                 []Warning

	// Custom holds single and multi-valued headers with force flags.
	Custom overlay.List[[]string]
	// Cookies holds discrete name=value pairs with force flags.
	Cookies overlay.List[string]
	// RawCookies holds preformatted cookie strings.
	RawCookies []string
}

// New returns an empty header set.
func New() *RequestHeaders { return &RequestHeaders{} }

// Add appends a single-valued custom header.
func (r *RequestHeaders) Add(name, value string, force bool) *RequestHeaders {
	r.Custom.Add(name, []string{value}, force)
	return r
}

// AddValues appends a multi-valued custom header.
func (r *RequestHeaders) AddValues(name string, values []string, force bool) *RequestHeaders {
	r.Custom.Add(name, values, force)
	return r
}

// AddCookie appends a discrete cookie pair. An empty name is ignored.
func (r *RequestHeaders) AddCookie(name, value string, force bool) *RequestHeaders {
	if blank(name) {
		return r
	}
	r.Cookies.Add(name, value, force)
	return r
}

// AddRawCookie appends a preformatted cookie string such as "a=1; b=2".
func (r *RequestHeaders) AddRawCookie(raw string) *RequestHeaders {
	if !blank(raw) {
		r.RawCookies = append(r.RawCookies, raw)
	}
	return r
}

// Apply writes the header set onto h. Well-known headers are added in
// declared order, then custom headers, then the Cookie header.
func (r *RequestHeaders) Apply(h http.Header) error {
	if r == nil {
		return nil
	}
	if err := r.applyWellKnown(h); err != nil {
		return err
	}
	r.Custom.Apply(
		func(name string) bool { return len(h.Values(name)) > 0 },
		func(name string, values []string) {
			h.Del(name)
			for _, v := range values {
				h.Add(name, v)
			}
		},
	)
	r.applyCookies(h)
	return nil
}

func (r *RequestHeaders) applyWellKnown(h http.Header) error {
	w := writer{h: h}

	for _, a := range r.Accept {
		w.add("Accept", a.format)
	}
	for _, s := range r.AcceptCharset {
		w.add("Accept-Charset", func() (string, error) { return s.format("Accept-Charset") })
	}
	for _, s := range r.AcceptEncoding {
		w.add("Accept-Encoding", func() (string, error) { return s.format("Accept-Encoding") })
	}
	for _, s := range r.AcceptLanguage {
		w.add("Accept-Language", func() (string, error) { return s.format("Accept-Language") })
	}
	if r.Authorization != nil {
		w.set("Authorization", r.Authorization.Format)
	}
	if r.ProxyAuthorization != nil {
		w.set("Proxy-Authorization", r.ProxyAuthorization.Format)
	}
	if r.CacheControl != nil {
		w.set("Cache-Control", r.CacheControl.Format)
	}
	for _, c := range r.Connection {
		w.addString("Connection", c)
	}
	if r.ConnectionClose != nil {
		w.toggle("Connection", "close", *r.ConnectionClose)
	}
	if r.Date != nil {
		w.setString("Date", formatDate(*r.Date))
	}
	for _, e := range r.Expect {
		w.add("Expect", func() (string, error) { return e.format("Expect") })
	}
	if r.ExpectContinue != nil {
		w.toggle("Expect", "100-continue", *r.ExpectContinue)
	}
	w.setString("From", r.From)
	w.setString("Host", r.Host)
	for _, e := range r.IfMatch {
		w.add("If-Match", e.Format)
	}
	for _, e := range r.IfNoneMatch {
		w.add("If-None-Match", e.Format)
	}
	if r.IfModifiedSince != nil {
		w.setString("If-Modified-Since", formatDate(*r.IfModifiedSince))
	}
	if r.IfUnmodifiedSince != nil {
		w.setString("If-Unmodified-Since", formatDate(*r.IfUnmodifiedSince))
	}
	if r.IfRange != nil {
		w.set("If-Range", r.IfRange.Format)
	}
	if r.MaxForwards != nil {
		w.setString("Max-Forwards", strconv.Itoa(*r.MaxForwards))
	}
	for _, p := range r.Pragma {
		w.add("Pragma", func() (string, error) { return p.format("Pragma") })
	}
	if r.Range != nil {
		w.set("Range", r.Range.Format)
	}
	w.setString("Referer", r.Referer)
	for _, t := range r.TE {
		w.add("TE", t.format)
	}
	for _, t := range r.Trailer {
		w.addString("Trailer", t)
	}
	for _, t := range r.TransferEncoding {
		w.add("Transfer-Encoding", func() (string, error) { return t.format("Transfer-Encoding") })
	}
	if r.TransferEncodingChunked != nil {
		w.toggle("Transfer-Encoding", "chunked", *r.TransferEncodingChunked)
	}
	for _, u := range r.Upgrade {
		w.add("Upgrade", u.Format)
	}
	if len(r.UserAgent) > 0 {
		// net/http only writes the first User-Agent value, so the product
		// list is sent as one space separated value.
		w.set("User-Agent", func() (string, error) {
			products := make([]string, 0, len(r.UserAgent))
			for _, p := range r.UserAgent {
				s, err := p.format()
				if err != nil {
					return "", err
				}
				products = append(products, s)
			}
			return strings.Join(products, " "), nil
		})
	}
	for _, v := range r.Via {
		w.add("Via", v.format)
	}
	for _, v := range r.Warning {
		w.add("Warning", v.format)
	}
	return w.err
}

// applyCookies reduces the discrete pairs per name, then writes one Cookie
// header: raw strings first, then the pairs, joined by "; ". An existing
// Cookie header is kept unless an entry forces.
func (r *RequestHeaders) applyCookies(h http.Header) {
	if len(r.Cookies) == 0 && len(r.RawCookies) == 0 {
		return
	}

	var names []string
	values := map[string]string{}
	force := false
	r.Cookies.Apply(
		func(name string) bool { _, ok := values[name]; return ok },
		func(name, value string) {
			if _, ok := values[name]; !ok {
				names = append(names, name)
			}
			values[name] = value
		},
	)
	for _, c := range r.Cookies {
		force = force || c.Force
	}

	if h.Get(CookieHeader) != "" && !force {
		return
	}

	parts := make([]string, 0, len(r.RawCookies)+len(names))
	parts = append(parts, r.RawCookies...)
	for _, name := range names {
		parts = append(parts, name+"="+values[name])
	}
	h.Set(CookieHeader, strings.Join(parts, "; "))
}

// writer accumulates the first formatting error and skips the rest.
type writer struct {
	h   http.Header
	err error
}

func (w *writer) format(fn func() (string, error)) (string, bool) {
	if w.err != nil {
		return "", false
	}
	s, err := fn()
	if err != nil {
		w.err = err
		return "", false
	}
	return s, s != ""
}

func (w *writer) add(name string, fn func() (string, error)) {
	if s, ok := w.format(fn); ok {
		w.h.Add(name, s)
	}
}

func (w *writer) set(name string, fn func() (string, error)) {
	if s, ok := w.format(fn); ok {
		w.h.Set(name, s)
	}
}

func (w *writer) addString(name, value string) {
	if w.err == nil && !blank(value) {
		w.h.Add(name, value)
	}
}

func (w *writer) setString(name, value string) {
	if w.err == nil && !blank(value) {
		w.h.Set(name, value)
	}
}

// toggle adds token to name when on, and removes it when off.
func (w *writer) toggle(name, token string, on bool) {
	if w.err != nil {
		return
	}
	values := w.h.Values(name)
	kept := values[:0:0]
	found := false
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), token) {
			found = true
			if !on {
				continue
			}
		}
		kept = append(kept, v)
	}
	if on && !found {
		kept = append(kept, token)
	}
	w.h.Del(name)
	for _, v := range kept {
		w.h.Add(name, v)
	}
}

// Clone returns a deep enough copy for per-request mutation: slices and
// overlay lists are copied, pointed-to values are shared.
func (r *RequestHeaders) Clone() *RequestHeaders {
	if r == nil {
		return New()
	}
	c := *r
	c.Custom = append(overlay.List[[]string](nil), r.Custom...)
	c.Cookies = append(overlay.List[string](nil), r.Cookies...)
	c.RawCookies = append([]string(nil), r.RawCookies...)
	return &c
}
