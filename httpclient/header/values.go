package header

import (
	"encoding/base64"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/httpapi/errors"
)

func required(header, field string) error {
	return errors.InvalidState("%s: %s == null", header, field)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func formatQuality(q *float64) (string, error) {
	if q == nil {
		return "", nil
	}
	if *q < 0 || *q > 1 {
		return "", errors.InvalidState("quality %v out of range [0,1]", *q)
	}
	return ";q=" + strconv.FormatFloat(*q, 'f', -1, 64), nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// NameValue is a name with an optional value, as used in Pragma and
// Cache-Control extensions.
type NameValue struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value,omitempty" yaml:"value"`
}

func (nv NameValue) format(header string) (string, error) {
	if blank(nv.Name) {
		return "", required(header, "Name")
	}
	if blank(nv.Value) {
		return nv.Name, nil
	}
	return nv.Name + "=" + nv.Value, nil
}

func formatParams(header string, base string, params []NameValue) (string, error) {
	var b strings.Builder
	b.WriteString(base)
	for _, p := range params {
		s, err := p.format(header)
		if err != nil {
			return "", err
		}
		b.WriteString("; ")
		b.WriteString(s)
	}
	return b.String(), nil
}

// NameValueWithParameters is an Expect entry.
type NameValueWithParameters struct {
	NameValue
	Parameters []NameValue `json:"parameters,omitempty" yaml:"parameters"`
}

func (nv NameValueWithParameters) format(header string) (string, error) {
	base, err := nv.NameValue.format(header)
	if err != nil {
		return "", err
	}
	return formatParams(header, base, nv.Parameters)
}

// MediaType is a media type with optional charset and parameters.
type MediaType struct {
	MediaType  string      `json:"media_type" yaml:"media_type"`
	Charset    string      `json:"charset,omitempty" yaml:"charset"`
	Parameters []NameValue `json:"parameters,omitempty" yaml:"parameters"`
}

// Format renders the media type. MediaType is required.
func (m MediaType) Format() (string, error) {
	if blank(m.MediaType) {
		return "", required("Content-Type", "MediaType")
	}
	params := make(map[string]string, len(m.Parameters)+1)
	if !blank(m.Charset) {
		params["charset"] = m.Charset
	}
	for _, p := range m.Parameters {
		if blank(p.Name) {
			return "", required("Content-Type", "Parameter.Name")
		}
		params[p.Name] = p.Value
	}
	s := mime.FormatMediaType(m.MediaType, params)
	if s == "" {
		return "", errors.InvalidState("invalid media type %q", m.MediaType)
	}
	return s, nil
}

// MediaTypeWithQuality is an Accept entry.
type MediaTypeWithQuality struct {
	MediaType
	Quality *float64 `json:"quality,omitempty" yaml:"quality"`
}

func (m MediaTypeWithQuality) format() (string, error) {
	s, err := m.MediaType.Format()
	if err != nil {
		return "", err
	}
	q, err := formatQuality(m.Quality)
	if err != nil {
		return "", err
	}
	return s + q, nil
}

// StringWithQuality is an Accept-Charset, Accept-Encoding or Accept-Language entry.
type StringWithQuality struct {
	Value   string   `json:"value" yaml:"value"`
	Quality *float64 `json:"quality,omitempty" yaml:"quality"`
}

func (s StringWithQuality) format(header string) (string, error) {
	if blank(s.Value) {
		return "", required(header, "Value")
	}
	q, err := formatQuality(s.Quality)
	if err != nil {
		return "", err
	}
	return s.Value + q, nil
}

// Authentication is an Authorization or Proxy-Authorization credential.
type Authentication struct {
	Scheme    string `json:"scheme" yaml:"scheme"`
	Parameter string `json:"parameter,omitempty" yaml:"parameter"`
}

// Format renders "scheme [parameter]".
func (a Authentication) Format() (string, error) {
	if blank(a.Scheme) {
		return "", required("Authorization", "Scheme")
	}
	if blank(a.Parameter) {
		return a.Scheme, nil
	}
	return a.Scheme + " " + a.Parameter, nil
}

// CacheControl holds Cache-Control directives. Unset fields are omitted.
type CacheControl struct {
	NoCache         *bool          `json:"no_cache,omitempty"`
	NoCacheHeaders  []string       `json:"no_cache_headers,omitempty"`
	NoStore         *bool          `json:"no_store,omitempty"`
	MaxAge          *time.Duration `json:"max_age,omitempty"`
	SharedMaxAge    *time.Duration `json:"s_maxage,omitempty"`
	MaxStale        *bool          `json:"max_stale,omitempty"`
	MaxStaleLimit   *time.Duration `json:"max_stale_limit,omitempty"`
	MinFresh        *time.Duration `json:"min_fresh,omitempty"`
	NoTransform     *bool          `json:"no_transform,omitempty"`
	OnlyIfCached    *bool          `json:"only_if_cached,omitempty"`
	Public          *bool          `json:"public,omitempty"`
	Private         *bool          `json:"private,omitempty"`
	PrivateHeaders  []string       `json:"private_headers,omitempty"`
	MustRevalidate  *bool          `json:"must_revalidate,omitempty"`
	ProxyRevalidate *bool          `json:"proxy_revalidate,omitempty"`
	Extensions      []NameValue    `json:"extensions,omitempty"`
}

func isTrue(b *bool) bool { return b != nil && *b }

func seconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}

func flagWithFields(name string, set bool, fields []string) string {
	if len(fields) > 0 {
		return name + `="` + strings.Join(fields, ", ") + `"`
	}
	if set {
		return name
	}
	return ""
}

// Format renders the directives joined by ", ".
func (c CacheControl) Format() (string, error) {
	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	add(flagWithFields("no-cache", isTrue(c.NoCache), c.NoCacheHeaders))
	if isTrue(c.NoStore) {
		add("no-store")
	}
	if c.MaxAge != nil {
		add("max-age=" + seconds(*c.MaxAge))
	}
	if c.SharedMaxAge != nil {
		add("s-maxage=" + seconds(*c.SharedMaxAge))
	}
	switch {
	case c.MaxStaleLimit != nil:
		add("max-stale=" + seconds(*c.MaxStaleLimit))
	case isTrue(c.MaxStale):
		add("max-stale")
	}
	if c.MinFresh != nil {
		add("min-fresh=" + seconds(*c.MinFresh))
	}
	if isTrue(c.NoTransform) {
		add("no-transform")
	}
	if isTrue(c.OnlyIfCached) {
		add("only-if-cached")
	}
	if isTrue(c.Public) {
		add("public")
	}
	add(flagWithFields("private", isTrue(c.Private), c.PrivateHeaders))
	if isTrue(c.MustRevalidate) {
		add("must-revalidate")
	}
	if isTrue(c.ProxyRevalidate) {
		add("proxy-revalidate")
	}
	for _, ext := range c.Extensions {
		s, err := ext.format("Cache-Control")
		if err != nil {
			return "", err
		}
		add(s)
	}
	return strings.Join(parts, ", "), nil
}

// EntityTag is an If-Match or If-None-Match entry.
type EntityTag struct {
	Tag    string `json:"tag" yaml:"tag"`
	IsWeak bool   `json:"is_weak,omitempty" yaml:"is_weak"`
}

// Format renders the quoted tag, prefixed with W/ when weak. The tag "*"
// is rendered as is.
func (e EntityTag) Format() (string, error) {
	if blank(e.Tag) {
		return "", required("EntityTag", "Tag")
	}
	tag := e.Tag
	if tag == "*" {
		return tag, nil
	}
	if !strings.HasPrefix(tag, `"`) {
		tag = `"` + tag + `"`
	}
	if e.IsWeak {
		return "W/" + tag, nil
	}
	return tag, nil
}

// RangeCondition is an If-Range value: an entity tag or a date.
type RangeCondition struct {
	EntityTag *EntityTag `json:"entity_tag,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
}

// Format prefers the entity tag over the date.
func (r RangeCondition) Format() (string, error) {
	switch {
	case r.EntityTag != nil:
		return r.EntityTag.Format()
	case r.Date != nil:
		return formatDate(*r.Date), nil
	default:
		return "", required("If-Range", "EntityTag && Date")
	}
}

// RangeItem is one from-to window; either bound may be omitted.
type RangeItem struct {
	From *int64 `json:"from,omitempty"`
	To   *int64 `json:"to,omitempty"`
}

func (r RangeItem) format() (string, error) {
	if r.From == nil && r.To == nil {
		return "", required("Range", "From && To")
	}
	var b strings.Builder
	if r.From != nil {
		b.WriteString(strconv.FormatInt(*r.From, 10))
	}
	b.WriteByte('-')
	if r.To != nil {
		b.WriteString(strconv.FormatInt(*r.To, 10))
	}
	return b.String(), nil
}

// Range is a Range request header. Unit defaults to "bytes".
type Range struct {
	Unit   string      `json:"unit,omitempty"`
	From   *int64      `json:"from,omitempty"`
	To     *int64      `json:"to,omitempty"`
	Ranges []RangeItem `json:"ranges,omitempty"`
}

// Format renders "unit=a-b, c-d".
func (r Range) Format() (string, error) {
	unit := r.Unit
	if blank(unit) {
		unit = "bytes"
	}
	items := r.Ranges
	if r.From != nil || r.To != nil {
		items = append([]RangeItem{{From: r.From, To: r.To}}, items...)
	}
	if len(items) == 0 {
		return "", required("Range", "Ranges")
	}
	specs := make([]string, 0, len(items))
	for _, it := range items {
		s, err := it.format()
		if err != nil {
			return "", err
		}
		specs = append(specs, s)
	}
	return unit + "=" + strings.Join(specs, ", "), nil
}

// TransferCoding is a Transfer-Encoding entry.
type TransferCoding struct {
	Value      string      `json:"value" yaml:"value"`
	Parameters []NameValue `json:"parameters,omitempty" yaml:"parameters"`
}

func (t TransferCoding) format(header string) (string, error) {
	if blank(t.Value) {
		return "", required(header, "Value")
	}
	return formatParams(header, t.Value, t.Parameters)
}

// TransferCodingWithQuality is a TE entry.
type TransferCodingWithQuality struct {
	TransferCoding
	Quality *float64 `json:"quality,omitempty" yaml:"quality"`
}

func (t TransferCodingWithQuality) format() (string, error) {
	s, err := t.TransferCoding.format("TE")
	if err != nil {
		return "", err
	}
	q, err := formatQuality(t.Quality)
	if err != nil {
		return "", err
	}
	return s + q, nil
}

// Product is an Upgrade entry or the product half of a User-Agent entry.
type Product struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version"`
}

// Format renders "name[/version]".
func (p Product) Format() (string, error) {
	if blank(p.Name) {
		return "", required("Product", "Name")
	}
	if blank(p.Version) {
		return p.Name, nil
	}
	return p.Name + "/" + p.Version, nil
}

// ProductInfo is a User-Agent entry: a product or a comment.
type ProductInfo struct {
	Product *Product `json:"product,omitempty" yaml:"product"`
	Comment string   `json:"comment,omitempty" yaml:"comment"`
}

func (p ProductInfo) format() (string, error) {
	switch {
	case p.Product != nil:
		return p.Product.Format()
	case !blank(p.Comment):
		if strings.HasPrefix(p.Comment, "(") {
			return p.Comment, nil
		}
		return "(" + p.Comment + ")", nil
	default:
		return "", required("User-Agent", "Product && Comment")
	}
}

// Via is a Via entry.
type Via struct {
	ProtocolName    string `json:"protocol_name,omitempty"`
	ProtocolVersion string `json:"protocol_version"`
	ReceivedBy      string `json:"received_by"`
	Comment         string `json:"comment,omitempty"`
}

func (v Via) format() (string, error) {
	if blank(v.ProtocolVersion) {
		return "", required("Via", "ProtocolVersion")
	}
	if blank(v.ReceivedBy) {
		return "", required("Via", "ReceivedBy")
	}
	s := v.ProtocolVersion
	if !blank(v.ProtocolName) {
		s = v.ProtocolName + "/" + s
	}
	s += " " + v.ReceivedBy
	if !blank(v.Comment) {
		s += " " + v.Comment
	}
	return s, nil
}

// Warning is a Warning entry.
type Warning struct {
	Code  *int       `json:"code"`
	Agent string     `json:"agent"`
	Text  string     `json:"text"`
	Date  *time.Time `json:"date,omitempty"`
}

func (w Warning) format() (string, error) {
	if w.Code == nil {
		return "", required("Warning", "Code")
	}
	if blank(w.Agent) {
		return "", required("Warning", "Agent")
	}
	if blank(w.Text) {
		return "", required("Warning", "Text")
	}
	s := strconv.Itoa(*w.Code) + " " + w.Agent + " " + strconv.Quote(w.Text)
	if w.Date != nil {
		s += ` "` + formatDate(*w.Date) + `"`
	}
	return s, nil
}

// ContentDisposition is a Content-Disposition value. DispositionType is required.
type ContentDisposition struct {
	DispositionType  string      `json:"disposition_type"`
	Name             string      `json:"name,omitempty"`
	FileName         string      `json:"file_name,omitempty"`
	FileNameStar     string      `json:"file_name_star,omitempty"`
	CreationDate     *time.Time  `json:"creation_date,omitempty"`
	ModificationDate *time.Time  `json:"modification_date,omitempty"`
	ReadDate         *time.Time  `json:"read_date,omitempty"`
	Size             *int64      `json:"size,omitempty"`
	Parameters       []NameValue `json:"parameters,omitempty"`
}

// Format renders the disposition. Non-ASCII file names are encoded per RFC 2231.
func (d ContentDisposition) Format() (string, error) {
	if blank(d.DispositionType) {
		return "", required("Content-Disposition", "DispositionType")
	}
	params := map[string]string{}
	if !blank(d.Name) {
		params["name"] = d.Name
	}
	if !blank(d.FileName) {
		params["filename"] = d.FileName
	}
	if !blank(d.FileNameStar) && blank(d.FileName) {
		// mime emits filename*=utf-8''... for non-ASCII values.
		params["filename"] = d.FileNameStar
	}
	for key, t := range map[string]*time.Time{
		"creation-date":     d.CreationDate,
		"modification-date": d.ModificationDate,
		"read-date":         d.ReadDate,
	} {
		if t != nil {
			params[key] = formatDate(*t)
		}
	}
	if d.Size != nil {
		params["size"] = strconv.FormatInt(*d.Size, 10)
	}
	for _, p := range d.Parameters {
		if blank(p.Name) {
			return "", required("Content-Disposition", "Parameter.Name")
		}
		params[p.Name] = p.Value
	}
	s := mime.FormatMediaType(d.DispositionType, params)
	if s == "" {
		return "", errors.InvalidState("invalid content disposition %q", d.DispositionType)
	}
	return s, nil
}

// ContentRange is a Content-Range value.
type ContentRange struct {
	Unit   string `json:"unit,omitempty"`
	From   *int64 `json:"from,omitempty"`
	To     *int64 `json:"to,omitempty"`
	Length *int64 `json:"length,omitempty"`
}

// Format renders "unit from-to/length", "unit from-to/*" or "unit */length".
func (r ContentRange) Format() (string, error) {
	unit := r.Unit
	if blank(unit) {
		unit = "bytes"
	}
	length := "*"
	if r.Length != nil {
		length = strconv.FormatInt(*r.Length, 10)
	}
	if r.From != nil {
		if r.To == nil {
			return "", errors.InvalidState("Content-Range: From == %d && To == null", *r.From)
		}
		return unit + " " + strconv.FormatInt(*r.From, 10) + "-" + strconv.FormatInt(*r.To, 10) + "/" + length, nil
	}
	if r.Length == nil {
		return "", required("Content-Range", "From && Length")
	}
	return unit + " */" + length, nil
}

func formatMD5(sum []byte) string {
	return base64.StdEncoding.EncodeToString(sum)
}
