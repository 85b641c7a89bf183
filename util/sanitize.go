package util

import (
	"net/http"
	"strings"
)

// SanitizeEnvValue trims s and drops one pair of matching surrounding
// quotes, as left behind by hand-written .env files.
func SanitizeEnvValue(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, `'`} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// RedactHeaders returns a copy of h with the named headers masked. A value
// shaped like "Scheme credentials" keeps its scheme visible.
func RedactHeaders(h http.Header, names ...string) http.Header {
	out := h.Clone()
	for _, name := range names {
		values := out.Values(name)
		if len(values) == 0 {
			continue
		}
		masked := make([]string, 0, len(values))
		for _, v := range values {
			if scheme, _, ok := strings.Cut(v, " "); ok {
				masked = append(masked, scheme+" ***")
				continue
			}
			masked = append(masked, MaskSecret(v, 0))
		}
		out[http.CanonicalHeaderKey(name)] = masked
	}
	return out
}
