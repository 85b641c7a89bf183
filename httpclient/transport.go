package httpclient

import (
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/publicsuffix"

	"github.com/kbukum/httpapi/errors"
)

const defaultMaxRedirects = 10

// BuildTransport builds the HTTP transport described by the options.
func (o *Options) BuildTransport() (*http.Transport, error) {
	t := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       o.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		MaxConnsPerHost:       o.MaxConnectionsPerServer,
		DisableCompression:    o.AutomaticDecompression != nil && !*o.AutomaticDecompression,
	}
	if o.MaxResponseHeadersLength > 0 {
		t.MaxResponseHeaderBytes = int64(o.MaxResponseHeadersLength) * 1024
	}

	proxy, err := o.proxyFunc()
	if err != nil {
		return nil, err
	}
	t.Proxy = proxy

	if o.TLS.IsEnabled() {
		cfg, err := o.TLS.Build()
		if err != nil {
			return nil, errors.ConfigurationFault("httpclient %q: tls", o.ClientName).WithCause(err)
		}
		t.TLSClientConfig = cfg
	}
	if o.TrustAllServerCertificates {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		t.TLSClientConfig.InsecureSkipVerify = true
	}
	return t, nil
}

// proxyFunc resolves the proxy: none when UseProxy is false, the Proxy URL
// when set, else the HTTP_PROXY, HTTPS_PROXY and NO_PROXY environment.
func (o *Options) proxyFunc() (func(*http.Request) (*url.URL, error), error) {
	if o.UseProxy != nil && !*o.UseProxy {
		return nil, nil
	}
	if o.Proxy != "" {
		u, err := url.Parse(o.Proxy)
		if err != nil {
			return nil, errors.ConfigurationFault("httpclient %q: invalid proxy %q", o.ClientName, o.Proxy).WithCause(err)
		}
		return http.ProxyURL(u), nil
	}
	fromEnv := httpproxy.FromEnvironment().ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return fromEnv(req.URL)
	}, nil
}

// BuildHTTPClient builds the transport and wraps it with the cookie jar,
// redirect rules and network credentials of the options. Timeouts are per
// request, so the client itself has none.
func (o *Options) BuildHTTPClient() (*http.Client, error) {
	t, err := o.BuildTransport()
	if err != nil {
		return nil, err
	}
	c := &http.Client{Transport: t}
	if o.Credentials != nil || len(o.CredentialCache) > 0 {
		c.Transport = &credentialsTransport{
			base:        t,
			credentials: o.Credentials,
			cache:       o.CredentialCache,
			preemptive:  o.SendAuthorizationHeaderInRequest,
		}
	}

	if o.UseCookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, errors.Internal(err).WithDetail("operation", "cookie jar")
		}
		c.Jar = jar
	}

	allow := o.AllowAutoRedirect == nil || *o.AllowAutoRedirect
	limit := o.MaxAutomaticRedirections
	if limit <= 0 {
		limit = defaultMaxRedirects
	}
	c.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if !allow || len(via) > limit {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return c, nil
}

// credentialsTransport adds basic credentials: up front when preemptive,
// otherwise after a 401 with a Basic challenge, replaying the request once.
type credentialsTransport struct {
	base        http.RoundTripper
	credentials *Credentials
	cache       map[string]Credentials
	preemptive  bool
}

func (t *credentialsTransport) lookup(u *url.URL) (Credentials, bool) {
	if t.credentials != nil {
		return *t.credentials, true
	}
	if c, ok := t.cache[u.Host]; ok {
		return c, true
	}
	c, ok := t.cache[u.Hostname()]
	return c, ok
}

func (t *credentialsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	creds, ok := t.lookup(req.URL)
	if !ok || req.Header.Get("Authorization") != "" {
		return t.base.RoundTrip(req)
	}
	if t.preemptive {
		return t.base.RoundTrip(withBasicAuth(req, creds, req.Body))
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || !basicChallenge(resp.Header) {
		return resp, err
	}
	body := req.Body
	if body != nil && body != http.NoBody {
		if req.GetBody == nil {
			return resp, nil
		}
		if body, err = req.GetBody(); err != nil {
			return resp, nil
		}
	}
	discard(resp)
	return t.base.RoundTrip(withBasicAuth(req, creds, body))
}

func (t *credentialsTransport) CloseIdleConnections() {
	if c, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

func withBasicAuth(req *http.Request, creds Credentials, body io.ReadCloser) *http.Request {
	r := req.Clone(req.Context())
	r.Body = body
	r.SetBasicAuth(creds.Username, creds.Password)
	return r
}

func basicChallenge(h http.Header) bool {
	for _, v := range h.Values("WWW-Authenticate") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "basic") {
			return true
		}
	}
	return false
}
