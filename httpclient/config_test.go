package httpclient

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpapi/config"
	"github.com/kbukum/httpapi/di"
	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/httpclient/content"
	"github.com/kbukum/httpapi/resilience"
	"github.com/kbukum/httpapi/security"
	"github.com/kbukum/httpapi/util"
)

type namedLogger struct{ name string }

func (n *namedLogger) LogRequest(context.Context, RequestSnapshot, *ContentSnapshot, Call) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (n *namedLogger) LogResponse(context.Context, uuid.UUID, ResponseSnapshot, *ContentSnapshot, Call) error {
	return nil
}

func TestOptions_ApplyDefaults(t *testing.T) {
	o := Options{ClientName: "billing", CircuitBreaker: &resilience.CircuitBreakerConfig{}}
	o.ApplyDefaults()

	if o.SourceSystemName == "" || o.UserAgent == "" {
		t.Errorf("expected source system and user agent defaults, got %q %q", o.SourceSystemName, o.UserAgent)
	}
	if o.AutomaticDecompression == nil || !*o.AutomaticDecompression {
		t.Error("expected automatic decompression on by default")
	}
	if o.MaxLoggedBodySize != "64KB" || o.maxLoggedBody() != 64*1024 {
		t.Errorf("unexpected logged body cap %q", o.MaxLoggedBodySize)
	}
	if o.DefaultLoggerKey != di.Keys.RequestResponseLogger {
		t.Errorf("unexpected default logger key %q", o.DefaultLoggerKey)
	}
	if o.CircuitBreaker.Name != "billing" {
		t.Errorf("expected breaker named after the client, got %q", o.CircuitBreaker.Name)
	}
}

func TestNew_LeavesCallerResilienceConfigsUntouched(t *testing.T) {
	cb := &resilience.CircuitBreakerConfig{MaxFailures: 3}
	rl := &resilience.RateLimiterConfig{Rate: 100, Burst: 10}
	bh := &resilience.BulkheadConfig{MaxConcurrent: 2}
	shared := Options{BaseAddress: "https://billing.test", CircuitBreaker: cb, RateLimiter: rl, Bulkhead: bh}

	for _, name := range []string{"billing", "orders"} {
		opts := shared
		opts.ClientName = name
		c, err := New(opts)
		if err != nil {
			t.Fatalf("new %s: %v", name, err)
		}
		if got := c.Options().CircuitBreaker.Name; got != name {
			t.Errorf("expected the %s breaker named after its client, got %q", name, got)
		}
		if got := c.Options().Bulkhead.Name; got != name {
			t.Errorf("expected the %s bulkhead named after its client, got %q", name, got)
		}
	}
	if cb.Name != "" || rl.Name != "" || bh.Name != "" {
		t.Errorf("expected the caller's configs unnamed, got %q %q %q", cb.Name, rl.Name, bh.Name)
	}
}

func TestOptions_Validate(t *testing.T) {
	valid := func() Options {
		o := Options{ClientName: "billing", BaseAddress: "https://billing.test"}
		o.ApplyDefaults()
		return o
	}
	tests := []struct {
		name   string
		mutate func(o *Options)
		errMsg string
	}{
		{"valid", func(*Options) {}, ""},
		{"missing name", func(o *Options) { o.ClientName = "" }, "client_name"},
		{"relative base address", func(o *Options) { o.BaseAddress = "billing.test" }, "base_address"},
		{"negative redirects", func(o *Options) { o.MaxAutomaticRedirections = -1 }, "max_automatic_redirections"},
		{"bad disabled prefix", func(o *Options) { o.LogDisabledURIs = []string{"health"} }, "log_disabled_uris"},
		{"bad policy prefix", func(o *Options) { o.Policies.Set("orders", PolicyFunc(nil)) }, "policies"},
		{"credentials and cache", func(o *Options) {
			o.Credentials = &Credentials{Username: "u"}
			o.CredentialCache = map[string]Credentials{"h": {Username: "u"}}
		}, "credentials"},
		{"bad tls", func(o *Options) { o.TLS = &security.TLSConfig{CertFile: "c.pem"} }, "tls"},
		{"bad auth", func(o *Options) { o.Auth = &AuthConfig{Type: AuthBearer} }, "auth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(&o)
			err := o.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.IsCode(err, errors.ErrCodeConfigurationFault) {
				t.Fatalf("expected CONFIGURATION_FAULT, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected %q in %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestOptions_ConfigureStaticRequestParams(t *testing.T) {
	o := Options{
		ClientName:              "billing",
		StaticQueryStrings:      "tenant=acme",
		ForceStaticQueryStrings: false,
		Auth:                    BearerAuth("static"),
	}
	o.StaticHeaders.Add("X-Env", "prod", false).Add("X-Trace", "on", true)
	o.StaticHeaderCollections.Add("X-Tags", []string{"a", "b"}, false)
	o.StaticCookies.Add("region", "eu", false)
	o.StaticFormData.Add("source", "static", true)
	o.ApplyDefaults()

	req, _ := NewRequestBuilder().
		Post("invoices").
		QueryString("page=1", false).
		AddHeader("X-Env", "dev", false).
		AddHeader("X-Trace", "off", false).
		AddFormData("source", "request", false).
		AddText(content.NewText("memo"), true).
		Multipart("form-data", "").
		Build()
	req.BaseAddress = "http://billing.test"

	if err := o.ConfigureStaticRequestParams(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.QueryString != "?page=1" {
		t.Errorf("non-forcing static query should not replace, got %q", req.QueryString)
	}
	if len(req.FormData) != 2 {
		t.Errorf("forcing static form data should append, got %v", req.FormData)
	}

	httpReq, err := req.ToHTTPRequest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checks := map[string]string{
		"X-Env":         "dev",
		"X-Trace":       "on",
		"Cookie":        "region=eu",
		"Authorization": "Bearer static",
		"User-Agent":    o.UserAgent,
	}
	for name, want := range checks {
		if got := httpReq.Header.Get(name); got != want {
			t.Errorf("%s: expected %q, got %q", name, want, got)
		}
	}
	if got := httpReq.Header.Values("X-Tags"); len(got) != 2 {
		t.Errorf("expected both collection values, got %v", got)
	}
}

func TestOptions_StaticQueryForced(t *testing.T) {
	o := Options{ClientName: "billing", StaticQueryStrings: "v=2", ForceStaticQueryStrings: true}
	req := NewRequest()
	req.QueryString = "?v=1"
	if err := o.ConfigureStaticRequestParams(req); err != nil {
		t.Fatal(err)
	}
	if req.QueryString != "?v=2" {
		t.Errorf("expected the forced query, got %q", req.QueryString)
	}
}

func TestOptions_GetLogger(t *testing.T) {
	fromServices := &namedLogger{name: "services"}
	fromMap := &namedLogger{name: "map"}

	o := Options{ClientName: "billing", LogDisabledURIs: []string{"/health"}}
	o.Loggers.Set("/api", fromMap)
	o.ApplyDefaults()

	empty := di.NewContainer()
	withDefault := di.NewContainer()
	if err := withDefault.RegisterSingleton(di.Keys.RequestResponseLogger, RequestResponseLogger(fromServices)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		uri      string
		services di.Container
		want     string
	}{
		{"disabled wins over services", "/health/live", withDefault, ""},
		{"services before map", "/api/x", withDefault, "services"},
		{"map", "/api/x", empty, "map"},
		{"no match", "/other", empty, ""},
		{"nil services", "/api/x", nil, "map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := o.GetLogger(tt.uri, tt.services)
			got := ""
			if ok {
				got = l.(*namedLogger).name
			}
			if got != tt.want {
				t.Errorf("expected logger %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOptions_ResiliencePolicy(t *testing.T) {
	o := Options{ClientName: "billing"}
	if o.resiliencePolicy() != nil {
		t.Fatal("expected no policy without resilience settings")
	}
	o.Retry = &resilience.RetryConfig{MaxAttempts: 2}
	o.CircuitBreaker = &resilience.CircuitBreakerConfig{MaxFailures: 3}
	o.ApplyDefaults()

	chain, ok := o.resiliencePolicy().(PolicyChain)
	if !ok || len(chain) != 2 {
		t.Fatalf("expected a chain of 2 policies, got %T", o.resiliencePolicy())
	}
	if _, ok := chain[0].(*RetryPolicy); !ok {
		t.Errorf("expected retry outermost, got %T", chain[0])
	}
	if cbs := circuitBreakers(chain); len(cbs) != 1 || cbs[0].Name() != "billing" {
		t.Errorf("unexpected breakers %v", cbs)
	}
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yaml := `
http_client:
  billing:
    base_address: https://billing.test
    static_query_strings: tenant=acme
    log_disabled_uris: ["/health"]
    static_headers:
      - key: X-Env
        value: prod
        force: true
    retry:
      max_attempts: 4
      initial_backoff: 50ms
    auth:
      type: bearer
      token: t0k
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	o, err := LoadOptions("orders", "Billing", config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ClientName != "Billing" || o.BaseAddress != "https://billing.test" {
		t.Errorf("unexpected options %q %q", o.ClientName, o.BaseAddress)
	}
	if o.Retry == nil || o.Retry.MaxAttempts != 4 || o.Retry.InitialBackoff != 50*time.Millisecond {
		t.Errorf("unexpected retry %+v", o.Retry)
	}
	if len(o.StaticHeaders) != 1 || o.StaticHeaders[0].Key != "X-Env" || !o.StaticHeaders[0].Force {
		t.Errorf("unexpected static headers %+v", o.StaticHeaders)
	}
	if o.Auth == nil || o.Auth.Type != AuthBearer || o.UserAgent == "" {
		t.Errorf("expected auth and defaults, got %+v", o.Auth)
	}

	if _, err := LoadOptions("orders", "missing", config.WithConfigFile(path)); !errors.IsCode(err, errors.ErrCodeConfigurationFault) {
		t.Errorf("expected CONFIGURATION_FAULT for an unknown client, got %v", err)
	}
}

func TestOptions_BuildTransport(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/orders", nil)
	t.Setenv("HTTPS_PROXY", "http://env-proxy:3128")
	t.Setenv("NO_PROXY", "")

	tests := []struct {
		name      string
		opts      Options
		wantProxy string
	}{
		{"environment", Options{}, "http://env-proxy:3128"},
		{"explicit", Options{Proxy: "http://proxy.internal:8080"}, "http://proxy.internal:8080"},
		{"disabled", Options{Proxy: "http://proxy.internal:8080", UseProxy: util.Ptr(false)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.ClientName = "billing"
			tt.opts.ApplyDefaults()
			tr, err := tt.opts.BuildTransport()
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantProxy == "" {
				if tr.Proxy != nil {
					t.Error("expected no proxy")
				}
				return
			}
			u, err := tr.Proxy(req)
			if err != nil || u == nil || u.String() != tt.wantProxy {
				t.Errorf("expected proxy %s, got %v, %v", tt.wantProxy, u, err)
			}
		})
	}
}

func TestOptions_BuildTransportKnobs(t *testing.T) {
	o := Options{
		ClientName:                 "billing",
		AutomaticDecompression:     util.Ptr(false),
		MaxResponseHeadersLength:   8,
		MaxConnectionsPerServer:    4,
		TrustAllServerCertificates: true,
	}
	o.ApplyDefaults()
	tr, err := o.BuildTransport()
	if err != nil {
		t.Fatal(err)
	}
	if !tr.DisableCompression {
		t.Error("expected decompression off")
	}
	if tr.MaxResponseHeaderBytes != 8*1024 || tr.MaxConnsPerHost != 4 {
		t.Errorf("unexpected limits %d/%d", tr.MaxResponseHeaderBytes, tr.MaxConnsPerHost)
	}
	if tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Error("expected certificate checks off")
	}
	if tr.IdleConnTimeout != defaultIdleConnTimeout {
		t.Errorf("expected the default idle timeout, got %v", tr.IdleConnTimeout)
	}

	bad := Options{ClientName: "billing", Proxy: "://nope"}
	if _, err := bad.BuildTransport(); !errors.IsCode(err, errors.ErrCodeConfigurationFault) {
		t.Errorf("expected CONFIGURATION_FAULT for a bad proxy, got %v", err)
	}
}
