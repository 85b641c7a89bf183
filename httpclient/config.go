package httpclient

import (
	"strings"
	"time"

	"github.com/kbukum/httpapi/config"
	"github.com/kbukum/httpapi/di"
	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/httpclient/overlay"
	"github.com/kbukum/httpapi/observability"
	"github.com/kbukum/httpapi/resilience"
	"github.com/kbukum/httpapi/security"
	"github.com/kbukum/httpapi/util"
	"github.com/kbukum/httpapi/validation"
	"github.com/kbukum/httpapi/version"
)

const (
	defaultMaxLoggedBodySize = "64KB"
	defaultIdleConnTimeout   = 90 * time.Second
)

// Credentials are basic network credentials.
type Credentials struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Options configures a Client: static request parameters, transport
// settings, and the policy and logger lookups.
type Options struct {
	ClientName       string `yaml:"client_name" mapstructure:"client_name" validate:"required"`
	SourceSystemName string `yaml:"source_system_name" mapstructure:"source_system_name"`
	BaseAddress      string `yaml:"base_address" mapstructure:"base_address" validate:"http_url"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`

	StaticQueryStrings      string                 `yaml:"static_query_strings" mapstructure:"static_query_strings"`
	ForceStaticQueryStrings bool                   `yaml:"force_static_query_strings" mapstructure:"force_static_query_strings"`
	StaticHeaders           overlay.List[string]   `yaml:"static_headers" mapstructure:"static_headers"`
	StaticHeaderCollections overlay.List[[]string] `yaml:"static_header_collections" mapstructure:"static_header_collections"`
	StaticCookies           overlay.List[string]   `yaml:"static_cookies" mapstructure:"static_cookies"`
	StaticFormData          overlay.List[string]   `yaml:"static_form_data" mapstructure:"static_form_data"`

	LogRequestBody  bool `yaml:"log_request_body" mapstructure:"log_request_body"`
	LogResponseBody bool `yaml:"log_response_body" mapstructure:"log_response_body"`
	// MaxLoggedBodySize caps logged bodies, e.g. "64KB". "0" logs them whole.
	MaxLoggedBodySize string `yaml:"max_logged_body_size" mapstructure:"max_logged_body_size"`

	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`

	// AutomaticDecompression defaults to on.
	AutomaticDecompression *bool  `yaml:"automatic_decompression" mapstructure:"automatic_decompression"`
	Proxy                  string `yaml:"proxy" mapstructure:"proxy" validate:"http_url"`
	// UseProxy nil means the proxy from the environment.
	UseProxy                   *bool                  `yaml:"use_proxy" mapstructure:"use_proxy"`
	TrustAllServerCertificates bool                   `yaml:"trust_all_server_certificates" mapstructure:"trust_all_server_certificates"`
	TLS                        *security.TLSConfig    `yaml:"tls" mapstructure:"tls"`
	UseCookies                 bool                   `yaml:"use_cookies" mapstructure:"use_cookies"`
	Credentials                *Credentials           `yaml:"credentials" mapstructure:"credentials"`
	CredentialCache            map[string]Credentials `yaml:"credential_cache" mapstructure:"credential_cache"`
	// SendAuthorizationHeaderInRequest sends basic credentials up front
	// instead of waiting for a 401 challenge.
	SendAuthorizationHeaderInRequest bool `yaml:"send_authorization_header_in_request" mapstructure:"send_authorization_header_in_request"`
	// MaxResponseHeadersLength is in kilobytes.
	MaxResponseHeadersLength int           `yaml:"max_response_headers_length" mapstructure:"max_response_headers_length" validate:"gte=0"`
	MaxConnectionsPerServer  int           `yaml:"max_connections_per_server" mapstructure:"max_connections_per_server" validate:"gte=0"`
	MaxAutomaticRedirections int           `yaml:"max_automatic_redirections" mapstructure:"max_automatic_redirections" validate:"gte=0"`
	AllowAutoRedirect        *bool         `yaml:"allow_auto_redirect" mapstructure:"allow_auto_redirect"`
	IdleConnTimeout          time.Duration `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout"`

	Policies PrefixMap[Policy]                `yaml:"-" mapstructure:"-"`
	Loggers  PrefixMap[RequestResponseLogger] `yaml:"-" mapstructure:"-"`
	// LogDisabledURIs are prefixes for which no logger runs.
	LogDisabledURIs []string `yaml:"log_disabled_uris" mapstructure:"log_disabled_uris"`
	// DefaultLoggerKey is resolved from the call's services before Loggers.
	DefaultLoggerKey string    `yaml:"default_logger_key" mapstructure:"default_logger_key"`
	ErrorSink        ErrorSink `yaml:"-" mapstructure:"-"`

	// Resilience settings build the wildcard policy when Policies is empty.
	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	Bulkhead       *resilience.BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (o *Options) ApplyDefaults() {
	if o.SourceSystemName == "" {
		o.SourceSystemName = observability.DefaultSourceSystemName
	}
	if o.UserAgent == "" {
		o.UserAgent = version.UserAgent()
	}
	if o.MaxLoggedBodySize == "" {
		o.MaxLoggedBodySize = defaultMaxLoggedBodySize
	}
	if o.AutomaticDecompression == nil {
		o.AutomaticDecompression = util.Ptr(true)
	}
	if o.IdleConnTimeout <= 0 {
		o.IdleConnTimeout = defaultIdleConnTimeout
	}
	if o.DefaultLoggerKey == "" {
		o.DefaultLoggerKey = di.Keys.RequestResponseLogger
	}
	// The resilience configs may be shared with the caller, so names are
	// filled in on copies.
	if o.CircuitBreaker != nil && o.CircuitBreaker.Name == "" {
		cb := *o.CircuitBreaker
		cb.Name = o.ClientName
		o.CircuitBreaker = &cb
	}
	if o.RateLimiter != nil && o.RateLimiter.Name == "" {
		rl := *o.RateLimiter
		rl.Name = o.ClientName
		o.RateLimiter = &rl
	}
	if o.Bulkhead != nil && o.Bulkhead.Name == "" {
		bh := *o.Bulkhead
		bh.Name = o.ClientName
		o.Bulkhead = &bh
	}
}

// Validate checks the options. Any failure is a CONFIGURATION_FAULT.
func (o *Options) Validate() error {
	v := validation.New()
	v.Merge("", validation.Validate(o))
	v.Custom(o.Credentials == nil || len(o.CredentialCache) == 0,
		"credentials", "credentials and credential_cache are mutually exclusive")
	for _, prefix := range o.LogDisabledURIs {
		v.URIPrefix("log_disabled_uris", prefix)
	}
	for _, prefix := range o.Policies.Prefixes() {
		v.URIPrefix("policies", prefix)
	}
	for _, prefix := range o.Loggers.Prefixes() {
		v.URIPrefix("loggers", prefix)
	}
	v.Merge("tls", o.TLS.Validate())
	v.Merge("auth", o.Auth.Validate())

	if appErr := v.Validate(); appErr != nil {
		return errors.ConfigurationFault("httpclient %q: %s", o.ClientName, appErr.Message).
			WithCause(appErr).
			WithDetails(appErr.Details)
	}
	return nil
}

// ConfigureStaticRequestParams layers the static parameters onto req with
// the same force semantics as the builder: the query string, headers,
// header collections and cookies, form data, the Auth header and the
// default User-Agent.
func (o *Options) ConfigureStaticRequestParams(req *Request) error {
	b := BuilderFor(req)
	if o.StaticQueryStrings != "" {
		b.QueryString(o.StaticQueryStrings, o.ForceStaticQueryStrings)
	}
	for _, e := range o.StaticHeaders {
		req.Headers.Add(e.Key, e.Value, e.Force)
	}
	for _, e := range o.StaticHeaderCollections {
		req.Headers.AddValues(e.Key, e.Value, e.Force)
	}
	for _, e := range o.StaticCookies {
		req.Headers.AddCookie(e.Key, e.Value, e.Force)
	}
	for _, e := range o.StaticFormData {
		b.AddFormData(e.Key, e.Value, e.Force)
	}
	if err := o.Auth.applyTo(req, false); err != nil {
		return err
	}
	if o.UserAgent != "" {
		req.defaults = map[string][]string{"User-Agent": {o.UserAgent}}
	}
	return b.Err()
}

// GetPolicy returns the policy for uri.
func (o *Options) GetPolicy(uri string) (Policy, bool) {
	return o.Policies.Lookup(uri)
}

// GetLogger returns the logger for uri. Disabled prefixes win, then the
// logger registered in services under DefaultLoggerKey, then Loggers.
func (o *Options) GetLogger(uri string, services di.Container) (RequestResponseLogger, bool) {
	if HasPrefix(uri, o.LogDisabledURIs) {
		return nil, false
	}
	key := o.DefaultLoggerKey
	if key == "" {
		key = di.Keys.RequestResponseLogger
	}
	if l, ok := di.TryResolve[RequestResponseLogger](services, key); ok && l != nil {
		return l, true
	}
	return o.Loggers.Lookup(uri)
}

func (o *Options) maxLoggedBody() int {
	return int(util.ParseSize(o.MaxLoggedBodySize, util.ParseSize(defaultMaxLoggedBodySize, 0)))
}

// resiliencePolicy builds the policy described by the resilience settings,
// retry outermost. It returns nil when none is set.
func (o *Options) resiliencePolicy() Policy {
	var policies []Policy
	if o.Retry != nil {
		policies = append(policies, NewRetryPolicy(*o.Retry))
	}
	if o.CircuitBreaker != nil {
		policies = append(policies, NewCircuitBreakerPolicy(*o.CircuitBreaker))
	}
	if o.RateLimiter != nil {
		policies = append(policies, NewRateLimitPolicy(*o.RateLimiter))
	}
	if o.Bulkhead != nil {
		policies = append(policies, NewBulkheadPolicy(*o.Bulkhead))
	}
	if len(policies) == 0 {
		return nil
	}
	return Policies(policies...)
}

// clientsFile is the config layout read by LoadOptions:
//
//	http_client:
//	  billing:
//	    base_address: https://billing.internal
type clientsFile struct {
	Clients map[string]Options `mapstructure:"http_client"`
}

// LoadOptions reads the options of the client called name from the
// http_client section of the app config. Defaults are applied and the
// result is validated.
func LoadOptions(appName, name string, opts ...config.LoaderOption) (*Options, error) {
	var file clientsFile
	if err := config.Load(appName, &file, opts...); err != nil {
		return nil, errors.ConfigurationFault("httpclient %q: load config", name).WithCause(err)
	}
	o, ok := lookupClient(file.Clients, name)
	if !ok {
		return nil, errors.ConfigurationFault("httpclient %q: no http_client entry", name)
	}
	if o.ClientName == "" {
		o.ClientName = name
	}
	o.ApplyDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// lookupClient matches name case-insensitively, since viper lowercases keys.
func lookupClient(clients map[string]Options, name string) (Options, bool) {
	if o, ok := clients[name]; ok {
		return o, true
	}
	for k, o := range clients {
		if strings.EqualFold(k, name) {
			return o, true
		}
	}
	return Options{}, false
}
