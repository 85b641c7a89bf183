package httpclient

import (
	"encoding/base64"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/httpclient/header"
)

// AuthType identifies the authentication method.
type AuthType string

const (
	// AuthNone disables authentication.
	AuthNone AuthType = ""
	// AuthBearer uses a static Bearer token.
	AuthBearer AuthType = "bearer"
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic AuthType = "basic"
	// AuthAPIKey uses an API key in a header or query parameter.
	AuthAPIKey AuthType = "api_key"
	// AuthJWT signs a short-lived Bearer token for every request.
	AuthJWT AuthType = "jwt"
	// AuthCustom uses a custom function.
	AuthCustom AuthType = "custom"
)

const (
	defaultAPIKeyName = "X-API-Key"
	defaultJWTTTL     = 5 * time.Minute
)

// AuthConfig configures request authentication. It is applied without
// force, so an Authorization header set on the request wins.
type AuthConfig struct {
	Type AuthType `yaml:"type" mapstructure:"type"`
	// Token is the bearer token (AuthBearer).
	Token string `yaml:"token" mapstructure:"token"`
	// Username and Password are the basic credentials (AuthBasic).
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	// Key is the API key value (AuthAPIKey).
	Key string `yaml:"key" mapstructure:"key"`
	// In places the API key: "header" (default) or "query".
	In string `yaml:"in" mapstructure:"in"`
	// Name is the header or query parameter name. Defaults to "X-API-Key".
	Name string `yaml:"name" mapstructure:"name"`
	// JWT configures token signing (AuthJWT).
	JWT *JWTAuthConfig `yaml:"jwt" mapstructure:"jwt"`
	// Apply mutates the request descriptor (AuthCustom).
	Apply func(req *Request) error `yaml:"-" mapstructure:"-"`
}

// JWTAuthConfig holds the HMAC secret and the claims of signed tokens.
type JWTAuthConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
	// Method is HS256 (default), HS384 or HS512.
	Method   string        `yaml:"method" mapstructure:"method"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Subject  string        `yaml:"subject" mapstructure:"subject"`
	Audience []string      `yaml:"audience" mapstructure:"audience"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`

	now func() time.Time
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: defaultAPIKeyName}
}

// APIKeyAuthHeader creates an API key auth config with a custom header name.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: headerName}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// JWTAuth creates an auth config that signs an HS256 token per request.
func JWTAuth(secret, issuer, subject string, ttl time.Duration, audience ...string) *AuthConfig {
	return &AuthConfig{Type: AuthJWT, JWT: &JWTAuthConfig{
		Secret:   secret,
		Issuer:   issuer,
		Subject:  subject,
		Audience: audience,
		TTL:      ttl,
	}}
}

// CustomAuth creates a custom auth config.
func CustomAuth(fn func(req *Request) error) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// Validate checks that the fields required by Type are set.
func (a *AuthConfig) Validate() error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthNone:
	case AuthBearer:
		if a.Token == "" {
			return errors.ConfigurationFault("auth: bearer token is required")
		}
	case AuthBasic:
		if a.Username == "" {
			return errors.ConfigurationFault("auth: basic username is required")
		}
	case AuthAPIKey:
		if a.Key == "" {
			return errors.ConfigurationFault("auth: api key is required")
		}
		if a.In != "" && a.In != "header" && a.In != "query" {
			return errors.ConfigurationFault("auth: api key location %q must be header or query", a.In)
		}
	case AuthJWT:
		if a.JWT == nil || a.JWT.Secret == "" {
			return errors.ConfigurationFault("auth: jwt secret is required")
		}
		if _, err := a.JWT.signingMethod(); err != nil {
			return err
		}
	case AuthCustom:
		if a.Apply == nil {
			return errors.ConfigurationFault("auth: custom auth requires Apply")
		}
	default:
		return errors.ConfigurationFault("auth: unknown type %q", a.Type)
	}
	return nil
}

// Authentication returns the Authorization credential for header based
// kinds. It returns nil for API keys and custom auth.
func (a *AuthConfig) Authentication() (*header.Authentication, error) {
	if a == nil {
		return nil, nil
	}
	switch a.Type {
	case AuthBearer:
		return &header.Authentication{Scheme: "Bearer", Parameter: a.Token}, nil
	case AuthBasic:
		return &header.Authentication{Scheme: "Basic", Parameter: basicParameter(a.Username, a.Password)}, nil
	case AuthJWT:
		if a.JWT == nil {
			return nil, errors.ConfigurationFault("auth: jwt config is missing")
		}
		token, err := a.JWT.Sign()
		if err != nil {
			return nil, err
		}
		return &header.Authentication{Scheme: "Bearer", Parameter: token}, nil
	}
	return nil, nil
}

func (a *AuthConfig) applyTo(req *Request, force bool) error {
	if a == nil || a.Type == AuthNone {
		return nil
	}
	if req.Headers == nil {
		req.Headers = header.New()
	}
	switch a.Type {
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = defaultAPIKeyName
		}
		if strings.EqualFold(a.In, "query") {
			BuilderFor(req).AddQueryString(name, a.Key)
			return nil
		}
		req.Headers.Add(name, a.Key, force)
		return nil
	case AuthCustom:
		if a.Apply == nil {
			return nil
		}
		return a.Apply(req)
	}

	if req.Headers.Authorization != nil && !force {
		return nil
	}
	auth, err := a.Authentication()
	if err != nil {
		return err
	}
	req.Headers.Authorization = auth
	return nil
}

func basicParameter(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

func (j *JWTAuthConfig) signingMethod() (gojwt.SigningMethod, error) {
	switch strings.ToUpper(j.Method) {
	case "", "HS256":
		return gojwt.SigningMethodHS256, nil
	case "HS384":
		return gojwt.SigningMethodHS384, nil
	case "HS512":
		return gojwt.SigningMethodHS512, nil
	}
	return nil, errors.ConfigurationFault("auth: unsupported jwt method %q", j.Method)
}

// Sign issues a token valid for TTL from now.
func (j *JWTAuthConfig) Sign() (string, error) {
	method, err := j.signingMethod()
	if err != nil {
		return "", err
	}
	now := time.Now()
	if j.now != nil {
		now = j.now()
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = defaultJWTTTL
	}

	claims := gojwt.RegisteredClaims{
		Issuer:    j.Issuer,
		Subject:   j.Subject,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
	if len(j.Audience) > 0 {
		claims.Audience = gojwt.ClaimStrings(j.Audience)
	}

	token := gojwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(j.Secret))
	if err != nil {
		return "", errors.Internal(err).WithDetail("operation", "sign jwt")
	}
	return signed, nil
}
