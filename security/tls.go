package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
)

// TLSConfig holds the client-side TLS settings of an HTTP transport.
type TLSConfig struct {
	// SkipVerify disables server certificate verification.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is the path to a PEM bundle of CAs trusted for the server.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`
	// CAPEM is an inline PEM bundle, appended to CAFile's certificates.
	CAPEM string `yaml:"ca_pem" mapstructure:"ca_pem"`

	// CertFile and KeyFile are the client certificate for mutual TLS.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName overrides the server name used for certificate verification.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is "1.0", "1.1", "1.2" or "1.3". Defaults to "1.2".
	MinVersion string `yaml:"min_version" mapstructure:"min_version"`
	// MaxVersion is the highest version offered. Empty means the library default.
	MaxVersion string `yaml:"max_version" mapstructure:"max_version"`
}

var tlsVersions = map[string]uint16{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// ParseVersion converts "1.2" (or "tls1.2", "TLS 1.2") to its tls constant.
func ParseVersion(s string) (uint16, error) {
	key := strings.TrimSpace(strings.ToLower(s))
	key = strings.TrimPrefix(strings.TrimPrefix(key, "tls"), " ")
	if v, ok := tlsVersions[key]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("security/tls: unknown TLS version %q", s)
}

// Build creates a *tls.Config from the configuration.
// Returns nil if no TLS settings are configured.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in
		ServerName:         c.ServerName,
		MinVersion:         tls.VersionTLS12,
	}
	if c.MinVersion != "" {
		cfg.MinVersion, _ = ParseVersion(c.MinVersion)
	}
	if c.MaxVersion != "" {
		cfg.MaxVersion, _ = ParseVersion(c.MaxVersion)
	}

	if err := c.loadCA(cfg); err != nil {
		return nil, err
	}
	if err := c.loadClientCert(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the TLS configuration is consistent.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("security/tls: both cert_file and key_file must be provided together")
	}
	var minV, maxV uint16
	var err error
	if c.MinVersion != "" {
		if minV, err = ParseVersion(c.MinVersion); err != nil {
			return err
		}
	}
	if c.MaxVersion != "" {
		if maxV, err = ParseVersion(c.MaxVersion); err != nil {
			return err
		}
	}
	if minV != 0 && maxV != 0 && minV > maxV {
		return fmt.Errorf("security/tls: min_version %s is above max_version %s", c.MinVersion, c.MaxVersion)
	}
	return nil
}

// IsEnabled returns true if any TLS setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CAPEM != "" || c.CertFile != "" ||
		c.ServerName != "" || c.MinVersion != "" || c.MaxVersion != ""
}

func (c *TLSConfig) loadCA(cfg *tls.Config) error {
	if c.CAFile == "" && c.CAPEM == "" {
		return nil
	}
	pool := x509.NewCertPool()
	if c.CAFile != "" {
		ca, err := os.ReadFile(c.CAFile)
		if err != nil {
			return fmt.Errorf("security/tls: failed to read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(ca) {
			return fmt.Errorf("security/tls: failed to parse CA certificate")
		}
	}
	if c.CAPEM != "" && !pool.AppendCertsFromPEM([]byte(c.CAPEM)) {
		return fmt.Errorf("security/tls: failed to parse inline CA certificate")
	}
	cfg.RootCAs = pool
	return nil
}

func (c *TLSConfig) loadClientCert(cfg *tls.Config) error {
	if c.CertFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return fmt.Errorf("security/tls: failed to load client certificate: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return nil
}
