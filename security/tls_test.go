package security

import (
	"crypto/tls"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/httpapi/security/tlstest"
)

func TestTLSConfig_Build_Disabled(t *testing.T) {
	var nilCfg *TLSConfig
	for name, cfg := range map[string]*TLSConfig{"nil": nilCfg, "zero": {}} {
		result, err := cfg.Build()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if result != nil {
			t.Fatalf("%s: expected nil tls.Config", name)
		}
	}
}

func TestTLSConfig_Build_Basics(t *testing.T) {
	cfg := &TLSConfig{SkipVerify: true, ServerName: "api.internal"}
	result, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify")
	}
	if result.ServerName != "api.internal" {
		t.Errorf("expected server name, got %q", result.ServerName)
	}
	if result.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected TLS 1.2 minimum, got %x", result.MinVersion)
	}
}

func TestTLSConfig_Build_Versions(t *testing.T) {
	result, err := (&TLSConfig{MinVersion: "1.3", MaxVersion: "TLS 1.3"}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MinVersion != tls.VersionTLS13 || result.MaxVersion != tls.VersionTLS13 {
		t.Errorf("expected 1.3/1.3, got %x/%x", result.MinVersion, result.MaxVersion)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"1.0", tls.VersionTLS10, false},
		{"1.1", tls.VersionTLS11, false},
		{"tls1.2", tls.VersionTLS12, false},
		{"TLS 1.3", tls.VersionTLS13, false},
		{"2.0", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseVersion(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseVersion(%q) = %x, want %x", tc.in, got, tc.want)
			}
		})
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantErr string
	}{
		{"nil", nil, ""},
		{"valid", &TLSConfig{CertFile: "c", KeyFile: "k", MinVersion: "1.2"}, ""},
		{"cert without key", &TLSConfig{CertFile: "c"}, "cert_file and key_file"},
		{"key without cert", &TLSConfig{KeyFile: "k"}, "cert_file and key_file"},
		{"bad version", &TLSConfig{MinVersion: "9"}, "unknown TLS version"},
		{"min above max", &TLSConfig{MinVersion: "1.3", MaxVersion: "1.2"}, "above max_version"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTLSConfig_IsEnabled(t *testing.T) {
	var nilCfg *TLSConfig
	if nilCfg.IsEnabled() || (&TLSConfig{}).IsEnabled() {
		t.Error("expected disabled for nil and zero configs")
	}
	for _, cfg := range []*TLSConfig{
		{SkipVerify: true},
		{CAFile: "ca.pem"},
		{CAPEM: "x"},
		{CertFile: "c"},
		{ServerName: "x"},
		{MinVersion: "1.2"},
	} {
		if !cfg.IsEnabled() {
			t.Errorf("expected enabled for %+v", cfg)
		}
	}
}

func TestTLSConfig_Build_CA(t *testing.T) {
	certs := tlstest.Generate(t)

	for name, cfg := range map[string]*TLSConfig{
		"file":   {CAFile: certs.CAFile},
		"inline": {CAPEM: certs.CAPEM},
	} {
		result, err := cfg.Build()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if result.RootCAs == nil {
			t.Fatalf("%s: expected RootCAs", name)
		}
	}
}

func TestTLSConfig_Build_ClientCert(t *testing.T) {
	certs := tlstest.Generate(t)
	result, err := (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Certificates) != 1 {
		t.Errorf("expected 1 client certificate, got %d", len(result.Certificates))
	}
}

func TestTLSConfig_Build_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantErr string
	}{
		{"missing CA file", &TLSConfig{CAFile: "/nonexistent/ca.pem"}, "failed to read CA file"},
		{"invalid CA file", &TLSConfig{CAFile: tlstest.WriteInvalidPEM(t, "bad-ca.pem")}, "failed to parse CA certificate"},
		{"invalid inline CA", &TLSConfig{CAPEM: "garbage"}, "inline CA"},
		{"missing cert", &TLSConfig{CertFile: "/nonexistent/c.pem", KeyFile: "/nonexistent/k.pem"}, "client certificate"},
		{"invalid config", &TLSConfig{CertFile: "only-cert"}, "key_file"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cfg.Build()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTLSConfig_HandshakeWithTestServer(t *testing.T) {
	srv, certs := tlstest.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tlsCfg, err := (&TLSConfig{CAFile: certs.CAFile}).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsCfg}}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}
