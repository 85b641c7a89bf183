package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug logging in development, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info logging, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func(env string) ServiceConfig {
		c := ServiceConfig{Name: "svc", Environment: env}
		c.Logging.ApplyDefaults()
		return c
	}
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", valid("development"), false, ""},
		{"valid production", valid("production"), false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", valid("invalid"), true, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type clientSection struct {
	BaseAddress string `mapstructure:"base_address"`
	Timeout     string `mapstructure:"timeout"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Clients       map[string]clientSection `mapstructure:"http_client"`
}

const testYAML = `
name: orders
environment: staging
http_client:
  billing:
    base_address: http://billing.local
    timeout: 5s
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(testYAML), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadWithYAML(t *testing.T) {
	var cfg testConfig
	if err := Load("orders", &cfg, WithConfigFile(writeConfig(t))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "orders" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if got := cfg.Clients["billing"].BaseAddress; got != "http://billing.local" {
		t.Errorf("expected base address from file, got %q", got)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HTTP_CLIENT_BILLING_BASE_ADDRESS", "http://override")
	t.Setenv("UNRELATED_VARIABLE", "x")

	var cfg testConfig
	if err := Load("orders", &cfg, WithConfigFile(writeConfig(t))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Clients["billing"].BaseAddress; got != "http://override" {
		t.Errorf("expected env override, got %q", got)
	}
	if got := cfg.Clients["billing"].Timeout; got != "5s" {
		t.Errorf("expected sibling key to be kept, got %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig
	err := Load("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"), WithFileSystem(&mockFS{}))
	if err != nil {
		t.Fatalf("expected Load to succeed with missing file, got %v", err)
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config/orders.yml": true,
		"./config.yml":        true,
		"./.env":              true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("orders", LoaderConfig{})
	if files.ConfigFile != "./config.yml" {
		t.Errorf("expected ./config.yml to win over ./config/orders.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected ./.env, got %q", files.EnvFile)
	}

	files = resolver.ResolveFiles("orders", LoaderConfig{ConfigFile: "explicit.yml"})
	if files.ConfigFile != "explicit.yml" {
		t.Errorf("expected explicit path, got %q", files.ConfigFile)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	fs := &mockFS{}
	WithFileSystem(fs)(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("unexpected loader config %+v", lc)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("HTTP_CLIENT_NAME")
	want := map[string]bool{
		"http.client.name": true,
		"http.client_name": true,
		"http_client.name": true,
		"http_client_name": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %v", len(want), got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
	}
	if got := generateEnvKeyVariants("PATH"); len(got) != 1 || got[0] != "path" {
		t.Errorf("unexpected single-word variants %v", got)
	}
}
