package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/httpapi/logger"
)

// FileSystem abstracts the file lookups of the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the OS.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the config and env files of an application.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths from opts, searching standard
// locations for whichever is empty.
func (cr *Resolver) ResolveFiles(appName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(configSearchPaths(appName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first(envSearchPaths(appName))
	}
	return resolved
}

func (cr *Resolver) first(paths []string) string {
	for _, path := range paths {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

func configSearchPaths(appName string) []string {
	var paths []string
	for _, dir := range []string{".", "./config", "..", "../config"} {
		if appName != "" {
			paths = append(paths, fmt.Sprintf("%s/%s.yml", dir, appName))
		}
		paths = append(paths, dir+"/config.yml")
	}
	return paths
}

func envSearchPaths(appName string) []string {
	var paths []string
	for _, dir := range []string{".", "./config", ".."} {
		if appName != "" {
			paths = append(paths, fmt.Sprintf("%s/.env.%s", dir, appName))
		}
		paths = append(paths, dir+"/.env")
	}
	return paths
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load reads the YAML config file, then the .env file, then the process
// environment, and unmarshals the merged result into cfg. Environment
// variables such as HTTP_CLIENT_BILLING_BASE_ADDRESS override nested keys.
func Load(appName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(appName, lc)
	return loadFromResolvedFiles(appName, cfg, files, lc.FileSystem)
}

func loadFromResolvedFiles(appName string, cfg interface{}, files ResolvedFiles, fs FileSystem) error {
	v := viper.New()
	log := logger.Get("config")

	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load .env file", logger.Fields("path", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	// Only keys present in the config file are overridden.
	bindEnvVars(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for %s: %w", appName, err)
	}
	return nil
}

// bindEnvVars maps UPPER_CASE_WITH_UNDERSCORES variables onto the nested
// keys they can spell.
func bindEnvVars(v *viper.Viper) {
	known := make(map[string]bool)
	for _, k := range v.AllKeys() {
		known[k] = true
	}
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		for _, variant := range generateEnvKeyVariants(key) {
			if known[variant] {
				v.Set(variant, value)
			}
		}
	}
}

// generateEnvKeyVariants returns the dotted keys an env var name can spell.
//
//	HTTP_CLIENT_BILLING_BASE_ADDRESS -> http_client.billing.base_address, http.client.billing.base.address, ...
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	seen := map[string]bool{}
	var variants []string
	var walk func(prefix string, rest []string)
	walk = func(prefix string, rest []string) {
		if len(rest) == 0 {
			if !seen[prefix] {
				seen[prefix] = true
				variants = append(variants, prefix)
			}
			return
		}
		// each boundary between parts is either "." or "_"
		walk(prefix+"."+rest[0], rest[1:])
		walk(prefix+"_"+rest[0], rest[1:])
	}
	if len(parts) > 8 {
		// 2^n variants; fall back to the two flat spellings.
		return []string{lowerKey, strings.ReplaceAll(lowerKey, "_", ".")}
	}
	walk(parts[0], parts[1:])
	return variants
}
