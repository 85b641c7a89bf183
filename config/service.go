package config

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/kbukum/httpapi/logger"
)

// ServiceConfig holds the settings shared by every application that hosts
// HTTP API clients. Embed it in an application config:
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    HTTPClients map[string]httpclient.Options `yaml:"http_client" mapstructure:"http_client"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

var environments = []string{"development", "staging", "production"}

// GetServiceConfig lets code holding an embedding config reach the shared
// fields.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults assumes development when no environment is set. Development
// turns on debug mode and, unless a level is given, debug logging.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = environments[0]
	}
	if c.Environment == "development" {
		c.Debug = true
		c.Logging.Level = cmp.Or(c.Logging.Level, "debug")
	}
	c.Logging.ApplyDefaults()
}

// Validate reports every problem with the shared fields at once.
func (c *ServiceConfig) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, fmt.Errorf("config.name is required"))
	}
	if !slices.Contains(environments, c.Environment) {
		errs = append(errs, fmt.Errorf("config.environment must be one of %v (got: %s)", environments, c.Environment))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config.logging: %w", err))
	}
	return errors.Join(errs...)
}
