package logger

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

var formats = []string{FormatJSON, FormatConsole, FormatPretty}

// Config is the logging section of a client configuration file.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults logs at info level to stdout in console format, with timestamps.
func (c *Config) ApplyDefaults() {
	c.Level = cmp.Or(c.Level, "info")
	c.Format = cmp.Or(c.Format, FormatConsole)
	c.Output = cmp.Or(c.Output, "stdout")
	c.Timestamp = true
}

// Validate reports every unknown level or format, not just the first.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.Level); err != nil || c.Level == "" {
		errs = append(errs, fmt.Errorf("logging.level %q is not a zerolog level", c.Level))
	}
	if !slices.Contains(formats, c.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %v (got %q)", formats, c.Format))
	}
	return errors.Join(errs...)
}
