// Package config loads the command line tool configuration from environment
// variables, applying defaults and validating the result.
package config

import (
	"fmt"
	"strings"
)

// Config holds the command line tool configuration.
type Config struct {
	Session SessionConfig
	Logging LoggingConfig
	Output  OutputConfig
}

// SessionConfig holds document session settings.
type SessionConfig struct {
	// KeyColumn is the header label identifying data rows (default: PNO)
	KeyColumn string `env:"SHEETROW_KEY_COLUMN" default:"PNO"`

	// Dir resolves relative handles (default: current directory)
	Dir string `env:"SHEETROW_DIR"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: warn)
	Level string `env:"SHEETROW_LOG_LEVEL" envAlt:"LOG_LEVEL" default:"warn"`

	// Format is text or json (default: text)
	Format string `env:"SHEETROW_LOG_FORMAT" envAlt:"LOG_FORMAT" default:"text"`
}

// OutputConfig holds result rendering settings.
type OutputConfig struct {
	// Format is json or yaml (default: json)
	Format string `env:"SHEETROW_OUTPUT" default:"json"`

	// Pretty indents JSON output (default: false)
	Pretty bool `env:"SHEETROW_PRETTY" default:"false"`
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Session.KeyColumn) == "" {
		errs = append(errs, "SHEETROW_KEY_COLUMN must not be blank")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("SHEETROW_LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("SHEETROW_LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	validOutputs := map[string]bool{"json": true, "yaml": true, "yml": true}
	if !validOutputs[strings.ToLower(c.Output.Format)] {
		errs = append(errs, fmt.Sprintf("SHEETROW_OUTPUT (%q) must be one of: json, yaml", c.Output.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
