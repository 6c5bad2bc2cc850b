package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session.KeyColumn != "PNO" {
		t.Errorf("Session.KeyColumn = %q, want %q", cfg.Session.KeyColumn, "PNO")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "json")
	}
	if cfg.Output.Pretty {
		t.Errorf("Output.Pretty = true, want false")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("SHEETROW_KEY_COLUMN", "Batch")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHEETROW_OUTPUT", "yaml")
	t.Setenv("SHEETROW_PRETTY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session.KeyColumn != "Batch" {
		t.Errorf("Session.KeyColumn = %q, want %q", cfg.Session.KeyColumn, "Batch")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q (from envAlt)", cfg.Logging.Level, "debug")
	}
	if cfg.Output.Format != "yaml" || !cfg.Output.Pretty {
		t.Errorf("Output = %+v", cfg.Output)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("SHEETROW_PRETTY", "sometimes")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SHEETROW_PRETTY") {
		t.Errorf("Load() error = %v, want invalid boolean", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Session: SessionConfig{KeyColumn: " "},
		Logging: LoggingConfig{Level: "loud", Format: "xml"},
		Output:  OutputConfig{Format: "csv"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want failures")
	}
	for _, name := range []string{"SHEETROW_KEY_COLUMN", "SHEETROW_LOG_LEVEL", "SHEETROW_LOG_FORMAT", "SHEETROW_OUTPUT"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Validate() error missing %s: %v", name, err)
		}
	}
}
