package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:      "empty ipc root",
			modify:    func(c *Config) { c.IPC.Root = "  " },
			wantField: "ipc.root",
		},
		{
			name:      "router id with separator",
			modify:    func(c *Config) { c.Router.ID = "a/b" },
			wantField: "router.id",
		},
		{
			name:      "router id dot-dot",
			modify:    func(c *Config) { c.Router.ID = ".." },
			wantField: "router.id",
		},
		{
			name:      "router idle too small",
			modify:    func(c *Config) { c.Router.IdleIntervalMs = 5 },
			wantField: "router.idle_interval_ms",
		},
		{
			name:      "consumer idle too large",
			modify:    func(c *Config) { c.Consumer.IdleIntervalMs = 120000 },
			wantField: "consumer.idle_interval_ms",
		},
		{
			name:      "negative router max per run",
			modify:    func(c *Config) { c.Router.MaxPerRun = -1 },
			wantField: "router.max_per_run",
		},
		{
			name:      "negative consumer max per run",
			modify:    func(c *Config) { c.Consumer.MaxPerRun = -3 },
			wantField: "consumer.max_per_run",
		},
		{
			name:      "bad channel name",
			modify:    func(c *Config) { c.Channels["a/b"] = ChannelConfig{} },
			wantField: "channels.a/b",
		},
		{
			name:      "unknown log level",
			modify:    func(c *Config) { c.Logging.Level = "trace" },
			wantField: "logging.level",
		},
		{
			name:      "unknown log format",
			modify:    func(c *Config) { c.Logging.Format = "xml" },
			wantField: "logging.format",
		},
		{
			name:      "zero log size",
			modify:    func(c *Config) { c.Logging.MaxSizeMB = 0 },
			wantField: "logging.max_size_mb",
		},
		{
			name:      "too many backups",
			modify:    func(c *Config) { c.Logging.MaxBackups = 50 },
			wantField: "logging.max_backups",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestConfig_Validate_AcceptsUppercaseLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "DEBUG"
	cfg.Logging.Format = "JSON"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestConfig_Validate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.IPC.Root = ""
	cfg.Router.MaxPerRun = -1
	cfg.Logging.MaxBackups = -1
	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}
