package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/filepipe/internal/schema"
	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.IPC.Root != "ipc" {
		t.Errorf("IPC.Root = %q, want %q", cfg.IPC.Root, "ipc")
	}

	// Verify default router config
	if cfg.Router.ID != "" {
		t.Errorf("Router.ID = %q, want empty", cfg.Router.ID)
	}
	if cfg.Router.IdleIntervalMs != 500 {
		t.Errorf("Router.IdleIntervalMs = %d, want 500", cfg.Router.IdleIntervalMs)
	}
	if cfg.Router.MaxPerRun != 0 {
		t.Errorf("Router.MaxPerRun = %d, want 0", cfg.Router.MaxPerRun)
	}
	if !cfg.Router.Watch {
		t.Error("Router.Watch should be true by default")
	}

	// Verify default consumer config
	if !cfg.Consumer.Archive {
		t.Error("Consumer.Archive should be true by default")
	}
	if !cfg.Consumer.Watch {
		t.Error("Consumer.Watch should be true by default")
	}

	// Verify default schema config
	if !cfg.Schema.Builtin {
		t.Error("Schema.Builtin should be true by default")
	}
	if cfg.Schema.DefinitionsDir != "" {
		t.Errorf("Schema.DefinitionsDir = %q, want empty", cfg.Schema.DefinitionsDir)
	}

	// Verify default logging config
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
}

func TestDefault_Channels(t *testing.T) {
	cfg := Default()

	want := map[string]string{
		"commands":  schema.CommandBatch,
		"snapshots": schema.GameStateSnapshot,
		"handoff":   schema.HandoffEnvelope,
	}
	for name, family := range want {
		if got := cfg.Family(name); got != family {
			t.Errorf("Family(%q) = %q, want %q", name, got, family)
		}
	}

	names := cfg.ChannelNames()
	expected := []string{"commands", "handoff", "snapshots"}
	if len(names) != len(expected) {
		t.Fatalf("ChannelNames() = %v, want %v", names, expected)
	}
	for i := range names {
		if names[i] != expected[i] {
			t.Errorf("ChannelNames()[%d] = %q, want %q", i, names[i], expected[i])
		}
	}

	if got := cfg.Family("unconfigured"); got != "" {
		t.Errorf("Family(unconfigured) = %q, want empty", got)
	}
}

func TestIdleInterval(t *testing.T) {
	r := RouterConfig{IdleIntervalMs: 250}
	if got := r.IdleInterval(); got != 250*time.Millisecond {
		t.Errorf("RouterConfig.IdleInterval() = %v, want 250ms", got)
	}
	c := ConsumerConfig{IdleIntervalMs: 1500}
	if got := c.IdleInterval(); got != 1500*time.Millisecond {
		t.Errorf("ConsumerConfig.IdleInterval() = %v, want 1.5s", got)
	}
}

func TestSchemaConfig_SchemaSource(t *testing.T) {
	t.Run("builtin only", func(t *testing.T) {
		cfg := SchemaConfig{Builtin: true}
		src, err := cfg.SchemaSource()
		if err != nil {
			t.Fatalf("SchemaSource() error = %v", err)
		}
		if _, ok := src.Lookup(schema.CommandBatch, "1.0.0"); !ok {
			t.Error("builtin CommandBatch should be available")
		}
	})

	t.Run("disabled means light tier", func(t *testing.T) {
		cfg := SchemaConfig{}
		src, err := cfg.SchemaSource()
		if err != nil {
			t.Fatalf("SchemaSource() error = %v", err)
		}
		if src != nil {
			t.Errorf("SchemaSource() = %v, want nil", src)
		}
		if tier := schema.NewValidator(src).Tier(); tier != schema.TierLight {
			t.Errorf("Tier() = %v, want light", tier)
		}
	})

	t.Run("definitions dir consulted first", func(t *testing.T) {
		dir := t.TempDir()
		def := "name: Telemetry\nversion: 2.0.0\nfields:\n  - path: sentUtc\n    type: timestamp\n    required: true\n"
		if err := os.WriteFile(filepath.Join(dir, "telemetry.yaml"), []byte(def), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg := SchemaConfig{Builtin: true, DefinitionsDir: dir}
		src, err := cfg.SchemaSource()
		if err != nil {
			t.Fatalf("SchemaSource() error = %v", err)
		}
		if _, ok := src.Lookup("Telemetry", "2.0.0"); !ok {
			t.Error("Telemetry from definitions dir should be available")
		}
		if _, ok := src.Lookup(schema.HandoffEnvelope, "1.0.0"); !ok {
			t.Error("builtins should still be available")
		}
	})

	t.Run("missing definitions dir", func(t *testing.T) {
		cfg := SchemaConfig{DefinitionsDir: filepath.Join(t.TempDir(), "missing")}
		if _, err := cfg.SchemaSource(); err == nil {
			t.Error("SchemaSource() should fail for a missing directory")
		}
	})
}

func TestLoggingConfig_LoggerOptions(t *testing.T) {
	cfg := LoggingConfig{
		Level:      "debug",
		Format:     "json",
		File:       "/tmp/filepipe.log",
		MaxSizeMB:  5,
		MaxBackups: 2,
		Compress:   true,
	}
	opts := cfg.LoggerOptions()
	if opts.Level != "debug" || opts.Format != "json" || opts.File != "/tmp/filepipe.log" {
		t.Errorf("LoggerOptions() = %+v", opts)
	}
	if opts.Rotation.MaxSizeMB != 5 || opts.Rotation.MaxBackups != 2 || !opts.Rotation.Compress {
		t.Errorf("LoggerOptions().Rotation = %+v", opts.Rotation)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/filepipe"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "filepipe")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/filepipe/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.IPC.Root != "ipc" {
		t.Errorf("IPC.Root = %q, want %q", cfg.IPC.Root, "ipc")
	}
	if cfg.Family("commands") != schema.CommandBatch {
		t.Errorf("Family(commands) = %q, want %q", cfg.Family("commands"), schema.CommandBatch)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	path := filepath.Join(t.TempDir(), "filepipe.yaml")
	content := `ipc:
  root: /var/lib/filepipe
router:
  id: router-a
  max_per_run: 25
consumer:
  archive: false
channels:
  telemetry:
    schema: Telemetry
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.IPC.Root != "/var/lib/filepipe" {
		t.Errorf("IPC.Root = %q", cfg.IPC.Root)
	}
	if cfg.Router.ID != "router-a" || cfg.Router.MaxPerRun != 25 {
		t.Errorf("Router = %+v", cfg.Router)
	}
	if cfg.Router.IdleIntervalMs != 500 {
		t.Errorf("Router.IdleIntervalMs = %d, want default 500", cfg.Router.IdleIntervalMs)
	}
	if cfg.Consumer.Archive {
		t.Error("Consumer.Archive should be false from file")
	}
	if cfg.Family("telemetry") != "Telemetry" {
		t.Errorf("Family(telemetry) = %q", cfg.Family("telemetry"))
	}
	if cfg.Family("commands") != schema.CommandBatch {
		t.Errorf("default binding for commands lost: %q", cfg.Family("commands"))
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()
	viper.Set("router.idle_interval_ms", 0)
	viper.Set("logging.level", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail")
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(errs), errs)
	}
}
