package config

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Iron-Ham/filepipe/internal/logging"
	"github.com/Iron-Ham/filepipe/internal/schema"
	"github.com/spf13/viper"
)

// Config represents the complete filepipe configuration
type Config struct {
	IPC      IPCConfig                `mapstructure:"ipc"`
	Router   RouterConfig             `mapstructure:"router"`
	Consumer ConsumerConfig           `mapstructure:"consumer"`
	Schema   SchemaConfig             `mapstructure:"schema"`
	Channels map[string]ChannelConfig `mapstructure:"channels"`
	Logging  LoggingConfig            `mapstructure:"logging"`
}

// IPCConfig locates the channel tree
type IPCConfig struct {
	// Root is the directory holding one subdirectory per channel (default: "ipc").
	// Relative paths resolve against the working directory.
	Root string `mapstructure:"root"`
}

// RouterConfig controls router loops
type RouterConfig struct {
	// ID names the router's routing/<id> working directory. Empty generates a
	// random ID per process; set it to have a restarted router resume its
	// own leftovers.
	ID string `mapstructure:"id"`
	// IdleIntervalMs is how long an idle router sleeps between scans (default: 500)
	IdleIntervalMs int `mapstructure:"idle_interval_ms"`
	// MaxPerRun caps messages routed per pass, 0 = unlimited
	MaxPerRun int `mapstructure:"max_per_run"`
	// Watch wakes the router on inbox events instead of waiting out the idle interval (default: true)
	Watch bool `mapstructure:"watch"`
}

// ConsumerConfig controls consumer loops
type ConsumerConfig struct {
	// IdleIntervalMs is how long an idle consumer sleeps between scans (default: 500)
	IdleIntervalMs int `mapstructure:"idle_interval_ms"`
	// MaxPerRun caps messages handled per pass, 0 = unlimited
	MaxPerRun int `mapstructure:"max_per_run"`
	// Archive keeps handled messages in archive/<id> instead of deleting them (default: true)
	Archive bool `mapstructure:"archive"`
	// Watch wakes the consumer on outbox events (default: true)
	Watch bool `mapstructure:"watch"`
}

// SchemaConfig selects the full-tier schema source
type SchemaConfig struct {
	// Builtin enables the compiled-in definitions (default: true)
	Builtin bool `mapstructure:"builtin"`
	// DefinitionsDir is a directory of YAML schema definitions consulted
	// before the builtins. Empty disables it.
	DefinitionsDir string `mapstructure:"definitions_dir"`
}

// ChannelConfig binds a channel to the schema family it accepts
type ChannelConfig struct {
	// Schema is the family name, e.g. "CommandBatch". Empty accepts any
	// schema the validator knows.
	Schema string `mapstructure:"schema"`
}

// LoggingConfig controls logging output
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Format is "text" or "json" for stderr output (default: "text")
	Format string `mapstructure:"format"`
	// File writes JSON logs to this path instead of stderr
	File string `mapstructure:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	channels := make(map[string]ChannelConfig)
	for name, family := range schema.DefaultBindings() {
		channels[name] = ChannelConfig{Schema: family}
	}
	return &Config{
		IPC: IPCConfig{
			Root: "ipc",
		},
		Router: RouterConfig{
			ID:             "",
			IdleIntervalMs: 500,
			MaxPerRun:      0,
			Watch:          true,
		},
		Consumer: ConsumerConfig{
			IdleIntervalMs: 500,
			MaxPerRun:      0,
			Archive:        true,
			Watch:          true,
		},
		Schema: SchemaConfig{
			Builtin:        true,
			DefinitionsDir: "",
		},
		Channels: channels,
		Logging: LoggingConfig{
			Level:      "info",
			Format:     logging.FormatText,
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// IdleInterval returns the router idle interval as a time.Duration
func (c *RouterConfig) IdleInterval() time.Duration {
	return time.Duration(c.IdleIntervalMs) * time.Millisecond
}

// IdleInterval returns the consumer idle interval as a time.Duration
func (c *ConsumerConfig) IdleInterval() time.Duration {
	return time.Duration(c.IdleIntervalMs) * time.Millisecond
}

// ChannelNames returns the configured channel names in sorted order
func (c *Config) ChannelNames() []string {
	names := make([]string, 0, len(c.Channels))
	for name := range c.Channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Family returns the schema family bound to a channel. Unconfigured
// channels accept any known schema.
func (c *Config) Family(channel string) string {
	return c.Channels[channel].Schema
}

// SchemaSource builds the full-tier schema source: definitions from
// DefinitionsDir first, then the builtins. It returns nil (light tier) when
// both are disabled.
func (c *SchemaConfig) SchemaSource() (schema.Source, error) {
	var sources []schema.Source
	if c.DefinitionsDir != "" {
		reg, err := schema.LoadDir(c.DefinitionsDir)
		if err != nil {
			return nil, err
		}
		sources = append(sources, reg)
	}
	if c.Builtin {
		sources = append(sources, schema.Builtin())
	}
	return schema.Chain(sources...), nil
}

// LoggerOptions converts the logging section to logging.Options
func (c *LoggingConfig) LoggerOptions() logging.Options {
	return logging.Options{
		Level:  c.Level,
		Format: c.Format,
		File:   c.File,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			Compress:   c.Compress,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// IPC defaults
	viper.SetDefault("ipc.root", defaults.IPC.Root)

	// Router defaults
	viper.SetDefault("router.id", defaults.Router.ID)
	viper.SetDefault("router.idle_interval_ms", defaults.Router.IdleIntervalMs)
	viper.SetDefault("router.max_per_run", defaults.Router.MaxPerRun)
	viper.SetDefault("router.watch", defaults.Router.Watch)

	// Consumer defaults
	viper.SetDefault("consumer.idle_interval_ms", defaults.Consumer.IdleIntervalMs)
	viper.SetDefault("consumer.max_per_run", defaults.Consumer.MaxPerRun)
	viper.SetDefault("consumer.archive", defaults.Consumer.Archive)
	viper.SetDefault("consumer.watch", defaults.Consumer.Watch)

	// Schema defaults
	viper.SetDefault("schema.builtin", defaults.Schema.Builtin)
	viper.SetDefault("schema.definitions_dir", defaults.Schema.DefinitionsDir)

	// Channel bindings
	for name, ch := range defaults.Channels {
		viper.SetDefault("channels."+name+".schema", ch.Schema)
	}

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "filepipe")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".filepipe"
	}
	return filepath.Join(home, ".config", "filepipe")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
