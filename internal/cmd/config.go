package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/filepipe/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View filepipe configuration",
	Long: `View filepipe configuration.

Without arguments, displays the effective configuration after defaults,
the config file, FILEPIPE_* environment variables and flags are merged.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/filepipe/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if configReadErr != nil {
		return fmt.Errorf("failed to read config: %w", configReadErr)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		_, _ = fmt.Fprintf(out, "# config file: %s\n", viper.ConfigFileUsed())
	} else {
		_, _ = fmt.Fprintln(out, "# config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(showView(cfg))
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// showView mirrors config.Config with yaml keys matching the config file.
func showView(cfg *config.Config) map[string]any {
	channels := make(map[string]any, len(cfg.Channels))
	for name, ch := range cfg.Channels {
		channels[name] = map[string]any{"schema": ch.Schema}
	}
	return map[string]any{
		"ipc": map[string]any{"root": cfg.IPC.Root},
		"router": map[string]any{
			"id":               cfg.Router.ID,
			"idle_interval_ms": cfg.Router.IdleIntervalMs,
			"max_per_run":      cfg.Router.MaxPerRun,
			"watch":            cfg.Router.Watch,
		},
		"consumer": map[string]any{
			"idle_interval_ms": cfg.Consumer.IdleIntervalMs,
			"max_per_run":      cfg.Consumer.MaxPerRun,
			"archive":          cfg.Consumer.Archive,
			"watch":            cfg.Consumer.Watch,
		},
		"schema": map[string]any{
			"builtin":         cfg.Schema.Builtin,
			"definitions_dir": cfg.Schema.DefinitionsDir,
		},
		"channels": channels,
		"logging": map[string]any{
			"level":       cfg.Logging.Level,
			"format":      cfg.Logging.Format,
			"file":        cfg.Logging.File,
			"max_size_mb": cfg.Logging.MaxSizeMB,
			"max_backups": cfg.Logging.MaxBackups,
			"compress":    cfg.Logging.Compress,
		},
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(configTemplate(config.Default().IPC.Root)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	if used := viper.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), used)
		return nil
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), config.ConfigFile())
	return nil
}

// configTemplate is a commented config file with every option at its default.
func configTemplate(root string) string {
	return `# filepipe configuration

ipc:
  # Directory holding one subdirectory per channel
  root: ` + root + `

router:
  # Working directory name under routing/. Set it so a restarted router
  # resumes its own leftovers; empty picks a random ID per process.
  id: ""
  idle_interval_ms: 500
  # Messages routed per pass, 0 = unlimited
  max_per_run: 0
  # Wake on inbox events instead of waiting out the idle interval
  watch: true

consumer:
  idle_interval_ms: 500
  max_per_run: 0
  # Keep handled messages in archive/<consumer id> instead of deleting them
  archive: true
  watch: true

schema:
  # Compiled-in CommandBatch, GameStateSnapshot and HandoffEnvelope
  builtin: true
  # Directory of YAML definitions, consulted before the builtins
  definitions_dir: ""

# Schema family accepted by each channel
channels:
  commands:
    schema: CommandBatch
  snapshots:
    schema: GameStateSnapshot
  handoff:
    schema: HandoffEnvelope

logging:
  # debug, info, warn, error
  level: info
  # Console format: text or json. Files are always JSON.
  format: text
  file: ""
  max_size_mb: 10
  max_backups: 3
  compress: false
`
}
