// Package cmd implements the filepipe command line.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/filepipe/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// localConfigFile is picked up from the working directory when no --config
// flag is given.
const localConfigFile = "filepipe.yaml"

var rootCmd = &cobra.Command{
	Use:   "filepipe",
	Short: "File-based message channels between independent processes",
	Long: `filepipe moves JSON messages between processes through directories.

Producers write into a channel's inbox. A router validates each message and
moves it to the outbox or to deadletter with a reason. Consumers claim
messages from the outbox by atomic rename, so each message is handled by
exactly one of them.`,
	SilenceUsage: true,
}

// configReadErr records a failure to read an explicitly chosen config file.
var configReadErr error

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./filepipe.yaml or $HOME/.config/filepipe/config.yaml)")
	rootCmd.PersistentFlags().String("root", "", "IPC root directory (overrides ipc.root)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func initConfig() {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("ipc.root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Set defaults first so they're available even without a config file
	config.SetDefaults()
	configReadErr = nil

	explicit := true
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if _, err := os.Stat(localConfigFile); err == nil {
		viper.SetConfigFile(localConfigFile)
	} else {
		explicit = false
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FILEPIPE")
	// e.g., FILEPIPE_IPC_ROOT for ipc.root
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			configReadErr = err
		}
	}
}
