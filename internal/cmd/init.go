package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [channel...]",
	Short: "Create the directory layout for channels",
	Long: `Create inbox/, outbox/ and deadletter/ for each channel under the IPC root.
Without arguments every configured channel is initialized. Existing
directories and messages are left alone.`,
	RunE: runInit,
}

var initWriteConfig bool

func init() {
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false, "also write a default ./filepipe.yaml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	channels, err := rt.channels(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, ch := range channels {
		if err := ch.EnsureLayout(); err != nil {
			return err
		}
		rt.logger.Debug("channel initialized", "channel", ch.Name(), "dir", ch.Dir())
		_, _ = fmt.Fprintf(out, "initialized %s (%s)\n", ch.Name(), ch.Dir())
	}

	if initWriteConfig {
		if _, err := os.Stat(localConfigFile); err == nil {
			return fmt.Errorf("%s already exists", localConfigFile)
		}
		if err := os.WriteFile(localConfigFile, []byte(configTemplate(rt.cfg.IPC.Root)), 0o644); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		_, _ = fmt.Fprintf(out, "wrote %s\n", localConfigFile)
	}
	return nil
}
