package cmd

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/filepipe/internal/tui"
	"github.com/spf13/cobra"
)

var topCmd = &cobra.Command{
	Use:   "top [channel...]",
	Short: "Live dashboard of channel queues",
	Long: `Show a continuously refreshing view of every channel's queues, in-flight
owners and recent deadletters. Use 'filepipe status' when not attached to a
terminal.`,
	RunE: runTop,
}

var (
	topInterval time.Duration
	topReasons  int
)

func init() {
	topCmd.Flags().DurationVar(&topInterval, "interval", tui.DefaultRefreshInterval, "refresh interval")
	topCmd.Flags().IntVar(&topReasons, "reasons", 5, "recent deadletter reasons to keep per channel")
	rootCmd.AddCommand(topCmd)
}

func runTop(cmd *cobra.Command, args []string) error {
	if !isTerminal(cmd.OutOrStdout()) {
		return fmt.Errorf("top needs a terminal; use 'filepipe status' instead")
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	return tui.New(tui.Loader(rt.store, args, topReasons), topInterval).Run()
}
