package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Iron-Ham/filepipe/internal/consumer"
	"github.com/Iron-Ham/filepipe/internal/runner"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume <channel>...",
	Short: "Claim and handle messages from channel outboxes",
	Long: `Run a consumer on each channel. Every outbox file is claimed into
processing/<id>/ by rename; of several consumers racing for a file exactly
one wins. After handling, the file moves to archive/<id>/ (or is deleted with
--no-archive). A failed handler deadletters the file with its error as the
reason.

Without --exec each message is printed to stdout as "<name>\t<compact json>".
With --exec the command runs once per message with the message on stdin;
a non-zero exit fails the message.

Files left in processing/<id>/ by an interrupted run are handled first, so
restart a consumer with the same --id to resume its work.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConsume,
}

var (
	consumeID               string
	consumeExec             string
	consumeMatch            string
	consumeNoArchive        bool
	consumeOnce             bool
	consumeMax              int
	consumeFailOnDeadletter bool
)

func init() {
	consumeCmd.Flags().StringVar(&consumeID, "id", "", "consumer ID scoping processing/<id> and archive/<id> (required)")
	consumeCmd.Flags().StringVar(&consumeExec, "exec", "", "command to run per message, split like a shell word list, e.g. \"./handle.sh --tag 'two words'\"")
	consumeCmd.Flags().StringVar(&consumeMatch, "match", "", "only claim outbox files whose name matches this glob")
	consumeCmd.Flags().BoolVar(&consumeNoArchive, "no-archive", false, "delete handled messages instead of archiving them")
	consumeCmd.Flags().BoolVar(&consumeOnce, "once", false, "make a single pass and exit")
	consumeCmd.Flags().IntVar(&consumeMax, "max", -1, "messages per pass per channel, 0 = unlimited (default: consumer.max_per_run)")
	consumeCmd.Flags().BoolVar(&consumeFailOnDeadletter, "fail-on-deadletter", false, "with --once, exit non-zero if any message was deadlettered")
	_ = consumeCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(consumeCmd)
}

func runConsume(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	channels, err := rt.channels(args)
	if err != nil {
		return err
	}

	handler := printHandler(cmd.OutOrStdout())
	argv, err := execArgs(consumeExec)
	if err != nil {
		return err
	}
	if len(argv) > 0 {
		handler = consumer.ExecHandler(argv[0], argv[1:]...)
	}
	maxPerRun := rt.cfg.Consumer.MaxPerRun
	if consumeMax >= 0 {
		maxPerRun = consumeMax
	}
	archive := rt.cfg.Consumer.Archive && !consumeNoArchive

	rt.reportDeadletters(cmd.ErrOrStderr())
	loops := make([]*consumer.Loop, 0, len(channels))
	for _, ch := range channels {
		loop, err := consumer.New(ch, consumeID, handler,
			consumer.WithLogger(rt.logger),
			consumer.WithBus(rt.bus),
			consumer.WithMaxPerRun(maxPerRun),
			consumer.WithIdleInterval(rt.cfg.Consumer.IdleInterval()),
			consumer.WithWatch(rt.cfg.Consumer.Watch),
			consumer.WithArchive(archive),
			consumer.WithMatch(consumeMatch),
		)
		if err != nil {
			return err
		}
		loops = append(loops, loop)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if consumeOnce {
		return consumeOncePass(ctx, cmd, loops)
	}

	r := runner.New(rt.logger)
	for _, l := range loops {
		r.Add("consumer "+l.Channel()+"/"+l.ID(), l)
	}
	return r.Run(ctx)
}

func consumeOncePass(ctx context.Context, cmd *cobra.Command, loops []*consumer.Loop) error {
	out := cmd.ErrOrStderr()
	deadlettered := 0
	for _, l := range loops {
		res, err := l.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("consume %s: %w", l.Channel(), err)
		}
		deadlettered += res.Deadlettered
		_, _ = fmt.Fprintf(out, "%s: handled %d, deadlettered %d, lost %d\n",
			l.Channel(), res.Succeeded, res.Deadlettered, res.Lost)
	}
	if consumeFailOnDeadletter && deadlettered > 0 {
		return errDeadlettered{count: deadlettered}
	}
	return nil
}

// printHandler writes each message as one line: its name, a tab and the
// compacted JSON.
func printHandler(w io.Writer) consumer.Handler {
	var mu sync.Mutex
	return consumer.HandlerFunc(func(msg consumer.Message) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintf(w, "%s\t%s\n", msg.Name, msg.Get("@ugly").Raw)
		return err
	})
}

// execArgs splits the --exec value into argv. Quotes and backslash escapes
// group words as in a POSIX shell; no expansion is performed.
func execArgs(s string) ([]string, error) {
	argv, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --exec %q: %w", s, err)
	}
	return argv, nil
}
