package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Iron-Ham/filepipe/internal/config"
	"github.com/Iron-Ham/filepipe/internal/event"
	"github.com/Iron-Ham/filepipe/internal/logging"
	"github.com/Iron-Ham/filepipe/internal/schema"
	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// runtime is what every command needs once configuration is loaded.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *store.Store
	bus    *event.Bus
}

func newRuntime() (*runtime, error) {
	if configReadErr != nil {
		return nil, fmt.Errorf("failed to read config: %w", configReadErr)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.Logging.LoggerOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store.New(cfg.IPC.Root),
		bus:    event.NewBus(),
	}, nil
}

func (r *runtime) Close() {
	_ = r.logger.Close()
}

// channels resolves the channel arguments of a command, defaulting to every
// configured channel.
func (r *runtime) channels(args []string) ([]*store.Channel, error) {
	names := args
	if len(names) == 0 {
		names = r.cfg.ChannelNames()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no channels given and none configured")
	}
	out := make([]*store.Channel, 0, len(names))
	for _, name := range names {
		ch, err := r.store.Channel(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func (r *runtime) validator() (*schema.Validator, error) {
	src, err := r.cfg.Schema.SchemaSource()
	if err != nil {
		return nil, fmt.Errorf("failed to load schema definitions: %w", err)
	}
	return schema.NewValidator(src), nil
}

// reportDeadletters prints one line per deadlettered message to w. Events
// arrive from every router or consumer goroutine.
func (r *runtime) reportDeadletters(w io.Writer) {
	var mu sync.Mutex
	r.bus.Subscribe(event.TypeDeadlettered, func(e event.Event) {
		if me, ok := e.(event.MessageEvent); ok {
			mu.Lock()
			defer mu.Unlock()
			_, _ = fmt.Fprintf(w, "deadlettered %s/%s: %s\n", me.Channel, me.File, me.Reason)
		}
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// errDeadlettered is returned by --fail-on-deadletter runs.
type errDeadlettered struct {
	count int
}

func (e errDeadlettered) Error() string {
	return fmt.Sprintf("%d message(s) deadlettered", e.count)
}
