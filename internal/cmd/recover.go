package cmd

import (
	"fmt"

	"github.com/Iron-Ham/filepipe/internal/event"
	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover <channel>...",
	Short: "Return stranded in-flight messages to their queue",
	Long: `Move messages left in routing/<router id>/ back to inbox/ and messages
left in processing/<consumer id>/ back to outbox/, so any router or consumer
can pick them up.

A router or consumer restarted with the same ID resumes its own leftovers
without this command. Use recover when that ID will not come back. Only run
it for owners that are not running, or a message may be handled twice.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecover,
}

var (
	recoverRouter   string
	recoverConsumer string
	recoverAll      bool
)

func init() {
	recoverCmd.Flags().StringVar(&recoverRouter, "router", "", "requeue routing/<id>")
	recoverCmd.Flags().StringVar(&recoverConsumer, "consumer", "", "requeue processing/<id>")
	recoverCmd.Flags().BoolVar(&recoverAll, "all", false, "requeue every routing and processing owner")
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	if !recoverAll && recoverRouter == "" && recoverConsumer == "" {
		return fmt.Errorf("specify --router, --consumer or --all")
	}

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
	rt.bus.Subscribe(event.TypeRequeued, func(e event.Event) {
		if me, ok := e.(event.MessageEvent); ok {
			rt.logger.Debug("requeued", "channel", me.Channel, "file", me.File, "from", me.From, "to", me.To)
		}
	})

	total, kept := 0, 0
	for _, ch := range channels {
		locs, err := recoverLocations(ch)
		if err != nil {
			return err
		}
		for _, loc := range locs {
			target, _ := loc.RequeueTarget()
			moved, skipped, err := ch.Requeue(loc)
			for _, name := range moved {
				rt.bus.Publish(event.NewRequeuedEvent(ch.Name(), name, loc.String(), target.String()))
			}
			total += len(moved)
			if len(moved) > 0 {
				rt.logger.Info("requeued stranded messages", "channel", ch.Name(), "from", loc.String(), "count", len(moved))
				_, _ = fmt.Fprintf(out, "%s: requeued %d from %s to %s\n", ch.Name(), len(moved), loc, target)
			}
			kept += len(skipped)
			for _, name := range skipped {
				_, _ = fmt.Fprintf(out, "%s: kept %s/%s, %s/%s already exists\n", ch.Name(), loc, name, target, name)
			}
			if err != nil {
				return err
			}
		}
	}
	if total == 0 && kept == 0 {
		_, _ = fmt.Fprintln(out, "nothing to recover")
	}
	return nil
}

// recoverLocations lists the in-flight locations selected by the flags.
func recoverLocations(ch *store.Channel) ([]store.Location, error) {
	var locs []store.Location
	if recoverAll {
		for _, state := range []store.State{store.StateRouting, store.StateProcessing} {
			owners, err := ch.Owners(state)
			if err != nil {
				return nil, err
			}
			for _, owner := range owners {
				locs = append(locs, store.Location{State: state, Owner: owner})
			}
		}
		return locs, nil
	}
	if recoverRouter != "" {
		locs = append(locs, store.Routing(recoverRouter))
	}
	if recoverConsumer != "" {
		locs = append(locs, store.Processing(recoverConsumer))
	}
	for _, loc := range locs {
		if err := loc.Validate(); err != nil {
			return nil, err
		}
	}
	return locs, nil
}
