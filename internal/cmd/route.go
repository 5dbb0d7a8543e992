package cmd

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/filepipe/internal/router"
	"github.com/Iron-Ham/filepipe/internal/runner"
	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route [channel...]",
	Short: "Validate inbox messages and route them to outbox or deadletter",
	Long: `Run a router on each channel (default: every configured channel).

Each inbox file is claimed into routing/<router id>/ by rename, validated
against the channel's schema family, then moved to outbox/ or to
deadletter/ with a reason file. Files left in routing/<router id>/ by an
interrupted run are finished first.

By default the router runs until interrupted. With --once it makes a single
pass and exits; environment failures exit non-zero.`,
	RunE: runRoute,
}

var (
	routeOnce             bool
	routeMax              int
	routeID               string
	routeFailOnDeadletter bool
)

func init() {
	routeCmd.Flags().BoolVar(&routeOnce, "once", false, "make a single pass and exit")
	routeCmd.Flags().IntVar(&routeMax, "max", -1, "messages per pass per channel, 0 = unlimited (default: router.max_per_run)")
	routeCmd.Flags().StringVar(&routeID, "id", "", "router ID (default: router.id or a random ID)")
	routeCmd.Flags().BoolVar(&routeFailOnDeadletter, "fail-on-deadletter", false, "with --once, exit non-zero if any message was deadlettered")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	channels, err := rt.channels(args)
	if err != nil {
		return err
	}
	validator, err := rt.validator()
	if err != nil {
		return err
	}

	id := firstNonEmpty(routeID, rt.cfg.Router.ID, "router-"+uuid.NewString()[:8])
	if err := store.ValidateName(id); err != nil {
		return fmt.Errorf("invalid router id: %w", err)
	}
	maxPerRun := rt.cfg.Router.MaxPerRun
	if routeMax >= 0 {
		maxPerRun = routeMax
	}

	rt.reportDeadletters(cmd.ErrOrStderr())
	routers := make([]*router.Router, 0, len(channels))
	for _, ch := range channels {
		routers = append(routers, router.New(ch, validator,
			router.WithID(id),
			router.WithFamily(rt.cfg.Family(ch.Name())),
			router.WithLogger(rt.logger),
			router.WithBus(rt.bus),
			router.WithMaxPerRun(maxPerRun),
			router.WithIdleInterval(rt.cfg.Router.IdleInterval()),
			router.WithWatch(rt.cfg.Router.Watch),
		))
	}
	rt.logger.Info("routing", "router_id", id, "channels", len(routers), "tier", string(validator.Tier()), "once", routeOnce)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if routeOnce {
		return routeOncePass(ctx, cmd, routers)
	}

	r := runner.New(rt.logger)
	for _, rr := range routers {
		r.Add("router "+rr.Channel(), rr)
	}
	return r.Run(ctx)
}

func routeOncePass(ctx context.Context, cmd *cobra.Command, routers []*router.Router) error {
	out := cmd.OutOrStdout()
	deadlettered := 0
	for _, r := range routers {
		res, err := r.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("route %s: %w", r.Channel(), err)
		}
		deadlettered += res.Deadlettered
		_, _ = fmt.Fprintf(out, "%s: routed %d, deadlettered %d, lost %d\n",
			r.Channel(), res.Routed, res.Deadlettered, res.Lost)
		if res.Skipped > 0 {
			_, _ = fmt.Fprintf(out, "%s: skipped %d inbox file(s) that could not be claimed\n", r.Channel(), res.Skipped)
		}
	}
	if routeFailOnDeadletter && deadlettered > 0 {
		return errDeadlettered{count: deadlettered}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
