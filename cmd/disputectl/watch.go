package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/disputeops/internal/audit"
	"github.com/smallbiznis/disputeops/internal/authorization"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dispute"
	"github.com/smallbiznis/disputeops/internal/ingest"
	"github.com/smallbiznis/disputeops/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newWatchCmd() *cobra.Command {
	var (
		dropDir  string
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import batch files dropped under <dir>/<category>/ until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var sched *scheduler.Scheduler
			return withApp(cmd.Context(), func(ctx context.Context) error {
				if !sched.Enabled() {
					return errors.New("no drop directory: pass --dir or set INGEST_DROP_DIR")
				}
				if once {
					return sched.RunOnce(ctx)
				}
				sched.RunForever(ctx)
				return nil
			},
				fx.Decorate(func(cfg config.Config) config.Config {
					if dir := strings.TrimSpace(dropDir); dir != "" {
						cfg.Ingest.DropDir = dir
					}
					if interval > 0 {
						cfg.Ingest.PollInterval = interval
					}
					return cfg
				}),
				authorization.Module,
				audit.Module,
				dispute.Module,
				ingest.Module,
				fx.Provide(scheduler.ProvideConfig, scheduler.New),
				fx.Populate(&sched),
			)
		},
	}
	cmd.Flags().StringVar(&dropDir, "dir", "", "drop directory (defaults to INGEST_DROP_DIR)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (defaults to INGEST_POLL_INTERVAL_SECONDS)")
	cmd.Flags().BoolVar(&once, "once", false, "scan once and exit")
	return cmd
}
