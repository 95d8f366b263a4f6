// Package watch contains the command that polls on a fixed interval until
// interrupted.
package watch

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wimboro/gmail-wa/cmd/root"
	"github.com/Wimboro/gmail-wa/internal/container"
	"github.com/Wimboro/gmail-wa/internal/recon"

	"github.com/spf13/cobra"
)

// Cmd is the watch command
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll all configured accounts on an interval until interrupted.",
	Long: `Watch runs polling cycles on the configured interval. A cycle that is
still running when the next tick fires is left alone and the tick is
skipped. SIGINT or SIGTERM stops after the message currently being
processed is finished.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseCtx := cmd.Context()
		if baseCtx == nil {
			baseCtx = context.Background()
		}
		ctx, stop := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := container.NewContainer(ctx, root.Cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		interval := time.Duration(root.Cfg.Poll.IntervalMinutes) * time.Minute
		root.Log.WithField("interval", interval).Info("Watching for new transaction emails")

		runOnce(ctx, c)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				root.Log.Info("Shutting down")
				return nil
			case <-ticker.C:
				runOnce(ctx, c)
			}
		}
	},
}

func runOnce(ctx context.Context, c *container.Container) {
	if ctx.Err() != nil {
		return
	}
	if _, err := c.Orchestrator().RunCycle(ctx); err != nil {
		switch {
		case errors.Is(err, recon.ErrCycleInProgress):
			root.Log.Warn("Previous cycle still running, skipping tick")
		case errors.Is(err, context.Canceled):
			// Shutdown requested mid-cycle; the ctx.Done case reports it.
		default:
			root.Log.WithError(err).Error("Polling cycle failed")
		}
	}
}
