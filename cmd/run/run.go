// Package run contains the command that executes a single polling cycle.
package run

import (
	"context"

	"github.com/Wimboro/gmail-wa/cmd/root"
	"github.com/Wimboro/gmail-wa/internal/container"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Cmd is the run command
var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Poll all configured accounts once and exit.",
	Long: `Run executes one full polling cycle: list candidate emails for every
configured account, parse and record new transactions, send notifications
and mark the processed messages. It exits when the cycle completes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		c, err := container.NewContainer(ctx, root.Cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		summaries, err := c.Orchestrator().RunCycle(ctx)
		if err != nil {
			return err
		}
		for _, s := range summaries {
			root.Log.WithFields(logrus.Fields{
				"account":    s.AccountID,
				"processed":  s.Processed,
				"duplicates": s.Duplicates,
				"errors":     s.Errors,
			}).Info("Account cycle complete")
		}
		return nil
	},
}
