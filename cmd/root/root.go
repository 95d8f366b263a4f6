// Package root contains the root command for the application
package root

import (
	"github.com/Wimboro/gmail-wa/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// Cfg is the configuration loaded by the root command's PersistentPreRun.
	Cfg *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "gmail-wa",
		Short: "Poll Gmail for bank transaction emails and post them to a ledger.",
		Long: `gmail-wa polls one or more Gmail inboxes for transaction notification
emails, extracts and parses each transaction with an AI model, records new
entries in a ledger and sends WhatsApp notifications for what was recorded.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to gmail-wa!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()

			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := config.InitializeConfig(configDir)
			if err != nil {
				return err
			}
			Cfg = cfg
			Log = config.ConfigureLogging(cfg)
			return nil
		},
	}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringP("config", "c", "", "Config file directory (defaults to . and $HOME/.gmail-wa)")
}
