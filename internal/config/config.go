// Package config provides Viper-based hierarchical configuration for the
// service: defaults, then config.yaml, then environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Wimboro/gmail-wa/internal/pipeerror"
)

// AccountConfig describes one polled mail account.
type AccountConfig struct {
	ID        string `mapstructure:"id" yaml:"id"`
	TokenFile string `mapstructure:"token_file" yaml:"token_file"`
	Query     string `mapstructure:"query" yaml:"query"` // overrides poll.query when set
}

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Poll struct {
		IntervalMinutes int    `mapstructure:"interval_minutes" yaml:"interval_minutes"`
		Query           string `mapstructure:"query" yaml:"query"`
		FetchWidth      int    `mapstructure:"fetch_width" yaml:"fetch_width"`
	} `mapstructure:"poll" yaml:"poll"`

	Gmail struct {
		CredentialsFile string          `mapstructure:"credentials_file" yaml:"credentials_file"`
		ProcessedLabel  string          `mapstructure:"processed_label" yaml:"processed_label"`
		Accounts        []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	} `mapstructure:"gmail" yaml:"gmail"`

	AI struct {
		Model          string `mapstructure:"model" yaml:"model"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		APIKey         string `mapstructure:"api_key" yaml:"-"` // never serialize
	} `mapstructure:"ai" yaml:"ai"`

	Ledger struct {
		Backend         string `mapstructure:"backend" yaml:"backend"` // "sheets" or "sqlite"
		SpreadsheetID   string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id"`
		SheetName       string `mapstructure:"sheet_name" yaml:"sheet_name"`
		CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
		SQLitePath      string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
		AuditCSV        string `mapstructure:"audit_csv" yaml:"audit_csv"`
	} `mapstructure:"ledger" yaml:"ledger"`

	Notify struct {
		Threshold      int      `mapstructure:"threshold" yaml:"threshold"`
		Recipients     []string `mapstructure:"recipients" yaml:"recipients"`
		Group          string   `mapstructure:"group" yaml:"group"`
		SessionDB      string   `mapstructure:"session_db" yaml:"session_db"`
		TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	} `mapstructure:"notify" yaml:"notify"`

	Banks struct {
		RegistryFile string `mapstructure:"registry_file" yaml:"registry_file"`
	} `mapstructure:"banks" yaml:"banks"`

	Overrides struct {
		KeywordsFile string `mapstructure:"keywords_file" yaml:"keywords_file"`
	} `mapstructure:"overrides" yaml:"overrides"`
}

// InitializeConfig loads configuration with hierarchical precedence:
// defaults, then config.yaml, then GMAILWA_* environment variables.
// Extra directories to search for config.yaml may be passed; they take
// precedence over the default search path.
func InitializeConfig(configDirs ...string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range configDirs {
		if dir != "" {
			v.AddConfigPath(dir)
		}
	}
	v.AddConfigPath("$HOME/.gmail-wa")
	v.AddConfigPath(".gmail-wa")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GMAILWA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// A malformed file should not kill startup: defaults and env
			// vars still apply.
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// Secrets come from unprefixed environment variables.
	for key, env := range map[string]string{
		"ai.api_key":            "GEMINI_API_KEY",
		"ledger.spreadsheet_id": "SPREADSHEET_ID",
	} {
		if err := v.BindEnv(key, env); err != nil {
			fmt.Printf("Warning: failed to bind %s: %v\n", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("poll.interval_minutes", 15)
	v.SetDefault("poll.query", "is:unread (subject:transaksi OR subject:transfer OR subject:pembayaran OR subject:mutasi)")
	v.SetDefault("poll.fetch_width", 4)

	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.processed_label", "gmail-wa/processed")

	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.timeout_seconds", 45)

	v.SetDefault("ledger.backend", "sheets")
	v.SetDefault("ledger.sheet_name", "Transactions")
	v.SetDefault("ledger.sqlite_path", "ledger.db")

	v.SetDefault("notify.threshold", 5)
	v.SetDefault("notify.session_db", "whatsapp-session.db")
	v.SetDefault("notify.timeout_seconds", 20)
}

func validateConfig(c *Config) error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return &pipeerror.ConfigError{Setting: "log.level", Reason: fmt.Sprintf("invalid value %q", c.Log.Level)}
	}
	if c.Poll.IntervalMinutes < 1 {
		return &pipeerror.ConfigError{Setting: "poll.interval_minutes", Reason: "must be at least 1"}
	}
	if c.Notify.Threshold < 1 {
		return &pipeerror.ConfigError{Setting: "notify.threshold", Reason: "must be at least 1"}
	}
	switch c.Ledger.Backend {
	case "sheets", "sqlite":
	default:
		return &pipeerror.ConfigError{Setting: "ledger.backend", Reason: fmt.Sprintf("unknown backend %q", c.Ledger.Backend)}
	}
	return nil
}

// QueryFor returns the poll query for one account, falling back to the
// global query.
func (c *Config) QueryFor(account AccountConfig) string {
	if account.Query != "" {
		return account.Query
	}
	return c.Poll.Query
}
