// Package container provides dependency injection for the application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/Wimboro/gmail-wa/internal/config"
	"github.com/Wimboro/gmail-wa/internal/extract"
	"github.com/Wimboro/gmail-wa/internal/handles"
	"github.com/Wimboro/gmail-wa/internal/ledger"
	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/mailbox"
	"github.com/Wimboro/gmail-wa/internal/models"
	"github.com/Wimboro/gmail-wa/internal/notify"
	"github.com/Wimboro/gmail-wa/internal/parse"
	"github.com/Wimboro/gmail-wa/internal/pipeerror"
	"github.com/Wimboro/gmail-wa/internal/recon"
)

// Container holds all application dependencies and provides methods to
// access them. It is immutable after creation - fields are private and
// exposed only through getters.
type Container struct {
	logger       logging.Logger
	config       *config.Config
	registry     models.BankRegistry
	handles      *handles.Handles
	ledger       ledger.Ledger
	orchestrator *recon.Orchestrator
}

// NewContainer creates and wires all application dependencies. Mailbox and
// ledger clients are created eagerly so misconfiguration surfaces at
// startup; the AI client and the notification session are created lazily
// on first use through handles.Handles.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// The same configured logrus instance backs both the cobra layer and
	// the pipeline's Logger abstraction.
	logger := logging.NewLogrusAdapterFromLogger(config.ConfigureLogging(cfg))

	registry, err := config.LoadBankRegistry(cfg.Banks.RegistryFile)
	if err != nil {
		return nil, err
	}
	keywords, err := config.LoadKeywords(cfg.Overrides.KeywordsFile)
	if err != nil {
		return nil, err
	}

	lg, err := buildLedger(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if len(cfg.Gmail.Accounts) == 0 {
		return nil, &pipeerror.ConfigError{Setting: "gmail.accounts", Reason: "at least one account is required"}
	}
	// One account that cannot be set up (bad token file, unreadable
	// credentials) is skipped, not fatal; only zero usable accounts
	// aborts startup.
	accounts := make([]recon.Account, 0, len(cfg.Gmail.Accounts))
	for _, acc := range cfg.Gmail.Accounts {
		mb, err := mailbox.NewGmailMailbox(ctx, acc.ID, cfg.Gmail.CredentialsFile, acc.TokenFile, cfg.Gmail.ProcessedLabel, logger)
		if err != nil {
			logger.WithError(err).WithField("account", acc.ID).Error("Cannot set up account, skipping it")
			continue
		}
		accounts = append(accounts, recon.Account{
			ID:      acc.ID,
			Mailbox: mb,
			Query:   cfg.QueryFor(acc),
		})
	}
	if len(accounts) == 0 {
		return nil, &pipeerror.ConfigError{Setting: "gmail.accounts", Reason: "no account could be set up"}
	}

	h := handles.New(
		func(ctx context.Context) (parse.LLMClient, error) {
			if cfg.AI.APIKey == "" {
				return nil, &pipeerror.ConfigError{Setting: "ai.api_key", Reason: "GEMINI_API_KEY is not set"}
			}
			return parse.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model, logger)
		},
		func(ctx context.Context) (notify.Sender, error) {
			return notify.NewWhatsAppSender(cfg.Notify.SessionDB, logger)
		},
	)

	batcher := notify.NewBatcher(
		&lazySender{handles: h},
		notify.Targets{Individual: cfg.Notify.Recipients, Group: cfg.Notify.Group},
		cfg.Notify.Threshold,
		time.Duration(cfg.Notify.TimeoutSeconds)*time.Second,
		logger,
	)

	orchestrator := recon.New(
		accounts,
		lg,
		extract.New(extract.TokenStripper{}, logger),
		&lazyParser{handles: h, registry: registry, keywords: keywords, logger: logger},
		batcher,
		logger,
		recon.Options{
			FetchWidth: cfg.Poll.FetchWidth,
			LLMTimeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			AuditCSV:   cfg.Ledger.AuditCSV,
		},
	)

	return &Container{
		logger:       logger,
		config:       cfg,
		registry:     registry,
		handles:      h,
		ledger:       lg,
		orchestrator: orchestrator,
	}, nil
}

func buildLedger(ctx context.Context, cfg *config.Config, logger logging.Logger) (ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case "sqlite":
		return ledger.NewSQLiteLedger(cfg.Ledger.SQLitePath)
	case "sheets":
		if cfg.Ledger.SpreadsheetID == "" {
			return nil, &pipeerror.ConfigError{Setting: "ledger.spreadsheet_id", Reason: "required for the sheets backend"}
		}
		return ledger.NewSheetsLedger(ctx, cfg.Ledger.CredentialsFile, cfg.Ledger.SpreadsheetID, cfg.Ledger.SheetName, logger)
	default:
		return nil, &pipeerror.ConfigError{Setting: "ledger.backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Ledger.Backend)}
	}
}

// Logger returns the application logger.
func (c *Container) Logger() logging.Logger { return c.logger }

// Config returns the application configuration.
func (c *Container) Config() *config.Config { return c.config }

// Orchestrator returns the reconciliation orchestrator.
func (c *Container) Orchestrator() *recon.Orchestrator { return c.orchestrator }

// Close releases all held resources: the lazy AI and notification handles
// plus the ledger connection when it owns one.
func (c *Container) Close() {
	c.handles.Close()
	if closer, ok := c.ledger.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to close ledger")
		}
	}
}

// lazyParser resolves the shared AI client on first parse so a missing API
// key only fails when a message actually needs parsing.
type lazyParser struct {
	handles  *handles.Handles
	registry models.BankRegistry
	keywords parse.Keywords
	logger   logging.Logger
}

func (p *lazyParser) Parse(ctx context.Context, emailID, text string) (*models.ParsedTransaction, error) {
	llm, err := p.handles.LLM(ctx)
	if err != nil {
		return nil, &pipeerror.ParseError{EmailID: emailID, Stage: "llm", Err: err}
	}
	return parse.NewParserWithKeywords(llm, p.registry, p.keywords, p.logger).Parse(ctx, emailID, text)
}

// lazySender resolves the shared notification session on first send.
type lazySender struct {
	handles *handles.Handles
}

func (s *lazySender) Send(ctx context.Context, target, text string) error {
	sender, err := s.handles.Sender(ctx)
	if err != nil {
		return err
	}
	return sender.Send(ctx, target, text)
}
