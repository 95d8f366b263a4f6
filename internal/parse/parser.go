// Package parse turns extracted email text into typed transaction records
// via a single-shot LLM call with a closed schema contract.
package parse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/models"
	"github.com/Wimboro/gmail-wa/internal/pipeerror"
)

// Parser drives the prompt → completion → decode → normalize chain.
type Parser struct {
	llm      LLMClient
	registry models.BankRegistry
	rules    []OverrideRule
	logger   logging.Logger
	now      func() time.Time
}

// NewParser creates a Parser with the default override keywords. The
// registry constrains bank output; it must not be empty.
func NewParser(llm LLMClient, registry models.BankRegistry, logger logging.Logger) *Parser {
	return NewParserWithKeywords(llm, registry, DefaultKeywords(), logger)
}

// NewParserWithKeywords creates a Parser with a custom keyword set for the
// contextual type override.
func NewParserWithKeywords(llm LLMClient, registry models.BankRegistry, kw Keywords, logger logging.Logger) *Parser {
	return &Parser{
		llm:      llm,
		registry: registry,
		rules:    BuildRules(kw),
		logger:   logger,
		now:      time.Now,
	}
}

// Parse extracts one transaction from text. Every failure is returned as a
// *pipeerror.ParseError; the caller counts it and marks the message
// processed, never retries.
func (p *Parser) Parse(ctx context.Context, emailID, text string) (*models.ParsedTransaction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &pipeerror.ParseError{EmailID: emailID, Stage: "validate", Err: fmt.Errorf("empty input text")}
	}

	prompt := BuildPrompt(text, p.now(), p.registry)
	payload, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, &pipeerror.ParseError{EmailID: emailID, Stage: "llm", Err: err}
	}

	raw, err := decodeRaw(payload)
	if err != nil {
		return nil, &pipeerror.ParseError{EmailID: emailID, Stage: "json", Err: err}
	}

	tx, err := normalize(raw, p.now(), p.registry, p.rules, p.logger.WithField("email_id", emailID))
	if err != nil {
		return nil, &pipeerror.ParseError{EmailID: emailID, Stage: "validate", Err: err}
	}

	p.logger.WithFields(
		logging.Field{Key: "email_id", Value: emailID},
		logging.Field{Key: "type", Value: string(tx.Type)},
		logging.Field{Key: "amount", Value: tx.Amount.String()},
		logging.Field{Key: "category", Value: tx.Category},
		logging.Field{Key: "confidence", Value: tx.Confidence},
	).Debug("Parsed transaction from email")

	return tx, nil
}
