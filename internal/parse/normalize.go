package parse

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/models"
)

const defaultConfidence = 70

// normalize validates the intermediate schema and produces the
// fully-defaulted ParsedTransaction. An unusable amount or a record with
// neither a transaction type nor a description rejects the whole record.
func normalize(raw *rawTransaction, today time.Time, registry models.BankRegistry, rules []OverrideRule, log logging.Logger) (*models.ParsedTransaction, error) {
	description := stringOr(raw.Description, "")

	if raw.Amount == nil {
		return nil, fmt.Errorf("model returned no amount")
	}
	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw.Amount.String(), err)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("zero amount")
	}

	modelType := models.TransactionType(stringOr(raw.Type, ""))
	if !modelType.IsValid() && description == "" {
		return nil, fmt.Errorf("no transaction type and no description to derive one from")
	}

	// The contextual override always decides the final type; the model's
	// own signal is only logged when it disagrees.
	finalType, rule := DeriveTypeWith(rules, description)
	if modelType.IsValid() && modelType != finalType {
		log.WithFields(
			logging.Field{Key: "model_type", Value: string(modelType)},
			logging.Field{Key: "override_type", Value: string(finalType)},
			logging.Field{Key: "rule", Value: rule},
		).Debug("Contextual override replaced model transaction type")
	}

	amount = amount.Abs()
	if finalType == models.TypeExpense {
		amount = amount.Neg()
	}

	date := today.Format(models.DateLayout)
	if raw.Date != nil && *raw.Date != "" {
		if _, err := time.Parse(models.DateLayout, *raw.Date); err == nil {
			date = *raw.Date
		} else {
			log.WithField("date", *raw.Date).Warn("Malformed date from model, using processing day")
		}
	}

	category := stringOr(raw.Category, "")
	if category == "" {
		category = models.CategoryFallback
	} else if !models.KnownCategory(category) {
		log.WithField("category", category).Warn("Unknown category from model, using fallback")
		category = models.CategoryFallback
	}

	var bank *string
	if name := stringOr(raw.Bank, ""); name != "" {
		if matched := registry.Match(name); matched != "" {
			bank = &matched
		} else {
			log.WithField("bank", name).Warn("Bank name not in registry, dropping")
		}
	}

	confidence := defaultConfidence
	if raw.Confidence != nil {
		if f, err := raw.Confidence.Float64(); err == nil {
			confidence = int(math.Round(f))
		}
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 100 {
		confidence = 100
	}

	return &models.ParsedTransaction{
		Date:           date,
		Amount:         amount,
		Category:       category,
		Description:    description,
		Type:           finalType,
		Bank:           bank,
		Confidence:     confidence,
		AdditionalInfo: stringExtras(raw.AdditionalInfo),
	}, nil
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
