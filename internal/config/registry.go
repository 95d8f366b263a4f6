package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Wimboro/gmail-wa/internal/models"
	"github.com/Wimboro/gmail-wa/internal/parse"
)

// LoadBankRegistry reads a bank registry from a YAML file. When path is
// empty or the file does not exist the built-in registry is returned.
func LoadBankRegistry(path string) (models.BankRegistry, error) {
	if path == "" {
		return models.DefaultBankRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Debugf("Bank registry file %s not found, using built-in registry", path)
			return models.DefaultBankRegistry(), nil
		}
		return nil, errors.Wrapf(err, "reading bank registry %s", path)
	}

	var registry models.BankRegistry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, errors.Wrapf(err, "parsing bank registry %s", path)
	}
	if len(registry) == 0 {
		Logger.Warnf("Bank registry %s is empty, using built-in registry", path)
		return models.DefaultBankRegistry(), nil
	}
	return registry, nil
}

// LoadKeywords reads the contextual override keyword lists from a YAML
// file. When path is empty or the file does not exist the compiled-in
// lists are returned. Lists absent from the file keep their defaults.
func LoadKeywords(path string) (parse.Keywords, error) {
	kw := parse.DefaultKeywords()
	if path == "" {
		return kw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Debugf("Keyword file %s not found, using built-in lists", path)
			return kw, nil
		}
		return kw, errors.Wrapf(err, "reading keyword file %s", path)
	}

	var loaded parse.Keywords
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return kw, errors.Wrapf(err, "parsing keyword file %s", path)
	}
	if len(loaded.PaymentQualifiers) > 0 {
		kw.PaymentQualifiers = loaded.PaymentQualifiers
	}
	if len(loaded.Income) > 0 {
		kw.Income = loaded.Income
	}
	if len(loaded.Expense) > 0 {
		kw.Expense = loaded.Expense
	}
	return kw, nil
}
