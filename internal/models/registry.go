package models

import (
	"sort"
	"strings"
)

// BankAccount describes one entry of the bank registry.
type BankAccount struct {
	Owner       string `yaml:"owner"`
	Institution string `yaml:"institution"`
}

// BankRegistry is the closed mapping from canonical account label to its
// owner and institution. The parser only ever emits labels present here;
// anything else is normalized to "no bank".
type BankRegistry map[string]BankAccount

// DefaultBankRegistry returns the compiled-in registry used when no YAML
// override is configured.
func DefaultBankRegistry() BankRegistry {
	return BankRegistry{
		"Mandiri Wimboro": {Owner: "Wimboro", Institution: "Bank Mandiri"},
		"Jago Wimboro":    {Owner: "Wimboro", Institution: "Bank Jago"},
		"Jago Fara":       {Owner: "Fara", Institution: "Bank Jago"},
		"BCA Fara":        {Owner: "Fara", Institution: "Bank BCA"},
		"SeaBank Wimboro": {Owner: "Wimboro", Institution: "SeaBank"},
	}
}

// Labels returns the registry keys in sorted order, for stable prompts and
// logs.
func (r BankRegistry) Labels() []string {
	labels := make([]string, 0, len(r))
	for label := range r {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Match resolves a model-reported bank name against the registry. An exact
// key match wins; otherwise the first case-insensitive substring match in
// either direction is accepted. Returns "" when nothing matches — a bank
// name is never invented.
func (r BankRegistry) Match(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if _, ok := r[name]; ok {
		return name
	}
	lower := strings.ToLower(name)
	for _, label := range r.Labels() {
		labelLower := strings.ToLower(label)
		if strings.Contains(labelLower, lower) || strings.Contains(lower, labelLower) {
			return label
		}
	}
	return ""
}
