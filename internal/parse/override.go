package parse

import (
	"strings"

	"github.com/Wimboro/gmail-wa/internal/models"
)

// The contextual override re-derives income/expense from the description
// text and takes precedence over the model's stated type. It is an ordered
// rule table evaluated first-match-wins; the final rule always matches.

// Keywords are the three lists the override table is built from. They are
// loadable from YAML so deployments can extend them without a rebuild.
type Keywords struct {
	// PaymentQualifiers mark a "pembayaran" as money going out. A bare
	// "pembayaran" without any of these is a payment received.
	PaymentQualifiers []string `yaml:"payment_qualifiers"`
	Income            []string `yaml:"income"`
	Expense           []string `yaml:"expense"`
}

// DefaultKeywords returns the compiled-in lists.
func DefaultKeywords() Keywords {
	return Keywords{
		PaymentQualifiers: []string{
			"kartu kredit",
			"credit card",
			"qris",
			"untuk",
			"tagihan",
			"bayar",
		},
		Income: []string{
			"transfer masuk",
			"dana masuk",
			"uang masuk",
			"diterima",
			"menerima",
			"gaji",
			"bonus",
			"refund",
			"pengembalian",
			"cashback",
			"bunga",
			"pendapatan",
			"penghasilan",
			"honor",
			"masuk",
		},
		Expense: []string{
			"transfer keluar",
			"pembelian",
			"belanja",
			"tarik tunai",
			"penarikan",
			"top up",
			"topup",
			"tagihan",
			"biaya",
			"admin",
			"beli",
			"bayar",
			"qris",
			"debit",
			"keluar",
		},
	}
}

// OverrideRule is one (predicate, verdict) entry of the override table.
type OverrideRule struct {
	Name    string
	Matches func(description string) bool
	Verdict models.TransactionType
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// BuildRules constructs the ordered table for a keyword set. Descriptions
// are lowercased before evaluation.
func BuildRules(kw Keywords) []OverrideRule {
	return []OverrideRule{
		{
			// "bayar" is itself a substring of "pembayaran", so the word is
			// blanked out before scanning for qualifiers.
			Name: "pembayaran with outgoing qualifier",
			Matches: func(d string) bool {
				if !strings.Contains(d, "pembayaran") {
					return false
				}
				rest := strings.ReplaceAll(d, "pembayaran", " ")
				return containsAny(rest, kw.PaymentQualifiers)
			},
			Verdict: models.TypeExpense,
		},
		{
			// A payment with no qualifier is ambiguous; the system reads it
			// as a payment received.
			Name: "bare pembayaran",
			Matches: func(d string) bool {
				return strings.Contains(d, "pembayaran")
			},
			Verdict: models.TypeIncome,
		},
		{
			Name: "selling",
			Matches: func(d string) bool {
				return strings.Contains(d, "penjualan") || strings.Contains(d, "jual")
			},
			Verdict: models.TypeIncome,
		},
		{
			Name: "income keyword",
			Matches: func(d string) bool {
				return containsAny(d, kw.Income)
			},
			Verdict: models.TypeIncome,
		},
		{
			Name: "expense keyword",
			Matches: func(d string) bool {
				return containsAny(d, kw.Expense)
			},
			Verdict: models.TypeExpense,
		},
		{
			Name:    "default",
			Matches: func(string) bool { return true },
			Verdict: models.TypeExpense,
		},
	}
}

// OverrideRules is the table built from the compiled-in keywords.
var OverrideRules = BuildRules(DefaultKeywords())

// DeriveTypeWith evaluates a rule table against a description and returns
// the winning verdict together with the name of the matched rule.
func DeriveTypeWith(rules []OverrideRule, description string) (models.TransactionType, string) {
	d := strings.ToLower(description)
	for _, rule := range rules {
		if rule.Matches(d) {
			return rule.Verdict, rule.Name
		}
	}
	// Unreachable: the final rule always matches.
	return models.TypeExpense, "default"
}

// DeriveType evaluates the default table.
func DeriveType(description string) (models.TransactionType, string) {
	return DeriveTypeWith(OverrideRules, description)
}
