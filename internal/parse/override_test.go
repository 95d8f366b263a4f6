package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Wimboro/gmail-wa/internal/models"
)

func TestDeriveType(t *testing.T) {
	tests := []struct {
		description string
		want        models.TransactionType
		wantRule    string
	}{
		// Pembayaran with an outgoing qualifier is always expense,
		// whatever else the text contains.
		{"Pembayaran kartu kredit BCA", models.TypeExpense, "pembayaran with outgoing qualifier"},
		{"Pembayaran QRIS Warung Makan", models.TypeExpense, "pembayaran with outgoing qualifier"},
		{"pembayaran untuk sewa kos", models.TypeExpense, "pembayaran with outgoing qualifier"},
		{"Pembayaran tagihan listrik", models.TypeExpense, "pembayaran with outgoing qualifier"},
		{"Gaji masuk dan pembayaran credit card", models.TypeExpense, "pembayaran with outgoing qualifier"},

		// Bare pembayaran is ambiguous and defaults to income.
		{"Pembayaran dari klien proyek", models.TypeIncome, "bare pembayaran"},

		// Selling is always income.
		{"Penjualan barang bekas", models.TypeIncome, "selling"},
		{"hasil jual laptop", models.TypeIncome, "selling"},

		// Plain keyword scans.
		{"Transfer masuk dari Budi", models.TypeIncome, "income keyword"},
		{"Gaji bulan Januari", models.TypeIncome, "income keyword"},
		{"Belanja bulanan di supermarket", models.TypeExpense, "expense keyword"},
		{"Tarik tunai ATM", models.TypeExpense, "expense keyword"},

		// No keyword at all defaults to expense.
		{"Starbucks Grand Indonesia", models.TypeExpense, "default"},
		{"", models.TypeExpense, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got, rule := DeriveType(tt.description)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestOverrideRulesLastRuleAlwaysMatches(t *testing.T) {
	last := OverrideRules[len(OverrideRules)-1]
	assert.True(t, last.Matches("anything"))
	assert.True(t, last.Matches(""))
	assert.Equal(t, models.TypeExpense, last.Verdict)
}
