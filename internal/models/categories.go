package models

// CategoryFallback is assigned when the model cannot determine a category.
const CategoryFallback = "Lainnya"

// IncomeCategories is the closed set of categories valid for income
// transactions.
var IncomeCategories = []string{
	"Gaji",
	"Bonus",
	"Penjualan",
	"Investasi",
	"Hadiah",
	"Transfer Masuk",
	CategoryFallback,
}

// ExpenseCategories is the closed set of categories valid for expense
// transactions.
var ExpenseCategories = []string{
	"Makanan",
	"Transportasi",
	"Belanja",
	"Tagihan",
	"Kesehatan",
	"Pendidikan",
	"Hiburan",
	"Transfer Keluar",
	CategoryFallback,
}

// KnownCategory reports whether name belongs to either category set.
func KnownCategory(name string) bool {
	for _, c := range IncomeCategories {
		if c == name {
			return true
		}
	}
	for _, c := range ExpenseCategories {
		if c == name {
			return true
		}
	}
	return false
}
