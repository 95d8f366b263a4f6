package parse

import (
	"strings"
	"time"

	"github.com/Wimboro/gmail-wa/internal/models"
)

// BuildPrompt embeds the extracted email text, the processing date and the
// bank registry into the closed-schema instruction set. The schema contract
// tells the model to emit null for anything it cannot determine rather than
// guessing.
func BuildPrompt(text string, today time.Time, registry models.BankRegistry) string {
	var b strings.Builder

	b.WriteString("You are a financial transaction extractor for Indonesian bank and e-wallet notification emails.\n\n")
	b.WriteString("Task: read the email text below and extract exactly one transaction.\n")
	b.WriteString("Output STRICT JSON only: a single object, no comments, no trailing commas, no surrounding text.\n")
	b.WriteString("Do NOT wrap the response in code fences or Markdown.\n\n")

	b.WriteString("The object must have these fields:\n")
	b.WriteString("- \"date\": string \"YYYY-MM-DD\", or null if the email does not state a date. Today is " + today.Format(models.DateLayout) + ".\n")
	b.WriteString("- \"amount\": number, the transaction value without currency symbols or thousand separators, or null if no amount is stated. Never invent an amount.\n")
	b.WriteString("- \"transaction_type\": \"income\" or \"expense\", or null if truly ambiguous.\n")
	b.WriteString("- \"category\": for income one of [" + strings.Join(models.IncomeCategories, ", ") + "]; for expense one of [" + strings.Join(models.ExpenseCategories, ", ") + "]; or null if unsure.\n")
	b.WriteString("- \"description\": string, a short human-readable summary in the language of the email.\n")
	b.WriteString("- \"bank\": exactly one of [" + strings.Join(registry.Labels(), ", ") + "], or null if none of these accounts is involved.\n")
	b.WriteString("- \"confidence\": integer 0-100, your certainty in this extraction.\n")
	b.WriteString("- \"additional_info\": object with optional string fields \"counterparty\", \"reference\", \"merchant\", \"location\", or null.\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Set any field you cannot determine to null. Do not guess.\n")
	b.WriteString("- \"income\" means money received into the account, \"expense\" means money spent or sent.\n")
	b.WriteString("- Output the amount as a positive number; the sign is derived from transaction_type downstream.\n\n")

	b.WriteString("Email text:\n")
	b.WriteString(text)
	b.WriteString("\n")

	return b.String()
}
