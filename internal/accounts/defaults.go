package accounts

// DefaultCounterAccount receives the unspecified leg of imported transactions
// until they are categorized by hand.
const DefaultCounterAccount = "Equity:UFO"

// DefaultChart returns the accounts a fresh config refers to for an importer
// type. Unknown types fall back to the checking account pair.
func DefaultChart(importerType string) []string {
	switch importerType {
	case "cmb-daily-email":
		return []string{"Liabilities:CreditCard:CMB", DefaultCounterAccount}
	default:
		return []string{"Assets:Bank:CMB:Checking", DefaultCounterAccount}
	}
}
