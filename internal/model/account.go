package model

import "strings"

// AccountType is the root component of a beancount account name.
type AccountType string

const (
	AccountTypeAsset     AccountType = "Assets"
	AccountTypeLiability AccountType = "Liabilities"
	AccountTypeEquity    AccountType = "Equity"
	AccountTypeIncome    AccountType = "Income"
	AccountTypeExpense   AccountType = "Expenses"
)

// AccountTypes lists the valid account roots in ledger order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeIncome,
	AccountTypeExpense,
}

// TypeOf returns the root type of a colon-separated account name.
// "Assets:Bank:Checking" -> AccountTypeAsset
func TypeOf(account string) AccountType {
	root, _, _ := strings.Cut(account, ":")
	return AccountType(root)
}

// Valid reports whether t is one of the five account roots.
func (t AccountType) Valid() bool {
	for _, at := range AccountTypes {
		if t == at {
			return true
		}
	}
	return false
}
