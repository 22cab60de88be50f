package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Flag marks the review state of a transaction.
type Flag string

const (
	FlagCleared    Flag = "*"
	FlagUnreviewed Flag = "!"
)

// Entry is a ledger directive produced by an importer: either a *Balance or
// a *Transaction.
type Entry interface {
	EntryDate() time.Time
	entry()
}

// Amount is a number with its commodity.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// NewAmount builds an Amount.
func NewAmount(n decimal.Decimal, currency string) Amount {
	return Amount{Number: n, Currency: currency}
}

// Neg returns the amount with its sign flipped.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Currency: a.Currency}
}

// Equal compares number and currency.
func (a Amount) Equal(b Amount) bool {
	return a.Currency == b.Currency && a.Number.Equal(b.Number)
}

// Balance asserts an account's balance as of the start of Date.
type Balance struct {
	Date    time.Time
	Account string
	Amount  Amount
}

func (b *Balance) EntryDate() time.Time { return b.Date }
func (*Balance) entry()                 {}

// Posting is one leg of a transaction. A nil Units leaves the amount to the
// ledger's balancing step.
type Posting struct {
	Account string
	Units   *Amount
}

// Transaction is a dated, flagged set of postings.
type Transaction struct {
	Date      time.Time
	Flag      Flag
	Payee     string
	Narration string
	Postings  []Posting
}

func (t *Transaction) EntryDate() time.Time { return t.Date }
func (*Transaction) entry()                 {}

var (
	_ Entry = (*Balance)(nil)
	_ Entry = (*Transaction)(nil)
)
