package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParsedRecord is one line item recovered from a statement's token stream.
type ParsedRecord struct {
	Date     time.Time
	Currency string          // "CNY" for 人民币, otherwise the printed label
	Amount   decimal.Decimal // signed, as printed
	Balance  decimal.Decimal // running balance after this record
	Channel  string
	Merchant string
}
