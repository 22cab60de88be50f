package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountNeg(t *testing.T) {
	a := NewAmount(decimal.RequireFromString("12.50"), "CNY")
	n := a.Neg()
	assert.Equal(t, "CNY", n.Currency)
	assert.True(t, n.Number.Equal(decimal.RequireFromString("-12.50")))
	assert.True(t, a.Equal(n.Neg()))
}

func TestAmountEqual_CurrencyMatters(t *testing.T) {
	a := NewAmount(decimal.NewFromInt(1), "CNY")
	b := NewAmount(decimal.NewFromInt(1), "USD")
	assert.False(t, a.Equal(b))
}

func TestEntryDate(t *testing.T) {
	d := time.Date(2020, 3, 28, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		&Balance{Date: d},
		&Transaction{Date: d},
	}
	for _, e := range entries {
		assert.Equal(t, d, e.EntryDate())
	}
}
