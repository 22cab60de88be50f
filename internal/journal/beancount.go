package journal

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/beancmb/internal/model"
)

// amountColumn is where posting amounts start when the account name is short enough.
const amountColumn = 50

// Render writes entries as beancount directives separated by blank lines.
func Render(w io.Writer, entries []model.Entry) error {
	for i, e := range entries {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return fmt.Errorf("writing entry %d: %w", i, err)
			}
		}
		if _, err := io.WriteString(w, FormatEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	return nil
}

// FormatEntry renders one directive, including its trailing newline.
func FormatEntry(e model.Entry) string {
	switch e := e.(type) {
	case *model.Balance:
		return formatBalance(e)
	case *model.Transaction:
		return formatTransaction(e)
	default:
		return fmt.Sprintf("; unsupported entry %T\n", e)
	}
}

func formatBalance(b *model.Balance) string {
	return fmt.Sprintf("%s balance %s%s\n", b.Date.Format(dateFormat), pad(b.Account, amountColumn-len("0000-00-00 balance ")), formatAmount(b.Amount))
}

func formatTransaction(txn *model.Transaction) string {
	var sb strings.Builder

	sb.WriteString(txn.Date.Format(dateFormat))
	sb.WriteString(" ")
	sb.WriteString(string(txn.Flag))
	if txn.Payee != "" {
		sb.WriteString(" ")
		sb.WriteString(quote(txn.Payee))
	}
	sb.WriteString(" ")
	sb.WriteString(quote(txn.Narration))
	sb.WriteString("\n")

	for _, p := range txn.Postings {
		sb.WriteString("  ")
		if p.Units == nil {
			sb.WriteString(p.Account)
		} else {
			sb.WriteString(pad(p.Account, amountColumn-2))
			sb.WriteString(formatAmount(*p.Units))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// pad right-pads s to width, always leaving at least two spaces.
func pad(s string, width int) string {
	n := width - utf8.RuneCountInString(s)
	if n < 2 {
		n = 2
	}
	return s + strings.Repeat(" ", n)
}

func formatAmount(a model.Amount) string {
	return FormatNumber(a.Number) + " " + a.Currency
}

// FormatNumber prints at least two decimal places and never drops precision.
func FormatNumber(d decimal.Decimal) string {
	places := int32(2)
	if -d.Exponent() > places {
		places = -d.Exponent()
	}
	return d.StringFixed(places)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
