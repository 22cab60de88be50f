package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/beancmb/internal/model"
)

const checking = "Assets:Bank:CMB:Checking"

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func amt(s string) *model.Amount {
	a := model.NewAmount(dec(s), "CNY")
	return &a
}

func balance(t time.Time, account, n string) *model.Balance {
	return &model.Balance{Date: t, Account: account, Amount: *amt(n)}
}

func txn(t time.Time, account, n, narration string) *model.Transaction {
	return &model.Transaction{
		Date:      t,
		Flag:      model.FlagUnreviewed,
		Payee:     "快捷支付",
		Narration: narration,
		Postings: []model.Posting{
			{Account: account, Units: amt(n)},
			{Account: "Equity:UFO"},
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
