package importer

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/beancmb/internal/journal"
	"github.com/cleared-dev/beancmb/internal/model"
)

const creditCard = "Liabilities:CreditCard:CMB"

// dailyEmail wraps body as the base64 first part of a multipart message.
func dailyEmail(t *testing.T, body string) string {
	t.Helper()
	enc := base64.StdEncoding.EncodeToString([]byte(body))
	var wrapped strings.Builder
	for len(enc) > 76 {
		wrapped.WriteString(enc[:76] + "\r\n")
		enc = enc[76:]
	}
	wrapped.WriteString(enc + "\r\n")

	return strings.Join([]string{
		"From: cmb@example.com",
		"To: me@example.com",
		"Subject: daily",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/html; charset=utf-8",
		"Content-Transfer-Encoding: base64",
		"",
		wrapped.String() + "--BOUNDARY",
		"Content-Type: text/plain",
		"",
		"ignored",
		"--BOUNDARY--",
		"",
	}, "\r\n")
}

func emailItem(amount, merchant string) string {
	return fmt.Sprintf(`<div id="fixBand4"><table><tr><td><table><tr><td><table><tr><td><table><tr>`+
		`<td><font>03/27</font></td><td><font>%s</font></td><td><font>%s</font></td>`+
		`</tr></table></td></tr></table></td></tr></table></td></tr></table></div>`, amount, merchant)
}

func emailHTML(balance, stmtDate string, items ...string) string {
	var rows strings.Builder
	for i := 1; i < balanceRow; i++ {
		fmt.Fprintf(&rows, "<tr><td><font>row %d</font></td></tr>", i)
	}
	fmt.Fprintf(&rows, "<tr><td><font>%s</font></td><td><font>other</font></td></tr>", balance)

	return `<html><body>` +
		`<div id="fixBand1"><table>` + rows.String() + `</table></div>` +
		`<div id="fixBand3"><font style="font-size:14px;">ignored</font>` +
		`<font style="font-size:19px;line-height:120%;">` + stmtDate + ` 您的账户变动</font></div>` +
		strings.Join(items, "") +
		`</body></html>`
}

func sampleEmailHTML() string {
	return emailHTML("¥1,234.50", "2020/03/27",
		emailItem("CNY 25.00", "美团外卖"),
		emailItem("CNY 1,000.00", "京东商城"),
	)
}

func newEmail(t *testing.T) *CMBDailyEmail {
	t.Helper()
	e, err := NewCMBDailyEmail(EmailConfig{Account: creditCard})
	require.NoError(t, err)
	return e
}

func TestCMBDailyEmail_CanHandle(t *testing.T) {
	e := newEmail(t)
	assert.True(t, e.CanHandle("/mail/cmb-daily-20200327.eml"))
	assert.True(t, e.CanHandle("cmb-daily-eml-export.txt"))
	assert.False(t, e.CanHandle("/cmb-daily-/notes.txt"))
	assert.False(t, e.CanHandle("daily-cmb-20200327.eml"))
	assert.False(t, e.CanHandle("cmb-daily-20200327.pdf"))
}

func TestCMBDailyEmail_Defaults(t *testing.T) {
	e := newEmail(t)
	assert.Equal(t, TypeDailyEmail, e.Name())
	assert.Equal(t, creditCard, e.Account())
	assert.True(t, e.CreditLimit().Equal(dec("240000")))
	assert.Equal(t, "eml", e.FileName("x"))

	_, err := NewCMBDailyEmail(EmailConfig{})
	assert.Error(t, err)
}

func TestCMBDailyEmail_Extract(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cmb-daily-0327.eml", dailyEmail(t, sampleEmailHTML()))

	entries, err := newEmail(t).Extract(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	bal, ok := entries[2].(*model.Balance)
	require.True(t, ok)
	assert.Equal(t, date(2020, 3, 28), bal.Date)
	assert.Equal(t, creditCard, bal.Account)
	assert.Equal(t, "CNY", bal.Amount.Currency)
	assert.True(t, bal.Amount.Number.Equal(dec("-238765.50")), "got %s", bal.Amount.Number)

	txn, ok := entries[0].(*model.Transaction)
	require.True(t, ok)
	assert.Equal(t, date(2020, 3, 27), txn.Date)
	assert.Equal(t, model.FlagUnreviewed, txn.Flag)
	assert.Equal(t, "美团外卖", txn.Payee)
	assert.Empty(t, txn.Narration)
	require.Len(t, txn.Postings, 2)
	assert.Equal(t, creditCard, txn.Postings[0].Account)
	require.NotNil(t, txn.Postings[0].Units)
	assert.True(t, txn.Postings[0].Units.Equal(model.NewAmount(dec("-25.00"), "CNY")))
	assert.Equal(t, "Equity:UFO", txn.Postings[1].Account)
	assert.Nil(t, txn.Postings[1].Units)

	txn2 := entries[1].(*model.Transaction)
	assert.Equal(t, "京东商城", txn2.Payee)
	assert.True(t, txn2.Postings[0].Units.Number.Equal(dec("-1000")))
}

func TestCMBDailyEmail_CustomLimitAndCounter(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cmb-daily-0327.eml", dailyEmail(t, sampleEmailHTML()))
	e, err := NewCMBDailyEmail(EmailConfig{
		Account:        creditCard,
		CounterAccount: "Expenses:Uncategorized",
		CreditLimit:    dec("50000"),
	})
	require.NoError(t, err)

	entries, err := e.Extract(path)
	require.NoError(t, err)
	assert.True(t, entries[2].(*model.Balance).Amount.Number.Equal(dec("-48765.50")))
	assert.Equal(t, "Expenses:Uncategorized", entries[0].(*model.Transaction).Postings[1].Account)
}

func TestCMBDailyEmail_EntriesValidate(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cmb-daily-0327.eml", dailyEmail(t, sampleEmailHTML()))

	entries, err := newEmail(t).Extract(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Empty(t, journal.ValidateEntries(entries, nil))
}

func TestCMBDailyEmail_NoItems(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cmb-daily-0327.eml", dailyEmail(t, emailHTML("-￥0.00", "2020-03-27")))

	entries, err := newEmail(t).Extract(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].(*model.Balance).Amount.Number.Equal(dec("-240000")))
}

func TestCMBDailyEmail_FileDate(t *testing.T) {
	for _, layout := range []string{"2020/03/27", "2020-03-27", "2020年03月27日"} {
		t.Run(layout, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "cmb-daily.eml", dailyEmail(t, emailHTML("¥1.00", layout)))
			got, err := newEmail(t).FileDate(path)
			require.NoError(t, err)
			assert.Equal(t, date(2020, 3, 27), got)
		})
	}
}

func TestCMBDailyEmail_SinglePartMessage(t *testing.T) {
	msg := "Subject: daily\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		base64.StdEncoding.EncodeToString([]byte(sampleEmailHTML())) + "\r\n"
	path := writeFile(t, t.TempDir(), "cmb-daily.eml", msg)

	st, err := newEmail(t).Parse(path)
	require.NoError(t, err)
	assert.True(t, st.Balance.Equal(dec("1234.50")))
	assert.Len(t, st.Items, 2)
}

func TestCMBDailyEmail_MissingBands(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"no balance band", `<html><body><div id="fixBand3"></div></body></html>`, "fixBand1"},
		{"unparseable date", emailHTML("¥1.00", "someday"), "statement date"},
		{"short item", emailHTML("¥1.00", "2020/03/27", `<div id="fixBand4"><font>only</font></div>`), "item 1"},
		{"bad amount", emailHTML("¥1.00", "2020/03/27", emailItem("CNY abc", "shop")), "parsing amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "cmb-daily.eml", dailyEmail(t, tt.html))
			_, err := newEmail(t).Extract(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCMBDailyEmail_MissingFile(t *testing.T) {
	_, err := newEmail(t).Extract(t.TempDir() + "/cmb-daily.eml")
	assert.Error(t, err)
}
