package importer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cleared-dev/beancmb/internal/accounts"
	"github.com/cleared-dev/beancmb/internal/model"
)

// DefaultCreditLimit is used when no credit limit is configured.
var DefaultCreditLimit = decimal.NewFromInt(240000)

const (
	emailPrefix      = "cmb-daily-"
	emailCurrency    = "CNY"
	statementStyle   = "font-size:19px;line-height:120%;"
	balanceRow       = 6
	itemTableDepth   = 4
	itemAmountFont   = 1
	itemMerchantFont = 2
)

var emailDateLayouts = []string{"2006/01/02", "2006-01-02", "2006年01月02日", "2006年1月2日"}

// CMBDailyEmail imports the daily credit card e-mail CMB sends as a saved .eml.
type CMBDailyEmail struct {
	name           string
	account        string
	counterAccount string
	creditLimit    decimal.Decimal
	log            *slog.Logger
}

// EmailConfig configures a CMBDailyEmail.
type EmailConfig struct {
	Name           string
	Account        string
	CounterAccount string
	// CreditLimit defaults to DefaultCreditLimit when zero.
	CreditLimit decimal.Decimal
	Logger      *slog.Logger
}

// NewCMBDailyEmail creates a daily e-mail importer.
func NewCMBDailyEmail(cfg EmailConfig) (*CMBDailyEmail, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("email importer %q: account is required", cfg.Name)
	}
	e := &CMBDailyEmail{
		name:           cfg.Name,
		account:        cfg.Account,
		counterAccount: cfg.CounterAccount,
		creditLimit:    cfg.CreditLimit,
		log:            cfg.Logger,
	}
	if e.name == "" {
		e.name = TypeDailyEmail
	}
	if e.counterAccount == "" {
		e.counterAccount = accounts.DefaultCounterAccount
	}
	if e.creditLimit.IsZero() {
		e.creditLimit = DefaultCreditLimit
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.log = e.log.With("importer", e.name)
	return e, nil
}

func (e *CMBDailyEmail) Name() string    { return e.name }
func (e *CMBDailyEmail) Account() string { return e.account }

// CreditLimit returns the limit the available credit is computed against.
func (e *CMBDailyEmail) CreditLimit() decimal.Decimal { return e.creditLimit }

// CanHandle accepts base names starting with "cmb-daily-" that mention eml.
func (e *CMBDailyEmail) CanHandle(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, emailPrefix) && strings.Contains(base, "eml")
}

// FileName names archived e-mails after their extension only.
func (e *CMBDailyEmail) FileName(string) string { return "eml" }

// FileDate returns the statement date printed in the e-mail.
func (e *CMBDailyEmail) FileDate(path string) (time.Time, error) {
	doc, err := e.load(path)
	if err != nil {
		return time.Time{}, err
	}
	return statementDate(doc)
}

// EmailItem is one line item of the daily e-mail.
type EmailItem struct {
	Amount   model.Amount
	Merchant string
}

// EmailStatement is the content of one daily e-mail.
type EmailStatement struct {
	Date    time.Time
	Balance decimal.Decimal
	Items   []EmailItem
}

// Parse reads the statement balance, date and line items from the e-mail.
func (e *CMBDailyEmail) Parse(path string) (*EmailStatement, error) {
	doc, err := e.load(path)
	if err != nil {
		return nil, err
	}

	bal, err := statementBalance(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	date, err := statementDate(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	st := &EmailStatement{Date: date, Balance: bal}
	for i, band := range findAll(doc, byID("fixBand4")) {
		item, err := parseItem(band)
		if err != nil {
			return nil, fmt.Errorf("%s: item %d: %w", path, i+1, err)
		}
		st.Items = append(st.Items, item)
	}
	e.log.Debug("parsed email", "path", path, "date", date.Format("2006-01-02"), "items", len(st.Items))
	return st, nil
}

// Extract emits one transaction per line item, then the available-credit
// balance as of the day after the statement, keeping entries in date order.
func (e *CMBDailyEmail) Extract(path string) ([]model.Entry, error) {
	st, err := e.Parse(path)
	if err != nil {
		return nil, err
	}

	available := e.creditLimit.Sub(st.Balance)
	entries := make([]model.Entry, 0, len(st.Items)+1)
	for _, item := range st.Items {
		units := item.Amount.Neg()
		entries = append(entries, &model.Transaction{
			Date:  st.Date,
			Flag:  model.FlagUnreviewed,
			Payee: item.Merchant,
			Postings: []model.Posting{
				{Account: e.account, Units: &units},
				{Account: e.counterAccount},
			},
		})
	}
	entries = append(entries, &model.Balance{
		Date:    st.Date.AddDate(0, 0, 1),
		Account: e.account,
		Amount:  model.NewAmount(available.Neg(), emailCurrency),
	})
	return entries, nil
}

// load decodes the first MIME part of the e-mail and parses it as HTML.
func (e *CMBDailyEmail) load(path string) (*html.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening email: %w", err)
	}
	defer f.Close()

	body, err := firstPart(f)
	if err != nil {
		return nil, fmt.Errorf("reading email %s: %w", path, err)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing email html %s: %w", path, err)
	}
	return doc, nil
}

func firstPart(r io.Reader) ([]byte, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, err
	}

	body := msg.Body
	encoding := msg.Header.Get("Content-Transfer-Encoding")

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(msg.Body, params["boundary"])
		part, err := mr.NextPart()
		if err != nil {
			return nil, fmt.Errorf("reading first part: %w", err)
		}
		body = part
		encoding = part.Header.Get("Content-Transfer-Encoding")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(encoding), "base64") {
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
		n, err := base64.StdEncoding.Decode(decoded, bytes.Join(bytes.Fields(data), nil))
		if err != nil {
			return nil, fmt.Errorf("decoding base64 body: %w", err)
		}
		data = decoded[:n]
	}
	return data, nil
}

func statementBalance(doc *html.Node) (decimal.Decimal, error) {
	band := findFirst(doc, byID("fixBand1"))
	if band == nil {
		return decimal.Zero, fmt.Errorf("statement balance: no #fixBand1")
	}

	var font *html.Node
	for _, table := range children(band, atom.Table) {
		for _, tbody := range children(table, atom.Tbody) {
			rows := elementChildren(tbody)
			if len(rows) < balanceRow || rows[balanceRow-1].DataAtom != atom.Tr {
				continue
			}
			if font = findFirst(rows[balanceRow-1], byAtom(atom.Font)); font != nil {
				break
			}
		}
		if font != nil {
			break
		}
	}
	if font == nil {
		return decimal.Zero, fmt.Errorf("statement balance: no font in row %d of #fixBand1", balanceRow)
	}

	text := []rune(strings.TrimSpace(textContent(font)))
	if len(text) == 0 {
		return decimal.Zero, fmt.Errorf("statement balance: empty")
	}
	raw := strings.NewReplacer("￥", "", ",", "").Replace(string(text[1:]))
	bal, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing statement balance %q: %w", string(text), err)
	}
	return bal, nil
}

func statementDate(doc *html.Node) (time.Time, error) {
	band := findFirst(doc, byID("fixBand3"))
	if band == nil {
		return time.Time{}, fmt.Errorf("statement date: no #fixBand3")
	}
	font := findFirst(band, func(n *html.Node) bool {
		return n.DataAtom == atom.Font && attr(n, "style") == statementStyle
	})
	if font == nil {
		return time.Time{}, fmt.Errorf("statement date: no dated font in #fixBand3")
	}

	words := strings.Fields(textContent(font))
	if len(words) == 0 {
		return time.Time{}, fmt.Errorf("statement date: empty")
	}
	for _, layout := range emailDateLayouts {
		if d, err := time.Parse(layout, words[0]); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing statement date %q: unrecognized layout", words[0])
}

func parseItem(band *html.Node) (EmailItem, error) {
	fonts := findAll(band, func(n *html.Node) bool {
		return n.DataAtom == atom.Font && tableDepth(n, band) >= itemTableDepth
	})
	if len(fonts) <= itemMerchantFont {
		return EmailItem{}, fmt.Errorf("want at least %d fonts, got %d", itemMerchantFont+1, len(fonts))
	}

	fields := strings.Fields(textContent(fonts[itemAmountFont]))
	if len(fields) < 2 {
		return EmailItem{}, fmt.Errorf("amount %q: want \"<currency> <amount>\"", textContent(fonts[itemAmountFont]))
	}
	n, err := decimal.NewFromString(strings.ReplaceAll(fields[1], ",", ""))
	if err != nil {
		return EmailItem{}, fmt.Errorf("parsing amount %q: %w", fields[1], err)
	}

	return EmailItem{
		Amount:   model.NewAmount(n, fields[0]),
		Merchant: strings.TrimSpace(textContent(fonts[itemMerchantFont])),
	}, nil
}

var (
	_ Importer = (*CMBDailyEmail)(nil)
	_ Dater    = (*CMBDailyEmail)(nil)
	_ Namer    = (*CMBDailyEmail)(nil)
)
