package statement

import (
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/beancmb/internal/accounts"
	"github.com/cleared-dev/beancmb/internal/model"
)

// roundPlaces is the precision of every amount placed into an entry.
const roundPlaces = 2

// RoundHalfUp rounds to two decimal places, ties away from zero.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(roundPlaces)
}

// Reconciler turns parsed records into transactions with balance checkpoints
// at day boundaries.
type Reconciler struct {
	account        string
	counterAccount string
	log            *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCounterAccount sets the account of the unspecified posting.
func WithCounterAccount(name string) Option {
	return func(r *Reconciler) {
		if name != "" {
			r.counterAccount = name
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// NewReconciler creates a Reconciler posting to account.
func NewReconciler(account string, opts ...Option) *Reconciler {
	r := &Reconciler{
		account:        account,
		counterAccount: accounts.DefaultCounterAccount,
		log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Account returns the statement account.
func (r *Reconciler) Account() string { return r.account }

// CounterAccount returns the account of the unspecified leg.
func (r *Reconciler) CounterAccount() string { return r.counterAccount }

// Reconcile converts records into entries. Records dated before
// lastCheckpoint are skipped as already imported; a zero lastCheckpoint keeps
// everything.
//
// A Balance is emitted before the first record of each new day, carrying the
// running balance of the previous kept record, and a trailing Balance dated the
// day after the last kept record closes the statement.
//
// Skipped records never update the running balance, so when lastCheckpoint
// falls inside a multi-record day the first kept record of that day is still
// compared against the balance carried from before the skip.
func (r *Reconciler) Reconcile(records []model.ParsedRecord, lastCheckpoint time.Time) []model.Entry {
	var (
		entries      []model.Entry
		currentDate  time.Time
		prevBalance  decimal.Decimal
		prevCurrency string
		haveBalance  bool
		last         *model.ParsedRecord
		skipped      int
	)

	for i := range records {
		rec := &records[i]
		if rec.Date.Before(lastCheckpoint) {
			skipped++
			continue
		}

		if !rec.Date.Equal(currentDate) {
			if haveBalance {
				entries = append(entries, r.balance(rec.Date, prevBalance, prevCurrency))
			}
			currentDate = rec.Date
		}

		prevBalance = rec.Balance
		prevCurrency = rec.Currency
		haveBalance = true
		last = rec

		units := model.NewAmount(RoundHalfUp(rec.Amount), rec.Currency)
		entries = append(entries, &model.Transaction{
			Date:      rec.Date,
			Flag:      model.FlagUnreviewed,
			Payee:     rec.Channel,
			Narration: rec.Merchant,
			Postings: []model.Posting{
				{Account: r.account, Units: &units},
				{Account: r.counterAccount},
			},
		})
	}

	if last != nil {
		entries = append(entries, r.balance(last.Date.AddDate(0, 0, 1), prevBalance, prevCurrency))
	}

	if skipped > 0 {
		r.log.Debug("skipped records before last checkpoint",
			"account", r.account,
			"checkpoint", lastCheckpoint.Format(dateLayout),
			"skipped", skipped)
	}
	r.log.Debug("reconciled statement", "account", r.account, "records", len(records), "entries", len(entries))

	return entries
}

func (r *Reconciler) balance(date time.Time, amount decimal.Decimal, currency string) *model.Balance {
	return &model.Balance{
		Date:    date,
		Account: r.account,
		Amount:  model.NewAmount(RoundHalfUp(amount), currency),
	}
}
