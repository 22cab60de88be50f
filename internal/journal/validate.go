package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/beancmb/internal/accounts"
	"github.com/cleared-dev/beancmb/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	Index       int
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [entry %d]: %s", e.Invariant, e.Index, e.Description)
}

// AccountChecker tests whether an account has been opened in the ledger.
type AccountChecker interface {
	Exists(name string) bool
}

// ValidateEntries enforces the shape of an imported entry sequence. A nil
// checker skips the open-account check.
func ValidateEntries(entries []model.Entry, checker AccountChecker) []ValidationError {
	var errs []ValidationError
	hundred := decimal.NewFromInt(100)

	checkAccount := func(i int, name string) {
		// Invariant 3: Valid account names, opened in the ledger when known.
		if err := accounts.Validate(name); err != nil {
			errs = append(errs, ValidationError{Invariant: 3, Index: i, Description: err.Error()})
			return
		}
		if checker != nil && !checker.Exists(name) {
			errs = append(errs, ValidationError{Invariant: 3, Index: i, Description: fmt.Sprintf("account %s is not open", name)})
		}
	}

	checkPlaces := func(i int, a model.Amount) {
		// Invariant 5: Amounts carry at most 2 decimal places and a currency.
		if !a.Number.Mul(hundred).Equal(a.Number.Mul(hundred).Floor()) {
			errs = append(errs, ValidationError{Invariant: 5, Index: i, Description: fmt.Sprintf("amount %s has more than 2 decimal places", a.Number)})
		}
		if a.Currency == "" {
			errs = append(errs, ValidationError{Invariant: 5, Index: i, Description: "amount without currency"})
		}
	}

	for i, e := range entries {
		// Invariant 1: Entries are in non-decreasing date order.
		if i > 0 && e.EntryDate().Before(entries[i-1].EntryDate()) {
			errs = append(errs, ValidationError{
				Invariant:   1,
				Index:       i,
				Description: fmt.Sprintf("date %s precedes %s", e.EntryDate().Format(dateFormat), entries[i-1].EntryDate().Format(dateFormat)),
			})
		}

		switch e := e.(type) {
		case *model.Balance:
			checkAccount(i, e.Account)
			checkPlaces(i, e.Amount)
		case *model.Transaction:
			// Invariant 2: At least two postings, exactly one left for the ledger to balance.
			if len(e.Postings) < 2 {
				errs = append(errs, ValidationError{Invariant: 2, Index: i, Description: fmt.Sprintf("%d posting(s), need at least 2", len(e.Postings))})
			}
			open := 0
			for _, p := range e.Postings {
				checkAccount(i, p.Account)
				if p.Units == nil {
					open++
					continue
				}
				checkPlaces(i, *p.Units)
			}
			if open != 1 {
				errs = append(errs, ValidationError{Invariant: 2, Index: i, Description: fmt.Sprintf("%d postings without amount, want 1", open)})
			}

			// Invariant 4: Flag is one the ledger understands.
			if e.Flag != model.FlagCleared && e.Flag != model.FlagUnreviewed {
				errs = append(errs, ValidationError{Invariant: 4, Index: i, Description: fmt.Sprintf("unknown flag %q", e.Flag)})
			}
		}
	}

	return errs
}
