package accounts

import (
	"sort"

	"github.com/cleared-dev/beancmb/internal/model"
)

// Service provides in-memory lookup over the accounts opened in a ledger.
type Service struct {
	accounts []string
	byName   map[string]bool
}

// NewService creates a Service from account names. Duplicates are dropped and
// All returns the names sorted.
func NewService(names []string) *Service {
	byName := make(map[string]bool, len(names))
	var accounts []string
	for _, n := range names {
		if byName[n] {
			continue
		}
		byName[n] = true
		accounts = append(accounts, n)
	}
	sort.Strings(accounts)
	return &Service{accounts: accounts, byName: byName}
}

// All returns all account names.
func (s *Service) All() []string {
	return s.accounts
}

// Exists reports whether an account has been opened.
func (s *Service) Exists(name string) bool {
	return s.byName[name]
}

// ByType returns all accounts under the given root.
func (s *Service) ByType(accountType model.AccountType) []string {
	var result []string
	for _, a := range s.accounts {
		if model.TypeOf(a) == accountType {
			result = append(result, a)
		}
	}
	return result
}
