package accounts

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/cleared-dev/beancmb/internal/model"
)

// ErrInvalidName is returned for account names the ledger would reject.
var ErrInvalidName = errors.New("invalid account name")

// Validate checks that name is a colon-separated beancount account name with a
// known root and at least one sub-account.
func Validate(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	parts := strings.Split(name, ":")
	if !model.AccountType(parts[0]).Valid() {
		return fmt.Errorf("%w %q: unknown root %q", ErrInvalidName, name, parts[0])
	}
	if len(parts) < 2 {
		return fmt.Errorf("%w %q: missing sub-account", ErrInvalidName, name)
	}
	for _, p := range parts[1:] {
		if p == "" {
			return fmt.Errorf("%w %q: empty component", ErrInvalidName, name)
		}
		first := []rune(p)[0]
		if unicode.IsLower(first) || first == '-' {
			return fmt.Errorf("%w %q: component %q must start with a capital letter or digit", ErrInvalidName, name, p)
		}
		if strings.IndexFunc(p, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%w %q: component %q contains whitespace", ErrInvalidName, name, p)
		}
	}
	return nil
}
