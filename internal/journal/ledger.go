package journal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cleared-dev/beancmb/internal/accounts"
)

const dateFormat = "2006-01-02"

var (
	balanceLine = regexp.MustCompile(`^(\d{4}[-/]\d{2}[-/]\d{2})\s+balance\s+([^\s;]+)`)
	openLine    = regexp.MustCompile(`^(\d{4}[-/]\d{2}[-/]\d{2})\s+open\s+([^\s;]+)`)
	includeLine = regexp.MustCompile(`^include\s+"([^"]+)"`)
)

// Ledger is the subset of a beancount ledger an import needs: the latest
// balance assertion per account and the set of opened accounts.
type Ledger struct {
	checkpoints map[string]time.Time
	opened      []string
	files       []string
}

func newLedger() *Ledger {
	return &Ledger{checkpoints: make(map[string]time.Time)}
}

// LastCheckpoint returns the date of the latest balance assertion for account.
func (l *Ledger) LastCheckpoint(account string) (time.Time, bool) {
	d, ok := l.checkpoints[account]
	return d, ok
}

// Accounts returns the accounts opened in the ledger.
func (l *Ledger) Accounts() *accounts.Service {
	return accounts.NewService(l.opened)
}

// Files returns every file read, in load order.
func (l *Ledger) Files() []string {
	return l.files
}

// ReadLedger parses a single beancount stream. Include directives are ignored.
func ReadLedger(r io.Reader) (*Ledger, error) {
	l := newLedger()
	if _, err := l.scan(r); err != nil {
		return nil, err
	}
	return l, nil
}

// LoadLedger reads the beancount file at path and every file it includes.
// Include paths are relative to the including file and may be globs. Dates
// may be written YYYY-MM-DD or YYYY/MM/DD.
func LoadLedger(path string) (*Ledger, error) {
	l := newLedger()
	if err := l.load(path, make(map[string]bool)); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) load(path string, seen map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if seen[abs] {
		return nil
	}
	seen[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	l.files = append(l.files, abs)
	includes, err := l.scan(f)
	if err != nil {
		return fmt.Errorf("reading ledger %s: %w", path, err)
	}

	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		matches, err := filepath.Glob(inc)
		if err != nil {
			return fmt.Errorf("include %q in %s: %w", inc, path, err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("include %q in %s: %w", inc, path, os.ErrNotExist)
		}
		for _, m := range matches {
			if err := l.load(m, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseLedgerDate accepts both separators beancount allows, "-" and "/".
func parseLedgerDate(s string) (time.Time, error) {
	return time.Parse(dateFormat, strings.ReplaceAll(s, "/", "-"))
}

// scan records directives from r and returns the include targets it saw.
func (l *Ledger) scan(r io.Reader) ([]string, error) {
	var includes []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()

		if m := balanceLine.FindStringSubmatch(line); m != nil {
			d, err := parseLedgerDate(m[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing date %q: %w", lineNo, m[1], err)
			}
			if prev, ok := l.checkpoints[m[2]]; !ok || d.After(prev) {
				l.checkpoints[m[2]] = d
			}
			continue
		}
		if m := openLine.FindStringSubmatch(line); m != nil {
			l.opened = append(l.opened, m[2])
			continue
		}
		if m := includeLine.FindStringSubmatch(line); m != nil {
			includes = append(includes, m[1])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return includes, nil
}
