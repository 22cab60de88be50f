package journal

import (
	"sync"
	"time"

	"github.com/cleared-dev/beancmb/internal/accounts"
	"github.com/cleared-dev/beancmb/internal/model"
)

// CheckpointLookup finds the most recent balance assertion already recorded
// for an account. Unknown accounts report ok == false, not an error.
type CheckpointLookup interface {
	LastCheckpoint(account string) (date time.Time, ok bool, err error)
}

// FileRepository answers lookups from a beancount file on disk. The file is
// read on first use and cached until Refresh.
type FileRepository struct {
	path string

	mu     sync.Mutex
	ledger *Ledger
}

// NewFileRepository creates a repository over the ledger at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the root ledger file.
func (r *FileRepository) Path() string { return r.path }

// Ledger returns the cached ledger, loading it if needed.
func (r *FileRepository) Ledger() (*Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ledger == nil {
		l, err := LoadLedger(r.path)
		if err != nil {
			return nil, err
		}
		r.ledger = l
	}
	return r.ledger, nil
}

// LastCheckpoint implements CheckpointLookup.
func (r *FileRepository) LastCheckpoint(account string) (time.Time, bool, error) {
	l, err := r.Ledger()
	if err != nil {
		return time.Time{}, false, err
	}
	d, ok := l.LastCheckpoint(account)
	return d, ok, nil
}

// Accounts returns the accounts opened in the ledger.
func (r *FileRepository) Accounts() (*accounts.Service, error) {
	l, err := r.Ledger()
	if err != nil {
		return nil, err
	}
	return l.Accounts(), nil
}

// Refresh drops the cached ledger so the next lookup rereads the file.
func (r *FileRepository) Refresh() {
	r.mu.Lock()
	r.ledger = nil
	r.mu.Unlock()
}

// MemoryRepository is a CheckpointLookup over an in-memory map.
type MemoryRepository map[string]time.Time

// MemoryRepositoryFrom collects the latest Balance date per account.
func MemoryRepositoryFrom(entries []model.Entry) MemoryRepository {
	m := make(MemoryRepository)
	for _, e := range entries {
		b, ok := e.(*model.Balance)
		if !ok {
			continue
		}
		if prev, ok := m[b.Account]; !ok || b.Date.After(prev) {
			m[b.Account] = b.Date
		}
	}
	return m
}

// LastCheckpoint implements CheckpointLookup.
func (m MemoryRepository) LastCheckpoint(account string) (time.Time, bool, error) {
	d, ok := m[account]
	return d, ok, nil
}

var (
	_ CheckpointLookup = (*FileRepository)(nil)
	_ CheckpointLookup = MemoryRepository(nil)
)
