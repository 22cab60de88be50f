package importer

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/cleared-dev/beancmb/internal/extractor"
	"github.com/cleared-dev/beancmb/internal/journal"
	"github.com/cleared-dev/beancmb/internal/model"
	"github.com/cleared-dev/beancmb/internal/statement"
)

// DefaultPDFPattern matches the file names CMB gives exported account statements.
const DefaultPDFPattern = `^招商银行交易流水.*\.pdf$`

// CMBPDF imports CMB account statement PDFs ("交易流水").
type CMBPDF struct {
	name        string
	pattern     *regexp.Regexp
	source      extractor.TokenSource
	checkpoints journal.CheckpointLookup
	reconciler  *statement.Reconciler
	log         *slog.Logger
}

// PDFConfig configures a CMBPDF.
type PDFConfig struct {
	Name            string
	Account         string
	CounterAccount  string
	FilenamePattern string

	Source      extractor.TokenSource
	Checkpoints journal.CheckpointLookup
	Logger      *slog.Logger
}

// NewCMBPDF creates a PDF importer. Source defaults to extractor.PDF and
// Checkpoints to an empty lookup, which imports every record.
func NewCMBPDF(cfg PDFConfig) (*CMBPDF, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("pdf importer %q: account is required", cfg.Name)
	}
	pattern := cfg.FilenamePattern
	if pattern == "" {
		pattern = DefaultPDFPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pdf importer %q: compiling filename pattern: %w", cfg.Name, err)
	}

	name := cfg.Name
	if name == "" {
		name = TypePDF
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With("importer", name)

	source := cfg.Source
	if source == nil {
		source = &extractor.PDF{}
	}
	checkpoints := cfg.Checkpoints
	if checkpoints == nil {
		checkpoints = journal.MemoryRepository{}
	}

	return &CMBPDF{
		name:        name,
		pattern:     re,
		source:      source,
		checkpoints: checkpoints,
		reconciler: statement.NewReconciler(cfg.Account,
			statement.WithCounterAccount(cfg.CounterAccount),
			statement.WithLogger(log),
		),
		log: log,
	}, nil
}

func (p *CMBPDF) Name() string    { return p.name }
func (p *CMBPDF) Account() string { return p.reconciler.Account() }

// CanHandle matches the base name of path against the filename pattern.
func (p *CMBPDF) CanHandle(path string) bool {
	return p.pattern.MatchString(filepath.Base(path))
}

// Records returns the records of the statement at path in document order.
func (p *CMBPDF) Records(path string) ([]model.ParsedRecord, error) {
	pages, err := p.source.Pages(path)
	if err != nil {
		return nil, fmt.Errorf("extracting tokens: %w", err)
	}
	tokens := extractor.Flatten(pages)
	p.log.Debug("extracted tokens", "path", path, "pages", len(pages), "tokens", len(tokens))

	records, err := statement.ParseTokens(tokens)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.log.Debug("parsed records", "path", path, "records", len(records))
	return records, nil
}

// Extract parses the statement and reconciles it against the last balance
// assertion already in the ledger.
func (p *CMBPDF) Extract(path string) ([]model.Entry, error) {
	records, err := p.Records(path)
	if err != nil {
		return nil, err
	}

	last, ok, err := p.checkpoints.LastCheckpoint(p.Account())
	if err != nil {
		return nil, fmt.Errorf("looking up last balance of %s: %w", p.Account(), err)
	}
	if ok {
		p.log.Debug("checkpoint found", "account", p.Account(), "date", last.Format("2006-01-02"))
	} else {
		last = time.Time{}
	}

	return p.reconciler.Reconcile(records, last), nil
}

// FileDate returns the date of the last record in the statement.
func (p *CMBPDF) FileDate(path string) (time.Time, error) {
	records, err := p.Records(path)
	if err != nil {
		return time.Time{}, err
	}
	if len(records) == 0 {
		return time.Time{}, fmt.Errorf("dating %s: no records", path)
	}
	return records[len(records)-1].Date, nil
}

var (
	_ Importer = (*CMBPDF)(nil)
	_ Dater    = (*CMBPDF)(nil)
)
