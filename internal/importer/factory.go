package importer

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/beancmb/internal/extractor"
	"github.com/cleared-dev/beancmb/internal/journal"
)

// Definition describes one configured importer.
type Definition struct {
	Name            string
	Type            string
	Account         string
	CounterAccount  string
	CreditLimit     decimal.Decimal
	FilenamePattern string
}

// Deps are the collaborators shared by every configured importer.
type Deps struct {
	Source      extractor.TokenSource
	Checkpoints journal.CheckpointLookup
	Logger      *slog.Logger
}

// New builds the importer def describes.
func New(def Definition, deps Deps) (Importer, error) {
	switch def.Type {
	case TypePDF:
		imp, err := NewCMBPDF(PDFConfig{
			Name:            def.Name,
			Account:         def.Account,
			CounterAccount:  def.CounterAccount,
			FilenamePattern: def.FilenamePattern,
			Source:          deps.Source,
			Checkpoints:     deps.Checkpoints,
			Logger:          deps.Logger,
		})
		if err != nil {
			return nil, err
		}
		return imp, nil
	case TypeDailyEmail:
		imp, err := NewCMBDailyEmail(EmailConfig{
			Name:           def.Name,
			Account:        def.Account,
			CounterAccount: def.CounterAccount,
			CreditLimit:    def.CreditLimit,
			Logger:         deps.Logger,
		})
		if err != nil {
			return nil, err
		}
		return imp, nil
	default:
		return nil, fmt.Errorf("importer %q: unknown type %q", def.Name, def.Type)
	}
}

// NewRegistryFrom builds and registers one importer per definition.
func NewRegistryFrom(defs []Definition, deps Deps) (*Registry, error) {
	r := NewRegistry()
	for _, s := range defs {
		imp, err := New(s, deps)
		if err != nil {
			return nil, err
		}
		if r.Get(imp.Name()) != nil {
			return nil, fmt.Errorf("importer %q registered twice", imp.Name())
		}
		r.Register(imp)
	}
	return r, nil
}
