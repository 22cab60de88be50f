package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/beancmb/internal/importlog"
	"github.com/cleared-dev/beancmb/internal/journal"
	"github.com/cleared-dev/beancmb/internal/model"
)

func newExtractCommand(a *app) *cobra.Command {
	var output string
	var strict bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "extract <path>...",
		Short: "Print beancount entries for every recognized statement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			files, err := a.match(reg, args)
			if err != nil {
				return err
			}

			var checker journal.AccountChecker
			if repo, ok := a.checkpoints().(*journal.FileRepository); ok {
				svc, err := repo.Accounts()
				if err != nil {
					return fmt.Errorf("reading ledger accounts: %w", err)
				}
				checker = svc
			}

			// Nothing is written until every file has been extracted.
			var buf bytes.Buffer
			var problems int
			var history []importlog.Record
			fmt.Fprintln(&buf, ";; -*- mode: beancount -*-")
			for _, m := range files {
				entries, err := m.importer.Extract(m.file.Path)
				if err != nil {
					return fmt.Errorf("extracting %s: %w", m.file.Path, err)
				}
				a.log.Info("extracted", "path", m.file.Path, "importer", m.importer.Name(), "entries", len(entries))

				for _, ve := range journal.ValidateEntries(entries, checker) {
					problems++
					a.log.Warn("validation", "path", m.file.Path, "invariant", ve.Invariant, "entry", ve.Index, "detail", ve.Description)
				}

				if err := writeSection(&buf, m.file.Path, entries); err != nil {
					return err
				}
				history = append(history, historyRecord(m, entries))
			}

			if err := writeOutput(cmd.OutOrStdout(), output, buf.Bytes()); err != nil {
				return err
			}

			if a.cfg.History != "" && !noHistory && len(history) > 0 {
				if err := importlog.Append(a.cfg.History, history); err != nil {
					return err
				}
			}

			if strict && problems > 0 {
				return fmt.Errorf("%d validation problem(s)", problems)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write entries to this file instead of stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when extracted entries do not validate")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this run in the import history")

	return cmd
}

func writeSection(w io.Writer, path string, entries []model.Entry) error {
	if _, err := fmt.Fprintf(w, "\n**** %s\n\n", path); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := journal.Render(w, entries); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func historyRecord(m matched, entries []model.Entry) importlog.Record {
	rec := importlog.Record{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Importer:  m.importer.Name(),
		Account:   m.importer.Account(),
		File:      m.file.Path,
		Entries:   len(entries),
	}
	for _, e := range entries {
		d := e.EntryDate()
		if rec.FirstDate.IsZero() || d.Before(rec.FirstDate) {
			rec.FirstDate = d
		}
		if d.After(rec.LastDate) {
			rec.LastDate = d
		}
	}
	return rec
}

// writeOutput writes data to the named file, or to w when name is empty.
func writeOutput(w io.Writer, name string, data []byte) error {
	if name == "" {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
