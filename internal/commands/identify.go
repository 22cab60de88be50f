package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/beancmb/internal/importer"
	"github.com/cleared-dev/beancmb/internal/importlog"
)

func newIdentifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identify <path>...",
		Short: "List the files an importer would handle",
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

			var seen map[string]importlog.Record
			if a.cfg.History != "" {
				records, err := importlog.Read(a.cfg.History)
				if err != nil {
					return err
				}
				seen = importlog.LastByFile(records)
			}

			out := cmd.OutOrStdout()
			for _, m := range files {
				fmt.Fprintf(out, "**** %s\n", m.file.Path)
				fmt.Fprintf(out, "Importer:    %s\n", m.importer.Name())
				fmt.Fprintf(out, "Account:     %s\n", m.importer.Account())
				if d, ok := m.importer.(importer.Dater); ok {
					if date, err := d.FileDate(m.file.Path); err == nil {
						fmt.Fprintf(out, "Date:        %s\n", date.Format("2006-01-02"))
					} else {
						a.log.Warn("cannot date file", "path", m.file.Path, "error", err)
					}
				}
				if rec, ok := seen[filepath.Base(m.file.Path)]; ok {
					fmt.Fprintf(out, "Imported:    %s (%d entries)\n", rec.Timestamp.Format(time.RFC3339), rec.Entries)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
