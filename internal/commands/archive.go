package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/beancmb/internal/importer"
)

func newArchiveCommand(a *app) *cobra.Command {
	var dest string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "archive <path>...",
		Short: "Move recognized statements into the documents tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dest == "" {
				dest = a.cfg.Documents
			}
			if dest == "" {
				return fmt.Errorf("no destination: set documents in config or pass --destination")
			}

			reg, err := a.registry()
			if err != nil {
				return err
			}
			files, err := a.match(reg, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range files {
				var to string
				if dryRun {
					to, err = importer.ArchivePath(m.importer, dest, m.file.Path)
				} else {
					to, err = importer.Archive(m.importer, dest, m.file.Path)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s -> %s\n", m.file.Path, to)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dest, "destination", "d", "", "documents root (defaults to config documents)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print moves without performing them")

	return cmd
}
