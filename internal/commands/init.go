package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/beancmb/internal/accounts"
	"github.com/cleared-dev/beancmb/internal/config"
)

// openDate is the date of the open directives in a fresh ledger.
const openDate = "2000-01-01"

func newInitCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter beancmb.yaml and ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized beancmb in %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func runInit(dir string, force bool) error {
	cfg := config.Default()

	if err := os.MkdirAll(filepath.Join(dir, cfg.Documents), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", cfg.Documents, err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// An existing ledger is never touched.
	ledgerPath := filepath.Join(dir, cfg.Ledger)
	if _, err := os.Stat(ledgerPath); err == nil {
		return nil
	}
	if err := os.WriteFile(ledgerPath, []byte(starterLedger(cfg)), 0o644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// starterLedger opens every account the config refers to.
func starterLedger(cfg *config.Config) string {
	var names []string
	for _, ic := range cfg.Importers {
		names = append(names, ic.Account)
		if ic.CounterAccount != "" {
			names = append(names, ic.CounterAccount)
		}
	}
	svc := accounts.NewService(names)

	var b strings.Builder
	b.WriteString("option \"operating_currency\" \"CNY\"\n\n")
	for _, name := range svc.All() {
		fmt.Fprintf(&b, "%s open %s\n", openDate, name)
	}
	return b.String()
}
