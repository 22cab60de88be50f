package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/beancmb/internal/buildinfo"
	"github.com/cleared-dev/beancmb/internal/config"
	"github.com/cleared-dev/beancmb/internal/extractor"
	"github.com/cleared-dev/beancmb/internal/importer"
	"github.com/cleared-dev/beancmb/internal/journal"
)

// app carries the state shared by subcommands once flags are parsed.
type app struct {
	configPath string
	envFile    string
	debug      bool

	cfg    *config.Config
	log    *slog.Logger
	source extractor.TokenSource
	repo   *journal.FileRepository
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{source: &extractor.PDF{}})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "beancmb",
		Short:   "Import China Merchants Bank statements into beancount",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.FileName, "config file")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load environment overrides from this file (default ./.env if present)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newInitCommand(a),
		newIdentifyCommand(a),
		newExtractCommand(a),
		newArchiveCommand(a),
	)

	return rootCmd
}

// setup loads config and installs the logger. A missing config file is only
// an error when --config was given explicitly.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	default:
		return err
	}
	cfg.ApplyEnv()
	a.cfg = cfg

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if a.debug {
		level = slog.LevelDebug
	}
	a.log = newLogger(cmd.ErrOrStderr(), cfg.Log.Format, level)
	slog.SetDefault(a.log)

	a.log.Debug("config loaded", "path", a.configPath, "ledger", cfg.Ledger, "importers", len(cfg.Importers))
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// checkpoints returns the ledger-backed lookup, or an empty one when no ledger
// file exists yet.
func (a *app) checkpoints() journal.CheckpointLookup {
	if a.cfg.Ledger == "" {
		return journal.MemoryRepository{}
	}
	if _, err := os.Stat(a.cfg.Ledger); err != nil {
		a.log.Warn("ledger not readable, importing everything", "ledger", a.cfg.Ledger, "error", err)
		return journal.MemoryRepository{}
	}
	if a.repo == nil || a.repo.Path() != a.cfg.Ledger {
		a.repo = journal.NewFileRepository(a.cfg.Ledger)
	}
	return a.repo
}

// registry validates the config and builds its importers.
func (a *app) registry() (*importer.Registry, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(a.cfg.Importers) == 0 {
		return nil, fmt.Errorf("no importers configured in %s", a.configPath)
	}
	defs, err := a.cfg.Definitions()
	if err != nil {
		return nil, err
	}
	return importer.NewRegistryFrom(defs, importer.Deps{
		Source:      a.source,
		Checkpoints: a.checkpoints(),
		Logger:      a.log,
	})
}

// matched pairs a scanned file with the importer that claims it.
type matched struct {
	file     importer.FileInfo
	importer importer.Importer
}

// match scans paths and keeps the files some importer can handle.
func (a *app) match(reg *importer.Registry, paths []string) ([]matched, error) {
	files, err := importer.Scan(paths...)
	if err != nil {
		return nil, err
	}
	var out []matched
	for _, f := range files {
		imp := reg.Match(f.Path)
		if imp == nil {
			a.log.Debug("no importer", "path", f.Path)
			continue
		}
		out = append(out, matched{file: f, importer: imp})
	}
	return out, nil
}
