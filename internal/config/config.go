// Package config loads beancmb.yaml and its environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/beancmb/internal/accounts"
	"github.com/cleared-dev/beancmb/internal/importer"
)

// FileName is the config file looked up in the working directory.
const FileName = "beancmb.yaml"

// Environment variables that override file settings.
const (
	EnvLedger    = "BEANCMB_LEDGER"
	EnvDocuments = "BEANCMB_DOCUMENTS"
	EnvLogLevel  = "BEANCMB_LOG_LEVEL"
	EnvLogFormat = "BEANCMB_LOG_FORMAT"
)

// Config represents the top-level beancmb.yaml configuration.
type Config struct {
	Ledger    string           `yaml:"ledger"`
	Documents string           `yaml:"documents,omitempty"`
	History   string           `yaml:"history,omitempty"`
	Log       LogConfig        `yaml:"log"`
	Importers []ImporterConfig `yaml:"importers"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ImporterConfig maps one statement source to a ledger account.
type ImporterConfig struct {
	Name            string `yaml:"name"`
	Type            string `yaml:"type"`
	Account         string `yaml:"account"`
	CounterAccount  string `yaml:"counter_account,omitempty"`
	CreditLimit     string `yaml:"credit_limit,omitempty"`
	FilenamePattern string `yaml:"filename_pattern,omitempty"`
}

// Load reads a beancmb.yaml file from disk. Relative ledger and documents
// paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	dir := filepath.Dir(path)
	cfg.Ledger = resolve(dir, cfg.Ledger)
	cfg.Documents = resolve(dir, cfg.Documents)
	cfg.History = resolve(dir, cfg.History)
	return &cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with one importer of each type.
func Default() *Config {
	return &Config{
		Ledger:    "main.beancount",
		Documents: "documents",
		History:   "import-log.csv",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Importers: []ImporterConfig{
			{
				Name:           "cmb-checking",
				Type:           importer.TypePDF,
				Account:        accounts.DefaultChart(importer.TypePDF)[0],
				CounterAccount: accounts.DefaultCounterAccount,
			},
			{
				Name:           "cmb-credit-card",
				Type:           importer.TypeDailyEmail,
				Account:        accounts.DefaultChart(importer.TypeDailyEmail)[0],
				CounterAccount: accounts.DefaultCounterAccount,
				CreditLimit:    importer.DefaultCreditLimit.String(),
			},
		},
	}
}

// LoadEnv loads a .env file into the process environment. Without a path it
// tries ./.env and ignores its absence.
func LoadEnv(envPath ...string) error {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}

// ApplyEnv overrides file settings with any BEANCMB_* variables set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLedger); v != "" {
		c.Ledger = v
	}
	if v := os.Getenv(EnvDocuments); v != "" {
		c.Documents = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
}

// Validate reports every problem found in the config.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q: want text or json", c.Log.Format))
	}

	seen := make(map[string]bool)
	for i, ic := range c.Importers {
		label := ic.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			errs = append(errs, fmt.Errorf("importer %s: name is required", label))
		}
		if seen[strings.ToLower(ic.Name)] {
			errs = append(errs, fmt.Errorf("importer %s: duplicate name", label))
		}
		seen[strings.ToLower(ic.Name)] = true

		if !knownType(ic.Type) {
			errs = append(errs, fmt.Errorf("importer %s: unknown type %q", label, ic.Type))
		}
		if err := accounts.Validate(ic.Account); err != nil {
			errs = append(errs, fmt.Errorf("importer %s: account: %w", label, err))
		}
		if ic.CounterAccount != "" {
			if err := accounts.Validate(ic.CounterAccount); err != nil {
				errs = append(errs, fmt.Errorf("importer %s: counter_account: %w", label, err))
			}
		}
		if _, err := ic.creditLimit(); err != nil {
			errs = append(errs, fmt.Errorf("importer %s: %w", label, err))
		}
	}
	return errors.Join(errs...)
}

func knownType(t string) bool {
	for _, k := range importer.Types {
		if k == t {
			return true
		}
	}
	return false
}

func (ic ImporterConfig) creditLimit() (decimal.Decimal, error) {
	if ic.CreditLimit == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(ic.CreditLimit, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing credit_limit %q: %w", ic.CreditLimit, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("credit_limit %q is negative", ic.CreditLimit)
	}
	return d, nil
}

// Definitions converts the importer section into importer definitions.
func (c *Config) Definitions() ([]importer.Definition, error) {
	defs := make([]importer.Definition, 0, len(c.Importers))
	for _, ic := range c.Importers {
		limit, err := ic.creditLimit()
		if err != nil {
			return nil, fmt.Errorf("importer %s: %w", ic.Name, err)
		}
		defs = append(defs, importer.Definition{
			Name:            ic.Name,
			Type:            ic.Type,
			Account:         ic.Account,
			CounterAccount:  ic.CounterAccount,
			CreditLimit:     limit,
			FilenamePattern: ic.FilenamePattern,
		})
	}
	return defs, nil
}

// ParseLevel maps a config level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level %q: want debug, info, warn or error", s)
	}
}
