package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bft-labs/inboxship/internal/domain"
)

// Message source kinds.
const (
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceJSONL    = "jsonl"
)

// DefaultLedgerFile is the ledger file name inside the state directory.
const DefaultLedgerFile = "processed_hashes.txt"

// Config holds CLI configuration for inboxship.
type Config struct {
	Source      string
	SourcePath  string
	SourceDSN   string
	SourceTable string
	SourceOrder string
	SourceType  int

	StateDir   string
	LedgerFile string

	WebhookURL  string
	AuthToken   string
	HTTPTimeout time.Duration

	Interval time.Duration
	Debounce time.Duration
	Watch    bool

	FingerprintScheme string
	SchemaFile        string

	FeedSize int
	LogLevel string
	Once     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Source:            SourceSQLite,
		SourceTable:       "sms",
		SourceOrder:       "date",
		LedgerFile:        DefaultLedgerFile,
		HTTPTimeout:       15 * time.Second,
		Debounce:          2 * time.Second,
		Watch:             true,
		FingerprintScheme: domain.SchemeDelimited.String(),
		FeedSize:          200,
		LogLevel:          "info",
		StateDir:          "", // Derived during Validate
	}
}

// Validate checks the configuration for errors and sets derived defaults.
// The webhook URL is not checked here; it is resolved at the start of every run.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceSQLite, SourceJSONL:
		if c.SourcePath == "" && c.SourceDSN == "" {
			return fmt.Errorf("source-path is required for %s sources", c.Source)
		}
	case SourcePostgres:
		if c.SourceDSN == "" {
			return fmt.Errorf("source-dsn is required for postgres sources")
		}
	default:
		return fmt.Errorf("unknown source %q (want %s, %s or %s)", c.Source, SourceSQLite, SourcePostgres, SourceJSONL)
	}

	if _, err := domain.ParseScheme(c.FingerprintScheme); err != nil {
		return err
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
		if c.StateDir == "" {
			return fmt.Errorf("state-dir is required (home directory unavailable)")
		}
	}
	if c.LedgerFile == "" {
		c.LedgerFile = DefaultLedgerFile
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}

	return nil
}

// LedgerPath returns the ledger file location.
func (c Config) LedgerPath() string {
	if filepath.IsAbs(c.LedgerFile) {
		return c.LedgerFile
	}
	return filepath.Join(c.StateDir, c.LedgerFile)
}

// SQLiteDSN returns the go-sqlite3 DSN for a sqlite source, opening the
// database read-only unless an explicit DSN was configured.
func (c Config) SQLiteDSN() string {
	if c.SourceDSN != "" {
		return c.SourceDSN
	}
	return "file:" + c.SourcePath + "?mode=ro"
}

// Masked returns a copy safe for logging.
func (c Config) Masked() Config {
	if c.AuthToken != "" {
		c.AuthToken = "*****"
	}
	if c.SourceDSN != "" && c.Source == SourcePostgres {
		c.SourceDSN = "*****"
	}
	return c
}

// DefaultStateDir returns ~/.inboxship, or "" when the home directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".inboxship")
	}
	return ""
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
