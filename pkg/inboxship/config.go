package inboxship

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bft-labs/inboxship/internal/adapters/sqlstore"
	"github.com/bft-labs/inboxship/internal/domain"
)

// Source kinds understood by New when no custom source is injected.
const (
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceJSONL    = "jsonl"
)

// DefaultLedgerFile is the ledger file name used when Config.LedgerFile is empty.
const DefaultLedgerFile = "processed_hashes.txt"

// SourceConfig selects the message store.
type SourceConfig struct {
	// Kind is one of SourceSQLite, SourcePostgres or SourceJSONL.
	Kind string
	// Path is the SQLite database or JSON-lines export file.
	Path string
	// DSN overrides Path for SQLite and is required for Postgres.
	DSN string
	// Table and OrderBy apply to SQL sources. Defaults: "sms", "date".
	Table   string
	OrderBy string
	// MessageType filters SQL rows on the "type" column when non-zero.
	MessageType int
}

// Config holds the configuration of an inboxship Service.
type Config struct {
	Source SourceConfig

	// StateDir holds the ledger file. Required.
	StateDir   string
	LedgerFile string

	// WebhookURL and AuthToken are the startup values of the run-time
	// settings. When SettingsFile is set, values in that TOML file take
	// precedence and are re-read at the start of every run.
	WebhookURL   string
	AuthToken    string
	SettingsFile string

	HTTPTimeout time.Duration

	// Interval enables periodic runs when positive.
	Interval time.Duration
	// Debounce is the quiet period applied to Notify. Negative disables it.
	Debounce time.Duration
	// RunOnStart requests a run as soon as the service is running.
	RunOnStart bool

	FingerprintScheme string
	// SchemaFile is an optional JSON Schema every record must satisfy.
	SchemaFile string

	FeedSize int
}

// SetDefaults fills zero fields with defaults.
func (c *Config) SetDefaults() {
	if c.LedgerFile == "" {
		c.LedgerFile = DefaultLedgerFile
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.Debounce == 0 {
		c.Debounce = 2 * time.Second
	}
	if c.FingerprintScheme == "" {
		c.FingerprintScheme = domain.SchemeDelimited.String()
	}
	if c.FeedSize <= 0 {
		c.FeedSize = 200
	}
	if c.Source.Table == "" {
		c.Source.Table = sqlstore.DefaultTable
	}
	if c.Source.OrderBy == "" {
		c.Source.OrderBy = sqlstore.DefaultOrderBy
	}
}

// Validate checks the configuration. It does not require a webhook URL;
// that is resolved per run.
func (c Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("%w: state dir is required", domain.ErrInvalidConfig)
	}
	if _, err := domain.ParseScheme(c.FingerprintScheme); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval must not be negative", domain.ErrInvalidConfig)
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
