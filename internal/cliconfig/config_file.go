package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
// Keys are flat so the run-time settings store can read webhook_url and
// auth_token from the same file.
type FileConfig struct {
	Source            string `toml:"source"`
	SourcePath        string `toml:"source_path"`
	SourceDSN         string `toml:"source_dsn"`
	SourceTable       string `toml:"source_table"`
	SourceOrder       string `toml:"source_order"`
	SourceType        int    `toml:"source_type"`
	StateDir          string `toml:"state_dir"`
	LedgerFile        string `toml:"ledger_file"`
	WebhookURL        string `toml:"webhook_url"`
	AuthToken         string `toml:"auth_token"`
	HTTPTimeout       string `toml:"http_timeout"`
	Interval          string `toml:"interval"`
	Debounce          string `toml:"debounce"`
	Watch             *bool  `toml:"watch"`
	FingerprintScheme string `toml:"fingerprint_scheme"`
	SchemaFile        string `toml:"schema_file"`
	FeedSize          int    `toml:"feed_size"`
	LogLevel          string `toml:"log_level"`
	Once              *bool  `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.inboxship/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".inboxship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("source", fc.Source, &cfg.Source)
	s.setString("source-path", fc.SourcePath, &cfg.SourcePath)
	s.setString("source-dsn", fc.SourceDSN, &cfg.SourceDSN)
	s.setString("source-table", fc.SourceTable, &cfg.SourceTable)
	s.setString("source-order", fc.SourceOrder, &cfg.SourceOrder)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("ledger-file", fc.LedgerFile, &cfg.LedgerFile)
	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("auth-token", fc.AuthToken, &cfg.AuthToken)
	s.setString("fingerprint-scheme", fc.FingerprintScheme, &cfg.FingerprintScheme)
	s.setString("schema", fc.SchemaFile, &cfg.SchemaFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("debounce", fc.Debounce, &cfg.Debounce); err != nil {
		return err
	}

	s.setInt("source-type", fc.SourceType, &cfg.SourceType)
	s.setInt("feed-size", fc.FeedSize, &cfg.FeedSize)

	s.setBool("watch", fc.Watch, &cfg.Watch)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
