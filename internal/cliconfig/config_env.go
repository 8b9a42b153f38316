package cliconfig

import "os"

// EnvPrefix is the prefix of every environment variable read by ApplyEnvConfig.
const EnvPrefix = "INBOXSHIP_"

// ApplyEnvConfig applies configuration from environment variables (INBOXSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("source", env("SOURCE"), &cfg.Source)
	s.setString("source-path", env("SOURCE_PATH"), &cfg.SourcePath)
	s.setString("source-dsn", env("SOURCE_DSN"), &cfg.SourceDSN)
	s.setString("source-table", env("SOURCE_TABLE"), &cfg.SourceTable)
	s.setString("source-order", env("SOURCE_ORDER"), &cfg.SourceOrder)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("ledger-file", env("LEDGER_FILE"), &cfg.LedgerFile)
	s.setString("webhook-url", env("WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("auth-token", env("AUTH_TOKEN"), &cfg.AuthToken)
	s.setString("fingerprint-scheme", env("FINGERPRINT_SCHEME"), &cfg.FingerprintScheme)
	s.setString("schema", env("SCHEMA_FILE"), &cfg.SchemaFile)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", env("INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("debounce", env("DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}

	if err := s.setIntFromString("source-type", env("SOURCE_TYPE"), &cfg.SourceType); err != nil {
		return err
	}
	if err := s.setIntFromString("feed-size", env("FEED_SIZE"), &cfg.FeedSize); err != nil {
		return err
	}

	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)
	s.setBoolFromString("once", env("ONCE"), &cfg.Once)

	return nil
}
