package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/inboxship/internal/cliconfig"
	"github.com/bft-labs/inboxship/pkg/inboxship"
	"github.com/bft-labs/inboxship/pkg/log"
	"github.com/bft-labs/inboxship/plugins/inboxwatcher"
)

const helpDescription = `
Forward the text messages on this device to a webhook, once each.

Highlights:
  - Reads the Android SMS database, a Postgres table or a JSON-lines export.
  - Remembers what was delivered in a plain text ledger; reruns are safe.
  - Runs on a timer, when the message store changes, or on SIGHUP.
  - Webhook URL and token are re-read from the config file before every run.
`

var exampleUsage = strings.TrimSpace(`
  inboxship --source-path /data/data/com.android.providers.telephony/databases/mmssms.db --webhook-url https://hooks.example.com/sms
  inboxship --source jsonl --source-path ./sms.jsonl --once
  inboxship ledger count
  inboxship fingerprint --date 1700000000000 --address +15550001 --body hello
`)

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "inboxship",
		Short:         "Forward text messages to a webhook exactly once",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", inboxship.Version, runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := loadConfig(cmd, &cfg, cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cfgFile, settingsOverridden(cmd))
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.inboxship/config.toml)")
	root.PersistentFlags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory holding the delivery ledger (default: $HOME/.inboxship)")
	root.PersistentFlags().StringVar(&cfg.LedgerFile, "ledger-file", cfg.LedgerFile, "ledger file name, relative to state-dir")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.FingerprintScheme, "fingerprint-scheme", cfg.FingerprintScheme, "fingerprint layout: delimited or legacy")

	root.Flags().StringVar(&cfg.Source, "source", cfg.Source, "message source: sqlite, postgres or jsonl")
	root.Flags().StringVar(&cfg.SourcePath, "source-path", cfg.SourcePath, "SQLite database or JSON-lines export")
	root.Flags().StringVar(&cfg.SourceDSN, "source-dsn", cfg.SourceDSN, "database DSN (required for postgres, overrides source-path for sqlite)")
	root.Flags().StringVar(&cfg.SourceTable, "source-table", cfg.SourceTable, "table holding messages")
	root.Flags().StringVar(&cfg.SourceOrder, "source-order", cfg.SourceOrder, "ordering column, optionally followed by ASC or DESC")
	root.Flags().IntVar(&cfg.SourceType, "source-type", cfg.SourceType, "only read rows with this type value (1 = inbox; 0 = all)")
	root.Flags().StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "endpoint receiving one POST per message")
	root.Flags().StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "bearer token sent with every delivery")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per delivery")
	root.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "run periodically at this interval (0 disables)")
	root.Flags().DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet period after a store change before running")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "run when the message store file changes")
	root.Flags().StringVar(&cfg.SchemaFile, "schema", cfg.SchemaFile, "JSON Schema every message must satisfy (optional)")
	root.Flags().IntVar(&cfg.FeedSize, "feed-size", cfg.FeedSize, "number of status lines kept in memory")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "run a single pass and exit")

	root.AddCommand(newLedgerCmd(&cfg, &cfgPath), newFingerprintCmd(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		logger := cliconfig.Logger(cfg.LogLevel)
		logger.Error().Err(err).Msg("inboxship")
		os.Exit(1)
	}
}

// loadConfig applies the config file and INBOXSHIP_* variables under the
// flags set on cmd. It returns the config file path that was read, or "".
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else if cfgPath != "" {
		return "", fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	return cfgFile, nil
}

// settingsOverridden reports whether the webhook settings were pinned by a
// flag or environment variable. Pinned values are not re-read from the
// config file between runs.
func settingsOverridden(cmd *cobra.Command) bool {
	for _, name := range []string{"webhook-url", "auth-token"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	for _, name := range []string{"WEBHOOK_URL", "AUTH_TOKEN"} {
		if os.Getenv(cliconfig.EnvPrefix+name) != "" {
			return true
		}
	}
	return false
}

func libraryConfig(cfg cliconfig.Config, settingsFile string) inboxship.Config {
	dsn := cfg.SourceDSN
	if cfg.Source == cliconfig.SourceSQLite {
		dsn = cfg.SQLiteDSN()
	}
	return inboxship.Config{
		Source: inboxship.SourceConfig{
			Kind:        cfg.Source,
			Path:        cfg.SourcePath,
			DSN:         dsn,
			Table:       cfg.SourceTable,
			OrderBy:     cfg.SourceOrder,
			MessageType: cfg.SourceType,
		},
		StateDir:          cfg.StateDir,
		LedgerFile:        cfg.LedgerFile,
		WebhookURL:        cfg.WebhookURL,
		AuthToken:         cfg.AuthToken,
		SettingsFile:      settingsFile,
		HTTPTimeout:       cfg.HTTPTimeout,
		Interval:          cfg.Interval,
		Debounce:          cfg.Debounce,
		RunOnStart:        true,
		FingerprintScheme: cfg.FingerprintScheme,
		SchemaFile:        cfg.SchemaFile,
		FeedSize:          cfg.FeedSize,
	}
}

func run(parent context.Context, cfg cliconfig.Config, cfgFile string, pinned bool) error {
	logger := cliconfig.Logger(cfg.LogLevel)
	logger.Info().Interface("config", cfg.Masked()).Msg("configuration")

	settingsFile := cfgFile
	if pinned {
		settingsFile = ""
	}

	opts := []inboxship.Option{
		inboxship.WithLogger(log.NewZerologAdapterWithLogger(logger)),
		inboxship.WithObserver(&runLogger{logger: logger}),
	}
	if cfg.Watch && !cfg.Once {
		opts = append(opts, inboxwatcher.WithInboxWatcher())
	}

	svc, err := inboxship.New(libraryConfig(cfg, settingsFile), opts...)
	if err != nil {
		return fmt.Errorf("create inboxship: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn().Err(err).Msg("close message source")
		}
	}()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Once {
		report, err := svc.RunOnce(ctx)
		if inboxship.IsRunFailure(err) {
			return err
		}
		if report.SaveErr != nil {
			return fmt.Errorf("save ledger: %w", report.SaveErr)
		}
		return nil
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start inboxship: %w", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("received signal, stopping...")
			break loop
		case <-hup:
			svc.Trigger("signal")
		case <-ticker.C:
			if svc.Status() == inboxship.StateCrashed {
				logger.Error().Msg("inboxship crashed")
				break loop
			}
		}
	}

	if err := svc.Stop(); err != nil && !errors.Is(err, inboxship.ErrNotRunning) {
		return fmt.Errorf("stop inboxship: %w", err)
	}
	return nil
}

// runLogger prints one summary line per finished run.
type runLogger struct {
	inboxship.BaseObserver
	logger zerolog.Logger
}

func (r *runLogger) OnRunFinish(report inboxship.RunReport, err error) {
	ev := r.logger.Info()
	if inboxship.IsRunFailure(err) {
		ev = r.logger.Error().Err(err)
	}
	ev.Str("run_id", report.RunID).
		Str("trigger", report.Trigger).
		Str("outcome", string(report.Outcome)).
		Int("total", report.Total).
		Int("delivered", report.Delivered).
		Int("already_existed", report.AlreadyExisted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("malformed", report.Malformed).
		Dur("duration", report.Duration()).
		Msg("run summary")
}
