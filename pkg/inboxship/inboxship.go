package inboxship

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/bft-labs/inboxship/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/inboxship/internal/adapters/http"
	"github.com/bft-labs/inboxship/internal/adapters/schema"
	"github.com/bft-labs/inboxship/internal/adapters/sqlstore"
	"github.com/bft-labs/inboxship/internal/app"
	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
	"github.com/bft-labs/inboxship/pkg/log"
)

// Lifecycle and scheduling errors. Check with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrRunInProgress   = domain.ErrRunInProgress
	ErrLedgerNotLoaded = domain.ErrLedgerNotLoaded
)

// Service reads messages from a store, drops the ones already delivered
// and posts the rest to a webhook. Use New to create an instance, then
// Start for background operation or RunOnce for a single synchronous run.
type Service struct {
	config Config
	logger log.Logger

	lifecycle   *app.Lifecycle
	coordinator *app.Coordinator
	status      *app.RunStatus
	ledger      *fs.DigestLedger
	source      MessageSource
	closer      io.Closer
	plugins     []Plugin

	mu sync.Mutex
}

// New creates a Service in StateStopped. It opens the message source
// unless one is injected with WithSource, and compiles Config.SchemaFile
// when set.
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scheme, _ := domain.ParseScheme(cfg.FingerprintScheme)

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if o.settings == nil {
		fallback := map[string]string{
			ports.SettingWebhookURL: cfg.WebhookURL,
			ports.SettingAuthToken:  cfg.AuthToken,
		}
		o.settings = fs.NewSettingsFile(cfg.SettingsFile, fallback, logger)
	}

	var closer io.Closer
	if o.source == nil {
		src, c, err := openSource(cfg.Source)
		if err != nil {
			return nil, err
		}
		o.source, closer = src, c
	}

	if o.validator == nil && cfg.SchemaFile != "" {
		v, err := schema.LoadFile(cfg.SchemaFile)
		if err != nil {
			closeQuietly(closer, logger)
			return nil, err
		}
		o.validator = v
	}

	emitter := &observerWrapper{observer: o.observer}
	status := app.NewRunStatus(cfg.FeedSize, logger)
	ledger := fs.NewDigestLedger()
	loadInitialLedger(ledger, cfg.LedgerPath(), logger)
	client := httpAdapter.NewWebhookClient(o.httpClient, logger, UserAgent(), o.settings)

	worker := app.NewWorker(
		app.WorkerConfig{LedgerPath: cfg.LedgerPath(), Hasher: domain.NewHasher(scheme)},
		app.WorkerDeps{
			Source:    o.source,
			Client:    client,
			Ledger:    ledger,
			Settings:  o.settings,
			Status:    status,
			Validator: o.validator,
			Logger:    logger,
		},
	)
	coordinator := app.NewCoordinator(app.CoordinatorConfig{
		LedgerPath: cfg.LedgerPath(),
		Interval:   cfg.Interval,
		Debounce:   cfg.Debounce,
	}, worker, ledger, logger, emitter)

	return &Service{
		config:      cfg,
		logger:      logger,
		lifecycle:   app.NewLifecycle(logger, emitter),
		coordinator: coordinator,
		status:      status,
		ledger:      ledger,
		source:      o.source,
		closer:      closer,
		plugins:     o.plugins,
	}, nil
}

// loadInitialLedger reads the ledger file before anything can save it, so
// shutdown and SaveLedger never replace persisted history with an empty
// set. Runs reload the file; a failure here is only logged.
func loadInitialLedger(ledger *fs.DigestLedger, path string, logger log.Logger) {
	res, err := ledger.Load(path)
	switch {
	case err != nil:
		logger.Error("failed to load ledger, saves disabled until it loads",
			log.String("path", path), log.Err(err))
	case res.Degraded:
		logger.Warn("ledger unavailable, starting empty", log.String("path", path), log.String("reason", res.Reason))
	default:
		logger.Info("ledger loaded", log.String("path", path), log.Int("count", res.Count))
	}
}

func openSource(cfg SourceConfig) (MessageSource, io.Closer, error) {
	switch cfg.Kind {
	case SourceJSONL:
		if cfg.Path == "" {
			return nil, nil, domain.ConfigurationError("jsonl source requires a path", nil)
		}
		return fs.NewJSONLSource(cfg.Path), nil, nil
	case "", SourceSQLite, SourcePostgres:
		driver := sqlstore.DriverSQLite
		dsn := cfg.DSN
		if cfg.Kind == SourcePostgres {
			driver = sqlstore.DriverPostgres
		} else if dsn == "" && cfg.Path != "" {
			dsn = "file:" + cfg.Path + "?mode=ro"
		}
		src, err := sqlstore.Open(sqlstore.Config{
			Driver:      driver,
			DSN:         dsn,
			Table:       cfg.Table,
			OrderBy:     cfg.OrderBy,
			MessageType: cfg.MessageType,
		})
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	default:
		return nil, nil, domain.ConfigurationError("unknown source kind", map[string]any{"kind": cfg.Kind})
	}
}

// Start begins background operation: plugins are initialized in order,
// the worker lane starts and, with Config.RunOnStart, a first run is
// requested. The context bounds the lifetime of background work.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx := s.lifecycle.Context(ctx)

	pluginCfg := PluginConfig{
		SourcePath: s.SourcePath(),
		LedgerPath: s.config.LedgerPath(),
		Logger:     s.logger,
		Trigger:    s.coordinator,
	}
	for i, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed", log.String("plugin", p.Name()), log.Err(err))
			s.shutdownPlugins(s.plugins[:i])
			s.lifecycle.Cancel()
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	s.lifecycle.Go(func() {
		if err := s.coordinator.Run(runCtx); err != nil {
			s.logger.Error("worker lane stopped", log.Err(err))
		}
	})

	if err := s.lifecycle.TransitionTo(app.StateRunning, "worker lane started"); err != nil {
		return err
	}
	if s.config.RunOnStart {
		s.coordinator.RequestRun(app.TriggerStartup)
	}
	return nil
}

// Stop cancels background work, waits for the in-flight run, saves the
// ledger and shuts plugins down in reverse order. Returns
// ErrShutdownTimeout when the worker lane does not finish in time.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lifecycle.Cancel()
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	s.shutdownPlugins(s.plugins)

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

func (s *Service) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed", log.String("plugin", p.Name()), log.Err(err))
			continue
		}
		s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
	}
}

// Close releases the message source opened by New. Call it after Stop.
func (s *Service) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Status returns the current lifecycle state.
func (s *Service) Status() State {
	return State(s.lifecycle.State())
}

// RunStatus returns a snapshot of the current or last run.
func (s *Service) RunStatus() StatusSnapshot {
	return s.status.Snapshot()
}

// Trigger requests a run. It returns false when one was already pending.
func (s *Service) Trigger(reason string) bool {
	if reason == "" {
		reason = app.TriggerManual
	}
	return s.coordinator.RequestRun(reason)
}

// Notify signals that new data may be available. Bursts are debounced.
func (s *Service) Notify(reason string) {
	s.coordinator.Notify(reason)
}

// RunOnce executes a run synchronously. It returns ErrRunInProgress when a
// background run holds the worker lane. A run-level failure is returned
// as the error; per-message failures are only counted in the report.
func (s *Service) RunOnce(ctx context.Context) (RunReport, error) {
	return s.coordinator.RunOnce(ctx, app.TriggerManual)
}

// ClearHistory forgets every delivered fingerprint and persists the empty
// ledger, so the next run delivers every message again.
func (s *Service) ClearHistory() error {
	s.coordinator.ClearDedupHistory()
	return s.coordinator.SaveNow()
}

// SaveLedger writes the in-memory ledger to disk. It returns an error
// matching ErrLedgerNotLoaded, and leaves the file alone, while the ledger
// file exists but could not be read.
func (s *Service) SaveLedger() error {
	return s.coordinator.SaveNow()
}

// LedgerSize returns the number of fingerprints currently held in memory.
func (s *Service) LedgerSize() int {
	return s.ledger.Len()
}

// SourcePath returns the local file behind the message source, or "".
func (s *Service) SourcePath() string {
	if lp, ok := s.source.(ports.LocalPath); ok {
		return lp.Path()
	}
	return ""
}

// IsRunFailure reports whether err returned by RunOnce means the run did
// not do its job. Empty sources and cancellation are not failures.
func IsRunFailure(err error) bool {
	return app.IsRunFailure(err)
}

// IsConfigurationError reports whether err was caused by a missing or
// invalid setting, such as an empty webhook URL.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || domain.HasCode(err, domain.CodeConfiguration)
}

func closeQuietly(c io.Closer, logger log.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to close message source", log.Err(err))
	}
}

// observerWrapper adapts Observer to the internal observer interfaces.
type observerWrapper struct {
	observer Observer
}

func (e *observerWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.observer == nil {
		return
	}
	e.observer.OnStateChange(StateChangeEvent{
		Previous: State(previous),
		Current:  State(current),
		Reason:   reason,
	})
}

func (e *observerWrapper) OnRunStart(trigger string) {
	if e.observer != nil {
		e.observer.OnRunStart(trigger)
	}
}

func (e *observerWrapper) OnRunFinish(report domain.RunReport, err error) {
	if e.observer != nil {
		e.observer.OnRunFinish(report, err)
	}
}
