package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
	"github.com/bft-labs/inboxship/pkg/log"
)

// DefaultDebounce is the quiet period applied to new-data notifications.
const DefaultDebounce = 2 * time.Second

// Trigger reasons used by the built-in trigger sources.
const (
	TriggerManual   = "manual"
	TriggerInterval = "interval"
	TriggerStartup  = "startup"
)

// Runner executes one ingestion run. *Worker satisfies this interface.
type Runner interface {
	Run(ctx context.Context, trigger string) (domain.RunReport, error)
}

// RunObserver is notified around every run. Callbacks run on the worker
// lane and must not block.
type RunObserver interface {
	OnRunStart(trigger string)
	OnRunFinish(report domain.RunReport, err error)
}

// CoordinatorConfig contains the scheduling parameters.
type CoordinatorConfig struct {
	LedgerPath string
	// Interval enables a periodic trigger when positive.
	Interval time.Duration
	// Debounce is the quiet period for Notify. Zero uses DefaultDebounce;
	// negative disables debouncing.
	Debounce time.Duration
}

// Coordinator serializes runs onto a single worker lane.
//
// Triggers are queued with coalescing: there is at most one pending run in
// addition to the one in flight. A trigger that arrives while a run is
// pending is dropped; one that arrives during a run schedules exactly one
// follow-up run.
type Coordinator struct {
	config   CoordinatorConfig
	runner   Runner
	ledger   ports.DigestLedger
	logger   log.Logger
	observer RunObserver

	pending chan string
	lane    sync.Mutex

	debounceMu     sync.Mutex
	debounceTimer  *time.Timer
	debounceReason string
}

// NewCoordinator creates a coordinator. observer may be nil.
func NewCoordinator(config CoordinatorConfig, runner Runner, ledger ports.DigestLedger, logger log.Logger, observer RunObserver) *Coordinator {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	return &Coordinator{
		config:   config,
		runner:   runner,
		ledger:   ledger,
		logger:   logger,
		observer: observer,
		pending:  make(chan string, 1),
	}
}

// Run is the worker lane. It executes pending runs until ctx is canceled,
// then saves the ledger once more and returns.
func (c *Coordinator) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if c.config.Interval > 0 {
		ticker := time.NewTicker(c.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.stopDebounce()
			if err := c.SaveNow(); err != nil {
				c.logger.Warn("failed to save ledger on shutdown", log.Err(err))
			}
			return nil
		case reason := <-c.pending:
			c.execute(ctx, reason)
		case <-tick:
			c.RequestRun(TriggerInterval)
		}
	}
}

// RequestRun schedules a run. It returns false when a run is already
// pending and this request was coalesced into it.
func (c *Coordinator) RequestRun(reason string) bool {
	select {
	case c.pending <- reason:
		c.logger.Debug("run requested", log.String("trigger", reason))
		return true
	default:
		c.logger.Debug("run already pending, trigger coalesced", log.String("trigger", reason))
		return false
	}
}

// Notify signals that new data may be available. Bursts of notifications
// collapse into one RequestRun after the debounce period of quiet.
func (c *Coordinator) Notify(reason string) {
	if c.config.Debounce < 0 {
		c.RequestRun(reason)
		return
	}

	c.debounceMu.Lock()
	defer c.debounceMu.Unlock()
	c.debounceReason = reason
	if c.debounceTimer == nil {
		c.debounceTimer = time.AfterFunc(c.config.Debounce, c.fireDebounce)
		return
	}
	c.debounceTimer.Reset(c.config.Debounce)
}

func (c *Coordinator) fireDebounce() {
	c.debounceMu.Lock()
	reason := c.debounceReason
	c.debounceMu.Unlock()
	c.RequestRun(reason)
}

func (c *Coordinator) stopDebounce() {
	c.debounceMu.Lock()
	defer c.debounceMu.Unlock()
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
}

// RunOnce executes a run on the caller's goroutine. It returns
// domain.ErrRunInProgress when another run holds the lane.
func (c *Coordinator) RunOnce(ctx context.Context, reason string) (domain.RunReport, error) {
	if !c.lane.TryLock() {
		return domain.RunReport{}, domain.ErrRunInProgress
	}
	defer c.lane.Unlock()
	return c.runLocked(ctx, reason)
}

// ClearDedupHistory empties the in-memory ledger. The file keeps its
// contents until the next save.
func (c *Coordinator) ClearDedupHistory() {
	c.ledger.Clear()
	c.logger.Info("dedup history cleared")
}

// SaveNow writes the ledger to disk.
func (c *Coordinator) SaveNow() error {
	return c.ledger.Save(c.config.LedgerPath)
}

func (c *Coordinator) execute(ctx context.Context, reason string) {
	c.lane.Lock()
	defer c.lane.Unlock()
	_, _ = c.runLocked(ctx, reason)
}

func (c *Coordinator) runLocked(ctx context.Context, reason string) (domain.RunReport, error) {
	if c.observer != nil {
		c.observer.OnRunStart(reason)
	}
	report, err := c.runner.Run(ctx, reason)
	if IsRunFailure(err) {
		c.logger.Warn("run failed",
			log.String("run_id", report.RunID),
			log.String("outcome", string(report.Outcome)),
			log.String("code", domain.Code(err)),
			log.Err(err),
		)
	}
	if c.observer != nil {
		c.observer.OnRunFinish(report, err)
	}
	return report, err
}
