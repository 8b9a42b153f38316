package inboxship

import (
	"context"

	"github.com/bft-labs/inboxship/internal/app"
	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
	"github.com/bft-labs/inboxship/pkg/log"
)

// State is the lifecycle state of a Service.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

// Re-exported domain types.
type (
	// Message is one record from the message source.
	Message = domain.Message
	// Fingerprint is the dedup key of a message.
	Fingerprint = domain.Fingerprint
	// RunReport summarizes one run.
	RunReport = domain.RunReport
	// StatusSnapshot is a point-in-time copy of the run status.
	StatusSnapshot = app.StatusSnapshot
	// MessageSource lists candidate messages. Inject one with WithSource.
	MessageSource = ports.MessageSource
	// Settings is the run-time configuration store. Inject one with WithSettings.
	Settings = ports.Settings
	// RecordValidator checks records before fingerprinting.
	RecordValidator = ports.RecordValidator
	// HTTPClient is satisfied by *http.Client.
	HTTPClient = ports.HTTPClient
)

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// Observer receives lifecycle and run notifications. Callbacks are
// synchronous and must return quickly.
type Observer interface {
	OnStateChange(event StateChangeEvent)
	OnRunStart(trigger string)
	OnRunFinish(report RunReport, err error)
}

// BaseObserver implements Observer with no-ops. Embed it to override a subset.
type BaseObserver struct{}

func (BaseObserver) OnStateChange(StateChangeEvent) {}
func (BaseObserver) OnRunStart(string)              {}
func (BaseObserver) OnRunFinish(RunReport, error)   {}

// Trigger lets plugins request runs.
type Trigger interface {
	// RequestRun schedules a run now; false means one was already pending.
	RequestRun(reason string) bool
	// Notify signals new data; bursts are debounced into one run.
	Notify(reason string)
}

// PluginConfig is passed to plugins on Initialize.
type PluginConfig struct {
	// SourcePath is the local file behind the message source, or "" when
	// the source is not a local file.
	SourcePath string
	LedgerPath string
	Logger     log.Logger
	Trigger    Trigger
}

// Plugin extends a Service. Plugins are initialized in registration order
// on Start and shut down in reverse order on Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}
