package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
	"github.com/bft-labs/inboxship/pkg/log"
)

// WorkerConfig contains the static parameters of an ingestion run.
type WorkerConfig struct {
	LedgerPath string
	Hasher     domain.Hasher
}

// WorkerDeps are the collaborators of the ingestion worker. Validator is optional.
type WorkerDeps struct {
	Source    ports.MessageSource
	Client    ports.WebhookClient
	Ledger    ports.DigestLedger
	Settings  ports.Settings
	Status    ports.StatusSink
	Validator ports.RecordValidator
	Logger    log.Logger
}

// runTracker is implemented by status sinks that track run boundaries.
type runTracker interface {
	beginRun(runID string)
	finishRun(report domain.RunReport)
}

// Worker performs one pass over the message source: resolve the endpoint,
// load the ledger, list messages, deliver unseen ones in order, save the
// ledger. It is not reentrant; the Coordinator guarantees a single caller.
type Worker struct {
	config WorkerConfig
	deps   WorkerDeps
	now    func() time.Time
}

// NewWorker creates a new ingestion worker.
func NewWorker(config WorkerConfig, deps WorkerDeps) *Worker {
	if deps.Logger == nil {
		deps.Logger = log.NewNoopLogger()
	}
	if deps.Status == nil {
		deps.Status = NewRunStatus(DefaultFeedSize, deps.Logger)
	}
	return &Worker{config: config, deps: deps, now: time.Now}
}

// Run executes one ingestion run. The returned error is non-nil only for
// run-level failures (configuration, ledger, source, cancellation); per-message
// failures are counted in the report.
func (w *Worker) Run(ctx context.Context, trigger string) (report domain.RunReport, err error) {
	report = domain.RunReport{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: w.now(),
	}
	logger := log.With(w.deps.Logger, log.String("run_id", report.RunID))
	status := w.deps.Status

	tracker, _ := status.(runTracker)
	if tracker != nil {
		tracker.beginRun(report.RunID)
	}
	defer func() {
		report.FinishedAt = w.now()
		report.LedgerSize = w.deps.Ledger.Len()
		if tracker != nil {
			tracker.finishRun(report)
		}
	}()

	logger.Info("run started", log.String("trigger", trigger))

	endpoint := w.deps.Settings.Get(ports.SettingWebhookURL, "")
	if err := domain.ValidateEndpoint(endpoint); err != nil {
		report.Outcome = domain.RunConfigError
		if endpoint == "" {
			status.Report("Webhook URL is empty. Please configure it and retry.")
		} else {
			status.Report(fmt.Sprintf("Webhook URL is invalid: %v", err))
		}
		logger.Error("run aborted", log.Err(err))
		return report, err
	}

	if err := w.loadLedger(logger); err != nil {
		report.Outcome = domain.RunLedgerUnavailable
		return report, err
	}

	msgs, err := w.deps.Source.ListMessages(ctx)
	if err != nil {
		if ctx.Err() != nil {
			report.Outcome = domain.RunCanceled
			status.Report("Run canceled before messages were read.")
			w.finalize(logger, &report)
			return report, ctx.Err()
		}
		report.Outcome = domain.RunSourceUnavailable
		status.Report(fmt.Sprintf("Unable to read message source: %v", err))
		logger.Error("message source unavailable", log.String("source", w.deps.Source.Describe()), log.Err(err))
		if !domain.HasCode(err, domain.CodeSourceUnavailable) {
			err = domain.SourceUnavailable(err, err.Error())
		}
		return report, err
	}
	if len(msgs) == 0 {
		report.Outcome = domain.RunEmptySource
		status.Report("No messages found in message source.")
		logger.Info("message source is empty", log.String("source", w.deps.Source.Describe()))
		return report, domain.EmptySource("message source yielded no messages")
	}

	report.Total = len(msgs)
	status.SetTotal(len(msgs))
	status.SetProcessed(0)
	status.Report(fmt.Sprintf("Found %d messages in message source.", len(msgs)))

	for _, msg := range msgs {
		if ctx.Err() != nil {
			report.Outcome = domain.RunCanceled
			status.Report(fmt.Sprintf("Run canceled after %d of %d messages.", report.Processed, report.Total))
			w.finalize(logger, &report)
			return report, ctx.Err()
		}

		w.process(ctx, logger, endpoint, msg, &report)

		report.Processed++
		status.SetProcessed(report.Processed)
	}

	report.Outcome = domain.RunCompleted
	w.finalize(logger, &report)
	status.Report(fmt.Sprintf("Run finished: %d delivered, %d already on server, %d skipped, %d failed, %d malformed.",
		report.Delivered, report.AlreadyExisted, report.Skipped, report.Failed, report.Malformed))
	logger.Info("run finished",
		log.Int("total", report.Total),
		log.Int("delivered", report.Delivered),
		log.Int("already_existed", report.AlreadyExisted),
		log.Int("skipped", report.Skipped),
		log.Int("failed", report.Failed),
		log.Int("malformed", report.Malformed),
	)
	return report, nil
}

// process handles one message. Every failure is isolated to the message.
func (w *Worker) process(ctx context.Context, logger log.Logger, endpoint string, msg domain.Message, report *domain.RunReport) {
	status := w.deps.Status
	sender := msg.SenderLabel()

	fp, err := w.fingerprint(msg)
	if err != nil {
		report.Malformed++
		status.Report(fmt.Sprintf("Message attributes error from '%s': %v", sender, err))
		logger.Warn("malformed message", log.Int("position", msg.Position), log.Err(err))
		return
	}

	seen, err := w.deps.Ledger.Exists(fp)
	if err != nil {
		report.Failed++
		status.Report(fmt.Sprintf("Error processing message from '%s': %v", sender, err))
		logger.Error("ledger lookup failed", log.Int("position", msg.Position), log.Err(err))
		return
	}
	if seen {
		report.Skipped++
		logger.Debug("message already delivered", log.Int("position", msg.Position), log.String("fingerprint", fp.Short()))
		return
	}

	start := w.now()
	out := w.deps.Client.Deliver(ctx, msg, fp, endpoint)
	fields := []log.Field{
		log.Int("position", msg.Position),
		log.String("fingerprint", fp.Short()),
		log.String("outcome", out.Kind.String()),
		log.Duration("duration", w.now().Sub(start)),
	}

	if !out.Succeeded() {
		report.Failed++
		status.Report(fmt.Sprintf("Upload error processing message from '%s': %s", sender, out))
		logger.Warn("delivery failed", append(fields, log.Int("status", out.StatusCode), log.String("reason", out.Reason))...)
		return
	}

	if err := w.deps.Ledger.Add(fp); err != nil {
		logger.Error("failed to record fingerprint", append(fields, log.Err(err))...)
	}
	if out.Kind == domain.AlreadyExists {
		report.AlreadyExisted++
		status.Report(fmt.Sprintf("Message from '%s' already exists on server", sender))
	} else {
		report.Delivered++
		status.Report(fmt.Sprintf("Processed message from '%s'", sender))
	}
	logger.Debug("message delivered", fields...)
}

func (w *Worker) fingerprint(msg domain.Message) (domain.Fingerprint, error) {
	if msg.Fields == nil {
		return "", domain.MalformedRecord("record is not an object", map[string]any{"position": msg.Position})
	}
	if w.deps.Validator != nil {
		if err := w.deps.Validator.Validate(msg); err != nil {
			return "", err
		}
	}
	return w.config.Hasher.MessageFingerprint(msg)
}

func (w *Worker) loadLedger(logger log.Logger) error {
	res, err := w.deps.Ledger.Load(w.config.LedgerPath)
	switch {
	case err != nil:
		w.deps.Status.Report(fmt.Sprintf("Could not load delivery history: %v", err))
		logger.Error("failed to load ledger, run aborted",
			log.String("path", w.config.LedgerPath), log.Err(err))
		return err
	case res.Degraded:
		w.deps.Status.Report("No delivery history found, starting with an empty ledger.")
		logger.Warn("ledger unavailable, starting empty",
			log.String("path", w.config.LedgerPath), log.String("reason", res.Reason))
	default:
		logger.Debug("ledger loaded", log.Int("count", res.Count))
	}
	return nil
}

// finalize persists the ledger once. A failure is reported, never returned.
func (w *Worker) finalize(logger log.Logger, report *domain.RunReport) {
	if err := w.deps.Ledger.Save(w.config.LedgerPath); err != nil {
		report.SaveErr = err
		w.deps.Status.Report(fmt.Sprintf("Failed to save delivery history: %v", err))
		logger.Error("failed to save ledger", log.String("path", w.config.LedgerPath), log.Err(err))
	}
}

// IsRunFailure reports whether err from Worker.Run should count as a failed
// run. Empty sources and cancellations do not.
func IsRunFailure(err error) bool {
	if err == nil || domain.HasCode(err, domain.CodeEmptySource) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
