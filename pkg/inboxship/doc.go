// Package inboxship provides an embeddable SMS forwarding service.
//
// Inboxship reads text messages from a local store (the Android SMS
// provider database, a Postgres table or a JSON-lines export), fingerprints
// each one, skips the ones whose fingerprint is already in the delivery
// ledger and posts the rest as JSON to a webhook. Fingerprints of messages
// the endpoint accepted (200) or already had (409) are recorded in the
// ledger and persisted to a plain text file.
//
// # Basic Usage
//
//	cfg := inboxship.Config{
//	    Source:     inboxship.SourceConfig{Kind: inboxship.SourceSQLite, Path: "/data/mmssms.db"},
//	    StateDir:   "/var/lib/inboxship",
//	    WebhookURL: "https://hooks.example.com/sms",
//	    Interval:   time.Minute,
//	}
//
//	svc, err := inboxship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	// ... run until shutdown signal ...
//	_ = svc.Stop()
//
// For a single synchronous pass use [Service.RunOnce] without calling Start.
//
// # Scheduling
//
// All runs execute on one worker lane, so two runs never overlap. Runs are
// requested by [Service.Trigger], by the interval ticker, or by plugins via
// [Trigger]. At most one run waits behind the one in flight; further
// requests are coalesced into it. [Service.Notify] debounces bursts of
// new-data signals into a single request.
//
// # Run-time settings
//
// The webhook URL and bearer token are read at the start of every run from
// Config.SettingsFile when set, falling back to Config.WebhookURL and
// Config.AuthToken. Editing the file takes effect on the next run.
//
// # Lifecycle States
//
//   - StateStopped: initial state, or after graceful shutdown
//   - StateStarting: Start() called, plugins initializing
//   - StateRunning: worker lane accepting runs
//   - StateStopping: Stop() called, in-flight run finishing
//   - StateCrashed: plugin initialization failed or shutdown timed out
//
// # Thread Safety
//
// All Service methods are safe for concurrent use.
package inboxship
