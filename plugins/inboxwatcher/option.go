package inboxwatcher

import "github.com/bft-labs/inboxship/pkg/inboxship"

// WithInboxWatcher returns an inboxship Option that requests a run whenever
// the message store file changes. Bursts of writes are debounced by the
// service (Config.Debounce).
//
// Usage:
//
//	svc, err := inboxship.New(cfg, inboxwatcher.WithInboxWatcher())
func WithInboxWatcher() inboxship.Option {
	return inboxship.WithPlugin(New())
}
