// Package inboxship forwards text messages from a local store to a webhook.
//
// Example usage:
//
//	cfg := inboxship.Config{
//	    Source:     inboxship.SourceConfig{Kind: inboxship.SourceSQLite, Path: "/data/mmssms.db"},
//	    StateDir:   "/var/lib/inboxship",
//	    WebhookURL: "https://hooks.example.com/sms",
//	    Interval:   time.Minute,
//	}
//	if err := inboxship.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// The embeddable service with plugins and observers lives in pkg/inboxship.
package inboxship

import (
	"context"

	service "github.com/bft-labs/inboxship/pkg/inboxship"
)

// Config holds the forwarder configuration.
type Config = service.Config

// SourceConfig selects the message store.
type SourceConfig = service.SourceConfig

// Source kinds.
const (
	SourceSQLite   = service.SourceSQLite
	SourcePostgres = service.SourcePostgres
	SourceJSONL    = service.SourceJSONL
)

// Run starts the forwarder and blocks until ctx is cancelled, then stops
// it gracefully. A first run starts immediately.
func Run(ctx context.Context, cfg Config, opts ...service.Option) error {
	cfg.RunOnStart = true
	svc, err := service.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return svc.Stop()
}

// RunOnce performs a single synchronous run and returns its report.
func RunOnce(ctx context.Context, cfg Config, opts ...service.Option) (service.RunReport, error) {
	svc, err := service.New(cfg, opts...)
	if err != nil {
		return service.RunReport{}, err
	}
	defer svc.Close()
	return svc.RunOnce(ctx)
}
