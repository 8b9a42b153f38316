package inboxship_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/inboxship"
	svc "github.com/bft-labs/inboxship/pkg/inboxship"
)

const export = `{"date":1700000000000,"address":"+15550001","body":"hello"}` + "\n"

func TestRunOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "sms.jsonl")
	if err := os.WriteFile(path, []byte(export), 0o600); err != nil {
		t.Fatal(err)
	}

	report, err := inboxship.RunOnce(context.Background(), inboxship.Config{
		Source:     inboxship.SourceConfig{Kind: inboxship.SourceJSONL, Path: path},
		StateDir:   dir,
		WebhookURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Delivered != 1 || hits.Load() != 1 {
		t.Fatalf("report=%+v hits=%d", report, hits.Load())
	}
}

type finishSignal struct {
	svc.BaseObserver
	done chan struct{}
}

func (f *finishSignal) OnRunFinish(svc.RunReport, error) {
	select {
	case f.done <- struct{}{}:
	default:
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "sms.jsonl")
	if err := os.WriteFile(path, []byte(export), 0o600); err != nil {
		t.Fatal(err)
	}

	obs := &finishSignal{done: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- inboxship.Run(ctx, inboxship.Config{
			Source:     inboxship.SourceConfig{Kind: inboxship.SourceJSONL, Path: path},
			StateDir:   dir,
			WebhookURL: srv.URL,
		}, svc.WithObserver(obs))
	}()

	select {
	case <-obs.done:
	case <-time.After(5 * time.Second):
		t.Fatal("startup run did not finish")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(filepath.Join(dir, svc.DefaultLedgerFile)); err != nil {
		t.Errorf("ledger not saved: %v", err)
	}
}
