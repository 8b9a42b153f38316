// Package inboxwatcher triggers inboxship runs when the message store
// changes on disk. It watches the directory of the store file and
// notifies the service on writes to the file or its SQLite sidecars.
package inboxwatcher

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/inboxship/pkg/inboxship"
	"github.com/bft-labs/inboxship/pkg/log"
)

// ReasonPrefix prefixes the trigger reason of runs requested by the watcher.
const ReasonPrefix = "fs:"

// sidecarSuffixes are the SQLite files written next to the database.
var sidecarSuffixes = []string{"", "-wal", "-journal"}

// Plugin watches the message store file.
type Plugin struct {
	mu      sync.Mutex
	names   map[string]struct{}
	dir     string
	trigger inboxship.Trigger
	logger  log.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a watcher plugin. It stays idle until Initialize.
func New() *Plugin {
	return &Plugin{}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "inboxwatcher"
}

// Initialize starts watching cfg.SourcePath. Sources that are not local
// files disable the watcher without failing startup.
func (p *Plugin) Initialize(ctx context.Context, cfg inboxship.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	p.mu.Lock()
	p.logger = logger
	p.trigger = cfg.Trigger
	p.mu.Unlock()

	if cfg.SourcePath == "" || cfg.Trigger == nil {
		logger.Warn("inbox watcher disabled: message source is not a local file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(cfg.SourcePath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	base := filepath.Base(cfg.SourcePath)
	names := make(map[string]struct{}, len(sidecarSuffixes))
	for _, suffix := range sidecarSuffixes {
		names[base+suffix] = struct{}{}
	}

	p.mu.Lock()
	p.dir = dir
	p.names = names
	p.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	logger.Info("inbox watcher started", log.String("dir", dir), log.String("file", base))
	return nil
}

// Shutdown stops the watcher and waits for its goroutine.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !p.matches(name) {
				continue
			}
			p.logger.Debug("message store changed", log.String("file", name), log.String("op", event.Op.String()))
			p.trigger.Notify(ReasonPrefix + name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("inbox watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) matches(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.names[name]
	return ok
}

var _ inboxship.Plugin = (*Plugin)(nil)
