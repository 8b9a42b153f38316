package app

import (
	"sync"
	"sync/atomic"

	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
	"github.com/bft-labs/inboxship/pkg/log"
)

// DefaultFeedSize is the number of status lines kept in memory.
const DefaultFeedSize = 200

// RunStatus is the shared progress view of the current or last run. The
// worker writes it; any number of readers may poll it without blocking the
// worker for more than a slice copy.
type RunStatus struct {
	total     atomic.Int64
	processed atomic.Int64
	running   atomic.Bool

	mu         sync.Mutex
	feed       []string
	limit      int
	runID      string
	lastReport *domain.RunReport

	logger log.Logger
}

var _ ports.StatusSink = (*RunStatus)(nil)

// StatusSnapshot is a point-in-time copy of RunStatus.
type StatusSnapshot struct {
	RunID      string
	Running    bool
	Total      int
	Processed  int
	LastLine   string
	Feed       []string
	LastReport *domain.RunReport
}

// NewRunStatus creates a status holder keeping at most feedSize lines.
func NewRunStatus(feedSize int, logger log.Logger) *RunStatus {
	if feedSize <= 0 {
		feedSize = DefaultFeedSize
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &RunStatus{limit: feedSize, logger: logger}
}

// Report appends a line to the feed and mirrors it to the log.
func (s *RunStatus) Report(line string) {
	s.mu.Lock()
	if len(s.feed) >= s.limit {
		n := copy(s.feed, s.feed[len(s.feed)-s.limit+1:])
		s.feed = s.feed[:n]
	}
	s.feed = append(s.feed, line)
	runID := s.runID
	s.mu.Unlock()

	s.logger.Info(line, log.String("run_id", runID))
}

// SetTotal records the candidate count of the current run.
func (s *RunStatus) SetTotal(n int) { s.total.Store(int64(n)) }

// SetProcessed records how many messages the current run has visited.
func (s *RunStatus) SetProcessed(n int) { s.processed.Store(int64(n)) }

// Total returns the candidate count of the current or last run.
func (s *RunStatus) Total() int { return int(s.total.Load()) }

// Processed returns the processed count of the current or last run.
func (s *RunStatus) Processed() int { return int(s.processed.Load()) }

// Running reports whether a run is in flight.
func (s *RunStatus) Running() bool { return s.running.Load() }

// LastLine returns the most recent status line.
func (s *RunStatus) LastLine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.feed) == 0 {
		return ""
	}
	return s.feed[len(s.feed)-1]
}

// Feed returns a copy of the retained status lines, oldest first.
func (s *RunStatus) Feed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.feed))
	copy(out, s.feed)
	return out
}

// Snapshot returns a consistent copy of the status.
func (s *RunStatus) Snapshot() StatusSnapshot {
	s.mu.Lock()
	snap := StatusSnapshot{
		RunID:    s.runID,
		Feed:     make([]string, len(s.feed)),
		LastLine: "",
	}
	copy(snap.Feed, s.feed)
	if len(s.feed) > 0 {
		snap.LastLine = s.feed[len(s.feed)-1]
	}
	if s.lastReport != nil {
		r := *s.lastReport
		snap.LastReport = &r
	}
	s.mu.Unlock()

	snap.Running = s.running.Load()
	snap.Total = s.Total()
	snap.Processed = s.Processed()
	return snap
}

func (s *RunStatus) beginRun(runID string) {
	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()
	s.total.Store(0)
	s.processed.Store(0)
	s.running.Store(true)
}

func (s *RunStatus) finishRun(report domain.RunReport) {
	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()
	s.running.Store(false)
}
