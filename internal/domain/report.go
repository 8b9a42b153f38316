package domain

import "time"

// RunOutcome is the terminal state of one ingestion run.
type RunOutcome string

const (
	RunCompleted         RunOutcome = "completed"
	RunCanceled          RunOutcome = "canceled"
	RunConfigError       RunOutcome = "configuration_error"
	RunSourceUnavailable RunOutcome = "source_unavailable"
	RunEmptySource       RunOutcome = "empty_source"
	RunLedgerUnavailable RunOutcome = "ledger_unavailable"
)

// RunReport summarizes one ingestion run. Counts are per run, never
// accumulated across runs.
type RunReport struct {
	RunID          string
	Trigger        string
	Outcome        RunOutcome
	Total          int
	Processed      int
	Delivered      int
	AlreadyExisted int
	Skipped        int
	Failed         int
	Malformed      int
	LedgerSize     int
	SaveErr        error
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Duration returns the wall time of the run.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded counts deliveries recorded in the ledger during the run.
func (r RunReport) Succeeded() int {
	return r.Delivered + r.AlreadyExisted
}
