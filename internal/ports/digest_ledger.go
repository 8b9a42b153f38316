package ports

import "github.com/bft-labs/inboxship/internal/domain"

// LoadResult describes how a ledger load went.
type LoadResult struct {
	// Count is the number of fingerprints in memory after the load.
	Count int
	// Degraded is true when the file was missing or unreadable for
	// permission reasons and the ledger started empty.
	Degraded bool
	// Reason explains a degraded load.
	Reason string
}

// DigestLedger is the set of fingerprints already delivered. Every method
// is safe for concurrent use; callers never need their own lock.
type DigestLedger interface {
	Exists(fp domain.Fingerprint) (bool, error)
	Add(fp domain.Fingerprint) error
	Clear()
	Len() int
	Load(path string) (LoadResult, error)
	Save(path string) error
}
