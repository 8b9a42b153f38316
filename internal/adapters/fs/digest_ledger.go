package fs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
)

// DefaultLedgerFileName is the ledger file name inside the state directory.
const DefaultLedgerFileName = "processed_hashes.txt"

const ledgerFileMode = 0o600

// DigestLedger implements ports.DigestLedger as an in-memory set persisted
// to a newline-delimited text file.
//
// After a Load that could not read an existing file the set no longer
// reflects the disk, and Save refuses to overwrite the file until a later
// Load succeeds or Clear is called.
type DigestLedger struct {
	mu    sync.RWMutex
	set   map[domain.Fingerprint]struct{}
	stale bool

	// saveMu serializes writers of the file so two renames never race.
	saveMu sync.Mutex
}

var _ ports.DigestLedger = (*DigestLedger)(nil)

// NewDigestLedger creates an empty ledger.
func NewDigestLedger() *DigestLedger {
	return &DigestLedger{set: make(map[domain.Fingerprint]struct{})}
}

// Exists reports whether fp is in the ledger.
func (l *DigestLedger) Exists(fp domain.Fingerprint) (bool, error) {
	if fp == "" {
		return false, domain.InvalidArgument("ledger: empty fingerprint")
	}
	l.mu.RLock()
	_, ok := l.set[fp]
	l.mu.RUnlock()
	return ok, nil
}

// Add inserts fp. Adding an existing fingerprint is a no-op.
func (l *DigestLedger) Add(fp domain.Fingerprint) error {
	if fp == "" {
		return domain.InvalidArgument("ledger: empty fingerprint")
	}
	l.mu.Lock()
	l.set[fp] = struct{}{}
	l.mu.Unlock()
	return nil
}

// Clear empties the in-memory set. The file is untouched until the next Save.
func (l *DigestLedger) Clear() {
	l.mu.Lock()
	l.set = make(map[domain.Fingerprint]struct{})
	l.stale = false
	l.mu.Unlock()
}

// Len returns the number of fingerprints in memory.
func (l *DigestLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.set)
}

// Snapshot returns the fingerprints in sorted order.
func (l *DigestLedger) Snapshot() []domain.Fingerprint {
	l.mu.RLock()
	out := make([]domain.Fingerprint, 0, len(l.set))
	for fp := range l.set {
		out = append(out, fp)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Load replaces the in-memory set with the contents of the file at path.
//
// A missing or unreadable (permission denied) file yields an empty set and a
// degraded result with a nil error. Any other failure returns a LedgerIO
// error and leaves the current set unchanged. Both an unreadable file and a
// failed read block Save until the next successful Load or Clear.
func (l *DigestLedger) Load(path string) (ports.LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.reset(false)
			return ports.LoadResult{Degraded: true, Reason: err.Error()}, nil
		case errors.Is(err, fs.ErrPermission):
			l.reset(true)
			return ports.LoadResult{Degraded: true, Reason: err.Error()}, nil
		}
		l.markStale()
		return ports.LoadResult{Count: l.Len()}, domain.LedgerIO(err, fmt.Sprintf("read ledger: %v", err), path)
	}

	next := make(map[domain.Fingerprint]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		next[domain.Fingerprint(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		l.markStale()
		return ports.LoadResult{Count: l.Len()}, domain.LedgerIO(err, fmt.Sprintf("parse ledger: %v", err), path)
	}

	l.mu.Lock()
	l.set = next
	l.stale = false
	l.mu.Unlock()
	return ports.LoadResult{Count: len(next)}, nil
}

func (l *DigestLedger) reset(stale bool) {
	l.mu.Lock()
	l.set = make(map[domain.Fingerprint]struct{})
	l.stale = stale
	l.mu.Unlock()
}

func (l *DigestLedger) markStale() {
	l.mu.Lock()
	l.stale = true
	l.mu.Unlock()
}

// Stale reports whether Save is blocked by a failed Load.
func (l *DigestLedger) Stale() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stale
}

// Save writes a full snapshot of the set to path atomically, creating the
// parent directory when needed. Lines are sorted.
func (l *DigestLedger) Save(path string) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	if l.Stale() {
		return domain.LedgerIO(domain.ErrLedgerNotLoaded, "refusing to overwrite a ledger file that could not be read", path)
	}

	var buf bytes.Buffer
	for _, fp := range l.Snapshot() {
		buf.WriteString(string(fp))
		buf.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return domain.LedgerIO(err, fmt.Sprintf("create ledger dir: %v", err), path)
	}
	if err := writeFileAtomic(path, buf.Bytes(), ledgerFileMode); err != nil {
		return domain.LedgerIO(err, fmt.Sprintf("write ledger: %v", err), path)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path. The temp file is removed on any failure.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
