package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Fingerprint is the lowercase hex SHA-256 content hash used as the dedup key.
type Fingerprint string

// FingerprintLen is the length of a hex SHA-256 digest.
const FingerprintLen = sha256.Size * 2

// String returns the hex digest.
func (f Fingerprint) String() string { return string(f) }

// Short returns the first 12 characters for log lines.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Scheme selects how the hashed fields are joined.
type Scheme int

const (
	// SchemeDelimited joins fields with the ASCII unit separator.
	SchemeDelimited Scheme = iota
	// SchemeLegacy concatenates fields with no separator. Ledgers written by
	// the phone app use this layout; "1a"+"b" and "1"+"ab" collide.
	SchemeLegacy
)

const unitSeparator = "\x1f"

// String returns the configuration name of the scheme.
func (s Scheme) String() string {
	switch s {
	case SchemeDelimited:
		return "delimited"
	case SchemeLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseScheme maps a configuration value to a Scheme. Empty selects the default.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "delimited":
		return SchemeDelimited, nil
	case "legacy":
		return SchemeLegacy, nil
	default:
		return 0, fmt.Errorf("unknown fingerprint scheme %q (want delimited or legacy)", name)
	}
}

// Hasher computes fingerprints under a fixed scheme. The zero value uses
// SchemeDelimited.
type Hasher struct {
	Scheme Scheme
}

// NewHasher returns a Hasher for the given scheme.
func NewHasher(scheme Scheme) Hasher {
	return Hasher{Scheme: scheme}
}

// Fingerprint hashes (timestamp, sender, body).
func (h Hasher) Fingerprint(timestamp int64, sender, body string) Fingerprint {
	ts := strconv.FormatInt(timestamp, 10)
	var hashable string
	if h.Scheme == SchemeLegacy {
		hashable = ts + sender + body
	} else {
		hashable = ts + unitSeparator + sender + unitSeparator + body
	}
	sum := sha256.Sum256([]byte(hashable))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// MessageFingerprint extracts the hashed fields from msg and fingerprints them.
// Returns a MalformedRecord error when a required field is missing or mistyped.
func (h Hasher) MessageFingerprint(msg Message) (Fingerprint, error) {
	ts, err := msg.Timestamp()
	if err != nil {
		return "", err
	}
	sender, err := msg.Sender()
	if err != nil {
		return "", err
	}
	body, err := msg.Body()
	if err != nil {
		return "", err
	}
	return h.Fingerprint(ts, sender, body), nil
}
