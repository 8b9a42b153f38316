package ports

import "github.com/bft-labs/inboxship/internal/domain"

// RecordValidator checks a message before it is fingerprinted. A non-nil
// error marks the message malformed for this run.
type RecordValidator interface {
	Validate(msg domain.Message) error
}
