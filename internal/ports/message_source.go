package ports

import (
	"context"

	"github.com/bft-labs/inboxship/internal/domain"
)

// MessageSource provides the ordered collection of candidate messages.
type MessageSource interface {
	// ListMessages returns every message currently in the source, in source
	// order. Returns a SourceUnavailable error when the source cannot be
	// opened or read. An empty slice with a nil error means the source is empty.
	ListMessages(ctx context.Context) ([]domain.Message, error)

	// Describe returns a short label for logs (driver and location).
	Describe() string
}

// LocalPath is implemented by sources backed by a local file, so file
// watchers can subscribe to changes.
type LocalPath interface {
	Path() string
}
