package ports

import (
	"context"

	"github.com/bft-labs/inboxship/internal/domain"
)

// WebhookClient performs a single delivery of one message.
// Implementations never retry and never return an error: every result,
// including network failures, is classified into a domain.Outcome.
type WebhookClient interface {
	Deliver(ctx context.Context, msg domain.Message, fp domain.Fingerprint, endpoint string) domain.Outcome
}
