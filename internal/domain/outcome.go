package domain

import "fmt"

// OutcomeKind classifies a single delivery attempt.
type OutcomeKind int

const (
	// Delivered means the endpoint answered 200.
	Delivered OutcomeKind = iota
	// AlreadyExists means the endpoint answered 409. Treated as success.
	AlreadyExists
	// Rejected means any other status, or an endpoint that failed validation.
	Rejected
	// TransportError means the exchange failed at the network level.
	TransportError
)

// String returns a human-readable name.
func (k OutcomeKind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case AlreadyExists:
		return "already_exists"
	case Rejected:
		return "rejected"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one webhook delivery.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Reason     string
	Err        error
}

// Succeeded reports whether the fingerprint should be recorded in the ledger.
func (o Outcome) Succeeded() bool {
	return o.Kind == Delivered || o.Kind == AlreadyExists
}

func (o Outcome) String() string {
	switch o.Kind {
	case Delivered, AlreadyExists:
		return o.Kind.String()
	case Rejected:
		if o.StatusCode > 0 {
			return fmt.Sprintf("rejected: status %d: %s", o.StatusCode, o.Reason)
		}
		return "rejected: " + o.Reason
	default:
		return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
	}
}
