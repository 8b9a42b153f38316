package app

import (
	"context"
	"sync"

	"github.com/bft-labs/inboxship/internal/adapters/fs"
	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/pkg/log"
)

// mockLogger implements log.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...log.Field) {}
func (mockLogger) Info(msg string, fields ...log.Field)  {}
func (mockLogger) Warn(msg string, fields ...log.Field)  {}
func (mockLogger) Error(msg string, fields ...log.Field) {}

type mapSettings map[string]string

func (m mapSettings) Get(key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

type fakeSource struct {
	mu    sync.Mutex
	msgs  []domain.Message
	err   error
	calls int
	// onList runs inside ListMessages, before returning.
	onList func()
}

func (s *fakeSource) ListMessages(ctx context.Context) ([]domain.Message, error) {
	s.mu.Lock()
	s.calls++
	hook := s.onList
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Message, len(s.msgs))
	copy(out, s.msgs)
	return out, nil
}

func (s *fakeSource) Describe() string { return "fake" }

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type deliveryCall struct {
	body     string
	fp       domain.Fingerprint
	endpoint string
}

// fakeClient returns outcomes keyed by message body, Delivered otherwise.
type fakeClient struct {
	mu       sync.Mutex
	outcomes map[string]domain.Outcome
	calls    []deliveryCall
	// after runs after each delivery is recorded.
	after func(n int)
}

func (c *fakeClient) Deliver(ctx context.Context, msg domain.Message, fp domain.Fingerprint, endpoint string) domain.Outcome {
	body, _ := msg.Body()
	c.mu.Lock()
	c.calls = append(c.calls, deliveryCall{body: body, fp: fp, endpoint: endpoint})
	n := len(c.calls)
	out, ok := c.outcomes[body]
	hook := c.after
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if !ok {
		return domain.Outcome{Kind: domain.Delivered, StatusCode: 200}
	}
	return out
}

func (c *fakeClient) Calls() []deliveryCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]deliveryCall(nil), c.calls...)
}

// countingLedger wraps the file ledger and counts saves.
type countingLedger struct {
	*fs.DigestLedger
	mu    sync.Mutex
	saves int
}

func newCountingLedger() *countingLedger {
	return &countingLedger{DigestLedger: fs.NewDigestLedger()}
}

func (l *countingLedger) Save(path string) error {
	l.mu.Lock()
	l.saves++
	l.mu.Unlock()
	return l.DigestLedger.Save(path)
}

func (l *countingLedger) Saves() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saves
}

func sms(ts int64, sender, body string) domain.Message {
	return domain.Message{Fields: map[string]any{
		domain.FieldTimestamp: ts,
		domain.FieldSender:    sender,
		domain.FieldBody:      body,
	}}
}

func positioned(msgs ...domain.Message) []domain.Message {
	for i := range msgs {
		msgs[i].Position = i
	}
	return msgs
}
