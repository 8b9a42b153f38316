package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bft-labs/inboxship/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestJSONLSourceListMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.jsonl")
	writeFile(t, path, `{"date":1700000000000,"address":"+15551234567","body":"hello","thread_id":7}

{"date":"1700000000001","address":"","body":""}
[1,2,3]
not json
`)

	src := NewJSONLSource(path)
	msgs, err := src.ListMessages(context.Background())
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Position != i {
			t.Fatalf("message %d has position %d", i, m.Position)
		}
	}

	ts, err := msgs[0].Timestamp()
	if err != nil || ts != 1700000000000 {
		t.Fatalf("Timestamp = %d, %v", ts, err)
	}
	if n, ok := msgs[0].Fields["thread_id"].(json.Number); !ok || n.String() != "7" {
		t.Fatalf("extra field should decode as json.Number, got %#v", msgs[0].Fields["thread_id"])
	}
	if msgs[2].Fields != nil || msgs[3].Fields != nil {
		t.Fatal("non-object lines should have nil fields")
	}
	if _, err := msgs[3].Timestamp(); !domain.HasCode(err, domain.CodeMalformedRecord) {
		t.Fatalf("expected MALFORMED_RECORD, got %v", err)
	}
}

func TestJSONLSourceMissingFile(t *testing.T) {
	src := NewJSONLSource(filepath.Join(t.TempDir(), "missing.jsonl"))
	_, err := src.ListMessages(context.Background())
	if !domain.HasCode(err, domain.CodeSourceUnavailable) {
		t.Fatalf("expected SOURCE_UNAVAILABLE, got %v", err)
	}
}

func TestJSONLSourceEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.jsonl")
	writeFile(t, path, "\n\n")
	msgs, err := NewJSONLSource(path).ListMessages(context.Background())
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}
