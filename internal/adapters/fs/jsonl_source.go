package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
)

const maxJSONLineSize = 4 << 20

// JSONLSource implements ports.MessageSource over a JSON-lines export file,
// one message object per line.
type JSONLSource struct {
	path string
}

var (
	_ ports.MessageSource = (*JSONLSource)(nil)
	_ ports.LocalPath     = (*JSONLSource)(nil)
)

// NewJSONLSource creates a source reading the file at path.
func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{path: path}
}

// Path returns the export file path.
func (s *JSONLSource) Path() string { return s.path }

// Describe implements ports.MessageSource.
func (s *JSONLSource) Describe() string { return "jsonl:" + s.path }

// ListMessages reads the whole file. Blank lines are skipped; a line that is
// not a JSON object yields a message with nil Fields so the caller can report
// it as malformed without losing its position.
func (s *JSONLSource) ListMessages(ctx context.Context) ([]domain.Message, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, domain.SourceUnavailable(err, fmt.Sprintf("open message export: %v", err))
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLineSize)

	var msgs []domain.Message
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msgs = append(msgs, domain.Message{
			Position: len(msgs),
			Fields:   decodeObject(line),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.SourceUnavailable(err, fmt.Sprintf("read message export: %v", err))
	}
	return msgs, nil
}

func decodeObject(line []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}
