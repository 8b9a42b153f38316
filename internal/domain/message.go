package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names of the Android SMS provider schema used as fingerprint inputs.
const (
	FieldTimestamp = "date"
	FieldSender    = "address"
	FieldBody      = "body"
)

// UnknownSender is shown in status lines when a message has no usable sender.
const UnknownSender = "N/A"

// Message is one record read from the message source. Fields is passed
// through to the webhook untouched; Position is the 0-based index in the
// source ordering.
type Message struct {
	Position int
	Fields   map[string]any
}

// Timestamp returns the message timestamp as epoch milliseconds.
func (m Message) Timestamp() (int64, error) {
	v, ok := m.lookup(FieldTimestamp)
	if !ok {
		return 0, m.malformed("missing %q field", FieldTimestamp)
	}
	ts, err := toInt64(v)
	if err != nil {
		return 0, m.malformed("field %q: %v", FieldTimestamp, err)
	}
	return ts, nil
}

// Sender returns the sender address. An empty string is valid; an absent field is not.
func (m Message) Sender() (string, error) {
	return m.stringField(FieldSender)
}

// Body returns the message body. An empty string is valid; an absent field is not.
func (m Message) Body() (string, error) {
	return m.stringField(FieldBody)
}

// SenderLabel returns the sender for status lines, falling back to UnknownSender.
func (m Message) SenderLabel() string {
	s, err := m.Sender()
	if err != nil || s == "" {
		return UnknownSender
	}
	return s
}

func (m Message) lookup(key string) (any, bool) {
	if m.Fields == nil {
		return nil, false
	}
	v, ok := m.Fields[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (m Message) stringField(key string) (string, error) {
	v, ok := m.lookup(key)
	if !ok {
		return "", m.malformed("missing %q field", key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case json.Number:
		return s.String(), nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return fmt.Sprint(s), nil
	}
}

func (m Message) malformed(format string, args ...any) error {
	return MalformedRecord(fmt.Sprintf(format, args...), map[string]any{"position": m.Position})
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("value %v is not a whole number", n)
		}
		return int64(n), nil
	case json.Number:
		return strconv.ParseInt(n.String(), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
