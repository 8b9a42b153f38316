// Package schema validates message records against a JSON Schema document.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
)

// Validator implements ports.RecordValidator with a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

var _ ports.RecordValidator = (*Validator)(nil)

// LoadFile compiles the schema stored at path.
func LoadFile(path string) (*Validator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return Compile(filepath.Base(path), f)
}

// Compile compiles a schema document read from r. name identifies the
// resource in error messages.
func Compile(name string, r io.Reader) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(r)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Validator{schema: sch}, nil
}

// Validate checks msg.Fields against the schema. Failures are MalformedRecord errors.
func (v *Validator) Validate(msg domain.Message) error {
	meta := map[string]any{"position": msg.Position}
	if msg.Fields == nil {
		return domain.MalformedRecord("record is not a JSON object", meta)
	}

	// Round-trip through JSON so every value has the canonical decoded type.
	raw, err := json.Marshal(msg.Fields)
	if err != nil {
		return domain.MalformedRecord(fmt.Sprintf("record not encodable: %v", err), meta)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return domain.MalformedRecord(fmt.Sprintf("record not decodable: %v", err), meta)
	}
	if err := v.schema.Validate(inst); err != nil {
		return domain.MalformedRecord(fmt.Sprintf("schema validation failed: %v", err), meta)
	}
	return nil
}
