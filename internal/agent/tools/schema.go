package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a compiled JSON schema for tool arguments.
type Schema struct {
	raw      json.RawMessage
	compiled *jsonschema.Schema
}

// CompileSchema compiles a JSON schema document. Format keywords such as
// "email" are asserted, not just annotated.
func CompileSchema(name, document string) (*Schema, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		document = `{"type":"object"}`
	}
	schemaObj, err := jsonschema.UnmarshalJSON(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse schema for %s: %w", name, err)
	}
	resource := name + ".schema.json"
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(resource, schemaObj); err != nil {
		return nil, fmt.Errorf("add schema for %s: %w", name, err)
	}
	compiled, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", name, err)
	}
	return &Schema{raw: json.RawMessage(document), compiled: compiled}, nil
}

// Raw returns the schema document as registered.
func (s *Schema) Raw() json.RawMessage {
	return s.raw
}

// ValidateJSON decodes raw arguments and validates them.
func (s *Schema) ValidateJSON(raw json.RawMessage) error {
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %v", err)
	}
	return s.Validate(value)
}

// Validate checks an already decoded value.
func (s *Schema) Validate(value any) error {
	if err := s.compiled.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %s", compactText(err.Error(), 600))
	}
	return nil
}

func compactText(input string, maxLen int) string {
	clean := strings.Join(strings.Fields(strings.TrimSpace(input)), " ")
	if maxLen < 1 || len(clean) <= maxLen {
		return clean
	}
	return strings.TrimSpace(clean[:maxLen]) + "..."
}
