package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClientClosed indicates the session can no longer accept calls.
	ErrClientClosed = errors.New("mcp client closed")
	// ErrToolFailed wraps a tool call the server reported as an error.
	ErrToolFailed = errors.New("mcp tool failed")
)

// ToolDescriptor describes a tool announced by the server.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"inputSchema,omitempty"`
}

// Parameter is one entry of a tool's input schema.
type Parameter struct {
	Name     string
	Type     string
	Required bool
}

// Parameters lists the schema properties in the order the server declared
// them. Properties without a type are reported as "unknown".
func (d ToolDescriptor) Parameters() []Parameter {
	if len(d.Schema) == 0 {
		return nil
	}
	var schema struct {
		Properties json.RawMessage `json:"properties"`
		Required   []string        `json:"required"`
	}
	if err := json.Unmarshal(d.Schema, &schema); err != nil || len(schema.Properties) == 0 {
		return nil
	}
	names, err := orderedKeys(schema.Properties)
	if err != nil {
		return nil
	}
	var props map[string]struct {
		Type any `json:"type"`
	}
	if err := json.Unmarshal(schema.Properties, &props); err != nil {
		return nil
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	out := make([]Parameter, 0, len(names))
	for _, name := range names {
		out = append(out, Parameter{
			Name:     name,
			Type:     schemaType(props[name].Type),
			Required: required[name],
		})
	}
	return out
}

// ToolCallResult carries the text blocks returned by tools/call.
type ToolCallResult struct {
	Content []string
	IsError bool
}

// FirstText returns the first content block or "" when there is none.
func (r *ToolCallResult) FirstText() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	return r.Content[0]
}

func toolError(name string, res *ToolCallResult) error {
	detail := strings.TrimSpace(res.FirstText())
	if detail == "" {
		return fmt.Errorf("%w: %s", ErrToolFailed, name)
	}
	return fmt.Errorf("%w: %s: %s", ErrToolFailed, name, detail)
}

func schemaType(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "|")
		}
	}
	return "unknown"
}

// orderedKeys returns the keys of a JSON object in document order.
func orderedKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("mcp: properties is not an object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("mcp: unexpected token %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
