// Package llmjson extracts JSON payloads from free-form model output.
//
// Models frequently wrap JSON in Markdown code fences even when told not to.
// StripFences removes a leading fence (optionally tagged with a language such
// as ```json) and the matching trailing fence; Decode strips and unmarshals.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const fence = "```"

// ErrEmpty reports a response with no content left after stripping.
var ErrEmpty = errors.New("llmjson: empty payload")

// StripFences returns the content of the first fenced block in text. Text
// without fences is returned trimmed.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, fence)
	if start < 0 {
		return text
	}
	body := text[start+len(fence):]
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	// Drop the optional language tag after the opening fence.
	cut := strings.IndexAny(body, "\n{[")
	if cut >= 0 && isLanguageTag(strings.TrimSpace(body[:cut])) {
		body = body[cut:]
	}
	return strings.TrimSpace(body)
}

// Decode strips fences from text and unmarshals the remainder into dest.
func Decode(text string, dest any) error {
	payload := StripFences(text)
	if payload == "" {
		return ErrEmpty
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return fmt.Errorf("llmjson: decode: %w", err)
	}
	return nil
}

func isLanguageTag(tag string) bool {
	if tag == "" {
		return true
	}
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '+') {
			return false
		}
	}
	return true
}
