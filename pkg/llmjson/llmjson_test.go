package llmjson

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  {\"a\":1} ", want: `{"a":1}`},
		{name: "json tag", in: "```json\n{\"tool_name\": \"x\"}\n```", want: `{"tool_name": "x"}`},
		{name: "bare fence", in: "```\n[1, 2]\n```", want: `[1, 2]`},
		{name: "prose around", in: "Sure! Here you go:\n```json\n{\"ok\":true}\n```\nEnjoy.", want: `{"ok":true}`},
		{name: "single line", in: "```json{\"a\":1}```", want: `{"a":1}`},
		{name: "unterminated", in: "```json\n{\"a\":1}", want: `{"a":1}`},
		{name: "other tag", in: "```JSON5\n{}\n```", want: `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripFences(tc.in))
		})
	}
}

func TestDecodeFencedDecision(t *testing.T) {
	var got map[string]any
	require.NoError(t, Decode("```json\n{\"tool_name\": \"x\"}\n```", &got))
	assert.Equal(t, map[string]any{"tool_name": "x"}, got)
}

func TestDecodeErrors(t *testing.T) {
	var dest map[string]any
	assert.True(t, errors.Is(Decode("   ", &dest), ErrEmpty))
	assert.True(t, errors.Is(Decode("```json\n```", &dest), ErrEmpty))
	assert.Error(t, Decode("not json at all", &dest))
}
