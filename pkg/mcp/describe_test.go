package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeTools(t *testing.T) {
	tools := []ToolDescriptor{
		{
			Name:        "recommend_music",
			Description: "Suggest tracks",
			Schema: json.RawMessage(`{"type":"object","properties":{` +
				`"mood":{"type":"string"},"activity":{"type":"string"},"tags":{"type":["array","null"]},"extra":{}},` +
				`"required":["mood"]}`),
		},
		{Name: "get_current_time"},
	}
	want := "1. recommend_music(mood: string, activity: string, tags: array, extra: unknown) - Suggest tracks\n" +
		"2. get_current_time(no parameters)"
	assert.Equal(t, want, DescribeTools(tools))
	assert.Equal(t, "No tools available.", DescribeTools(nil))
}

func TestParametersRequired(t *testing.T) {
	tool := ToolDescriptor{Schema: json.RawMessage(`{"properties":{"z":{"type":"number"},"a":{"type":"string"}},"required":["a"]}`)}
	assert.Equal(t, []Parameter{
		{Name: "z", Type: "number"},
		{Name: "a", Type: "string", Required: true},
	}, tool.Parameters())

	assert.Nil(t, ToolDescriptor{Schema: json.RawMessage(`not json`)}.Parameters())
	assert.Nil(t, ToolDescriptor{Schema: json.RawMessage(`{"type":"object"}`)}.Parameters())
}
