package mcp

import (
	"fmt"
	"strings"
)

// DescribeTools renders a numbered catalogue suitable for a model prompt, one
// line per tool in the form "1. add(a: integer, b: integer) - Add two numbers".
// Tools without parameters render as "name(no parameters)".
func DescribeTools(tools []ToolDescriptor) string {
	if len(tools) == 0 {
		return "No tools available."
	}
	var b strings.Builder
	for i, tool := range tools {
		params := tool.Parameters()
		parts := make([]string, 0, len(params))
		for _, p := range params {
			parts = append(parts, p.Name+": "+p.Type)
		}
		signature := strings.Join(parts, ", ")
		if signature == "" {
			signature = "no parameters"
		}
		fmt.Fprintf(&b, "%d. %s(%s)", i+1, tool.Name, signature)
		if desc := strings.TrimSpace(tool.Description); desc != "" {
			b.WriteString(" - ")
			b.WriteString(desc)
		}
		if i < len(tools)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Names returns the tool names in order.
func Names(tools []ToolDescriptor) []string {
	out := make([]string, 0, len(tools))
	for _, tool := range tools {
		out = append(out, tool.Name)
	}
	return out
}
