package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Implementation identifies this client to MCP servers.
var Implementation = &sdk.Implementation{Name: "moodtunes", Version: "v0.1.0"}

// Client exposes the tools/list and tools/call surface of one server session.
type Client struct {
	mu      sync.Mutex
	session *sdk.ClientSession
}

// Connect opens a session over transport.
func Connect(ctx context.Context, transport sdk.Transport) (*Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client := sdk.NewClient(Implementation, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}
	return NewClient(session), nil
}

// NewClient wraps an established session.
func NewClient(session *sdk.ClientSession) *Client {
	return &Client{session: session}
}

// Close tears down the underlying session.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

func (c *Client) current() (*sdk.ClientSession, error) {
	if c == nil {
		return nil, ErrClientClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrClientClosed
	}
	return c.session, nil
}

// ListTools fetches every tool the server declares, following pagination.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	session, err := c.current()
	if err != nil {
		return nil, err
	}
	var (
		out    []ToolDescriptor
		cursor string
	)
	for {
		res, err := session.ListTools(ctx, &sdk.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("mcp tools/list: %w", err)
		}
		for _, tool := range res.Tools {
			if tool == nil {
				continue
			}
			desc := ToolDescriptor{Name: tool.Name, Description: tool.Description}
			if tool.InputSchema != nil {
				if raw, err := json.Marshal(tool.InputSchema); err == nil {
					desc.Schema = raw
				}
			}
			out = append(out, desc)
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

// InvokeTool executes a remote tool. A result flagged as an error by the
// server is returned together with an ErrToolFailed error.
func (c *Client) InvokeTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	session, err := c.current()
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("mcp tools/call %s: %w", name, err)
	}
	out := &ToolCallResult{IsError: res.IsError}
	for _, block := range res.Content {
		switch content := block.(type) {
		case *sdk.TextContent:
			out.Content = append(out.Content, content.Text)
		default:
			raw, err := json.Marshal(content)
			if err != nil {
				continue
			}
			out.Content = append(out.Content, string(raw))
		}
	}
	if out.IsError {
		return out, toolError(name, out)
	}
	return out, nil
}
