package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Transport kinds accepted by ServerSpec.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// ServerSpec locates a tool server: either a command speaking MCP over its
// stdio, or an HTTP endpoint.
type ServerSpec struct {
	Transport string
	Command   string
	Args      []string
	Env       []string
	URL       string
}

// ParseServerSpec interprets a single-string server reference. URLs select
// the streamable HTTP transport, "sse+" prefixed URLs the SSE transport and
// anything else is a whitespace-separated command line.
func ParseServerSpec(raw string) (ServerSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ServerSpec{}, errors.New("mcp: empty server spec")
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "sse+"):
		return ServerSpec{Transport: TransportSSE, URL: raw[len("sse+"):]}, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return ServerSpec{Transport: TransportHTTP, URL: raw}, nil
	}
	fields := strings.Fields(raw)
	return ServerSpec{Transport: TransportStdio, Command: fields[0], Args: fields[1:]}, nil
}

// Key identifies the spec in a SessionCache.
func (s ServerSpec) Key() string {
	if s.URL != "" {
		return s.kind() + ":" + s.URL
	}
	return s.kind() + ":" + strings.Join(append([]string{s.Command}, s.Args...), " ")
}

func (s ServerSpec) kind() string {
	if s.Transport != "" {
		return strings.ToLower(s.Transport)
	}
	if s.URL != "" {
		return TransportHTTP
	}
	return TransportStdio
}

// NewTransport builds the SDK transport for the spec.
func (s ServerSpec) NewTransport() (sdk.Transport, error) {
	switch s.kind() {
	case TransportStdio:
		if strings.TrimSpace(s.Command) == "" {
			return nil, errors.New("mcp: stdio transport requires a command")
		}
		cmd := exec.Command(s.Command, s.Args...)
		cmd.Env = append(os.Environ(), s.Env...)
		cmd.Stderr = os.Stderr
		return &sdk.CommandTransport{Command: cmd}, nil
	case TransportHTTP:
		if strings.TrimSpace(s.URL) == "" {
			return nil, errors.New("mcp: http transport requires a url")
		}
		return &sdk.StreamableClientTransport{Endpoint: s.URL}, nil
	case TransportSSE:
		if strings.TrimSpace(s.URL) == "" {
			return nil, errors.New("mcp: sse transport requires a url")
		}
		return &sdk.SSEClientTransport{Endpoint: s.URL}, nil
	default:
		return nil, fmt.Errorf("mcp: unknown transport %q", s.Transport)
	}
}

// Dial builds the transport for spec and connects to it.
func Dial(ctx context.Context, spec ServerSpec) (*Client, error) {
	transport, err := spec.NewTransport()
	if err != nil {
		return nil, err
	}
	return Connect(ctx, transport)
}
