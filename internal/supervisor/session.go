package supervisor

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	clientName      = "depctl"
	clientVersion   = "1.0.0"
	protocolVersion = "2024-11-05"
)

// ToolClient is the slice of the MCP client the supervisor needs. It is
// satisfied by *client.Client from mcp-go; tests substitute fakes.
type ToolClient interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// session is the exclusive handle bundling the spawned MCP server process
// (owned by the client), its duplex stream, and the tool list negotiated at
// handshake time. It is owned solely by the supervisor and replaced
// wholesale on every (re)start.
type session struct {
	client ToolClient
	tools  []string
}

// openSession performs the initialize handshake and captures the available
// tool names. On any failure the client is closed so no subprocess leaks.
func openSession(ctx context.Context, c ToolClient) (*session, error) {
	initRequest := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	if _, err := c.Initialize(ctx, initRequest); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize MCP protocol: %w", err)
	}

	listResult, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make([]string, 0, len(listResult.Tools))
	for _, tool := range listResult.Tools {
		tools = append(tools, tool.Name)
	}

	return &session{client: c, tools: tools}, nil
}

// call forwards a tool invocation over the session's duplex stream.
func (s *session) call(ctx context.Context, name string, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	var args any
	if arguments != nil {
		args = arguments
	}

	request := mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: args,
		},
	}

	return s.client.CallTool(ctx, request)
}

// close tears down the session and its subprocess. Safe to call more than
// once; errors are reported but the session is considered gone regardless.
func (s *session) close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
