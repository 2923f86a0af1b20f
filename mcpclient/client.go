// Package mcpclient connects the frontend to a tool server over the Model
// Context Protocol and adapts its tools to the ToolExecutor interface.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	osexec "os/exec"

	"github.com/deploypilotorg/repochat"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Compile-time interface check.
var _ repochat.ToolExecutor = (*Client)(nil)

// Client is a connected MCP session plus the tool definitions it serves.
type Client struct {
	session *mcp.ClientSession
	tools   []repochat.Tool
}

// Connect establishes an MCP session over the given transport and fetches
// the server's tool list.
func Connect(ctx context.Context, transport mcp.Transport, version string) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "repochat", Version: version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to tool server: %w", err)
	}

	list, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	tools := make([]repochat.Tool, 0, len(list.Tools))
	for _, t := range list.Tools {
		params, err := json.Marshal(t.InputSchema)
		if err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("schema for %s: %w", t.Name, err)
		}
		tools = append(tools, repochat.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return &Client{session: session, tools: tools}, nil
}

// ConnectCommand launches the server binary at path and connects to it
// over stdio. The server inherits stderr so its logs stay visible.
func ConnectCommand(ctx context.Context, path, version string) (*Client, error) {
	cmd := osexec.Command(path)
	cmd.Stderr = os.Stderr
	return Connect(ctx, &mcp.CommandTransport{Command: cmd}, version)
}

// Tools returns the server's tool definitions in the order listed.
func (c *Client) Tools() []repochat.Tool {
	out := make([]repochat.Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Execute invokes a remote tool. Results flagged IsError by the server are
// passed through as failed ToolResults so the conversation loop reports
// them back to the model.
func (c *Client) Execute(ctx context.Context, name string, args json.RawMessage) (*repochat.ToolResult, error) {
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", name, err)
	}

	out := &repochat.ToolResult{IsError: res.IsError}
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			out.Content = append(out.Content, repochat.TextBlock{Text: tc.Text})
		}
	}
	return out, nil
}

// Close terminates the session. For command transports this also reaps
// the server process.
func (c *Client) Close() error {
	return c.session.Close()
}
