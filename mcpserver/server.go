// Package mcpserver exposes a tool registry over the Model Context
// Protocol so a frontend in another process can list and invoke tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/deploypilotorg/repochat"
	"github.com/deploypilotorg/repochat/registry"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// New builds an MCP server serving every tool in the registry. Tool
// schemas pass through unchanged; argument validation stays inside the
// registry so both in-process and remote callers get the same checks.
func New(reg *registry.Registry, version string) (*mcp.Server, error) {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "repochat-server", Version: version},
		&mcp.ServerOptions{HasTools: true},
	)

	for _, tool := range reg.Tools() {
		var schema map[string]any
		if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("schema for %s: %w", tool.Name, err)
		}
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		}, handler(reg, tool.Name))
	}
	return server, nil
}

// handler bridges one registry tool into an MCP tool handler. Recoverable
// failures (unknown tool, schema violation, domain errors) become IsError
// results; only faults surface as protocol errors.
func handler(reg *registry.Registry, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := json.RawMessage(req.Params.Arguments)
		res, err := reg.Execute(ctx, name, args)
		if err != nil {
			clog.FromContext(ctx).Errorf("tool %s failed: %v", name, err)
			return nil, err
		}
		return toCallToolResult(res), nil
	}
}

func toCallToolResult(res *repochat.ToolResult) *mcp.CallToolResult {
	out := &mcp.CallToolResult{IsError: res.IsError}
	for _, block := range res.Content {
		if tb, ok := block.(repochat.TextBlock); ok {
			out.Content = append(out.Content, &mcp.TextContent{Text: tb.Text})
		}
	}
	return out
}
