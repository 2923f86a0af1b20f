package mock

import (
	"context"
	"encoding/json"

	"github.com/deploypilotorg/repochat"
)

// Interface compliance check.
var _ repochat.ToolExecutor = (*ToolExecutor)(nil)

// ToolExecutor is a test double for repochat.ToolExecutor.
// Set ExecuteFn before calling Execute.
type ToolExecutor struct {
	ExecuteFn func(ctx context.Context, name string, args json.RawMessage) (*repochat.ToolResult, error)
}

// Execute delegates to ExecuteFn.
func (e *ToolExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (*repochat.ToolResult, error) {
	return e.ExecuteFn(ctx, name, args)
}
