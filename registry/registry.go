// Package registry holds the named tool operations served to the model.
// Every invocation is validated against the tool's parameter schema before
// the handler runs.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/deploypilotorg/repochat"
	"github.com/xeipuuv/gojsonschema"
)

// Handler executes one tool operation. Domain failures are reported through
// ToolResult.IsError; the error return is reserved for faults.
type Handler func(ctx context.Context, args json.RawMessage) (*repochat.ToolResult, error)

type entry struct {
	tool    repochat.Tool
	handler Handler
	schema  *gojsonschema.Schema
}

// Registry maps tool names to validated handlers.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{tools: map[string]entry{}}
}

// Register adds a tool. The parameter schema is compiled eagerly so a
// malformed schema fails at startup, not on first invocation.
func (r *Registry) Register(tool repochat.Tool, h Handler) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required: %w", repochat.ErrValidation)
	}
	if h == nil {
		return fmt.Errorf("tool %s has no handler: %w", tool.Name, repochat.ErrValidation)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tool.Parameters))
	if err != nil {
		return fmt.Errorf("compiling schema for %s: %w", tool.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered: %w", tool.Name, repochat.ErrValidation)
	}
	r.tools[tool.Name] = entry{tool: tool, handler: h, schema: schema}
	r.order = append(r.order, tool.Name)
	return nil
}

// Tools returns the registered tool definitions in registration order.
func (r *Registry) Tools() []repochat.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]repochat.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].tool)
	}
	return out
}

// Invoke validates args against the tool's schema and runs its handler.
// Unknown names and schema violations return distinct sentinel errors so
// callers can report them as such instead of folding them into a generic
// failure.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (*repochat.ToolResult, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, repochat.ErrToolNotFound)
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", name, err, repochat.ErrSchemaValidation)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			details = append(details, re.String())
		}
		return nil, fmt.Errorf("%s: %s: %w", name, strings.Join(details, "; "), repochat.ErrSchemaValidation)
	}

	return e.handler(ctx, args)
}

// Compile-time interface check.
var _ repochat.ToolExecutor = (*Registry)(nil)

// Execute adapts Invoke to the ToolExecutor interface. Unknown tools and
// schema violations come back as IsError results so the model can
// self-correct instead of aborting the turn.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (*repochat.ToolResult, error) {
	res, err := r.Invoke(ctx, name, args)
	if err != nil {
		switch {
		case isRecoverable(err):
			return &repochat.ToolResult{
				Content: []repochat.ContentBlock{repochat.TextBlock{Text: err.Error()}},
				IsError: true,
			}, nil
		default:
			return nil, err
		}
	}
	return res, nil
}

func isRecoverable(err error) bool {
	return errors.Is(err, repochat.ErrToolNotFound) || errors.Is(err, repochat.ErrSchemaValidation)
}
