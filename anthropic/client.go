package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/deploypilotorg/repochat"
)

// Interface compliance check.
var _ repochat.Provider = (*Client)(nil)

// Client implements [repochat.Provider] for the Anthropic Messages API.
type Client struct {
	api sdk.Client
}

// Option configures a [Client].
type Option func(*config)

type config struct {
	requestOpts []option.RequestOption
}

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *config) { c.requestOpts = append(c.requestOpts, option.WithBaseURL(url)) }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.requestOpts = append(c.requestOpts, option.WithHTTPClient(hc)) }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	cfg := &config{requestOpts: []option.RequestOption{option.WithAPIKey(apiKey)}}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{api: sdk.NewClient(cfg.requestOpts...)}
}

// Stream sends a streaming request to the Anthropic Messages API and returns
// a [repochat.Stream] that emits semantic events. Transport and API failures
// surface from the stream's Next method.
func (c *Client) Stream(ctx context.Context, req repochat.Request) (repochat.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	params, err := buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return newStream(ctx, c.api.Messages.NewStreaming(ctx, params)), nil
}

func buildParams(req repochat.Request) (sdk.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}

	tools, err := convertTools(req.Tools)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		Tools:     tools,
	}
	if req.SystemPrompt != "" {
		// Cache breakpoint on the stable system prompt.
		params.System = []sdk.TextBlockParam{{
			Text:         req.SystemPrompt,
			CacheControl: sdk.NewCacheControlEphemeralParam(),
		}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params, nil
}

func convertMessages(msgs []repochat.Message) ([]sdk.MessageParam, error) {
	var result []sdk.MessageParam
	for _, msg := range msgs {
		switch m := msg.(type) {
		case repochat.UserMessage:
			result = append(result, sdk.MessageParam{
				Role:    sdk.MessageParamRoleUser,
				Content: convertContentBlocks(m.Content),
			})
		case repochat.AssistantMessage:
			result = append(result, sdk.MessageParam{
				Role:    sdk.MessageParamRoleAssistant,
				Content: convertContentBlocks(m.Content),
			})
		case repochat.ToolResultMessage:
			block := convertToolResult(m)
			// Merge consecutive tool results into the same user message.
			if n := len(result); n > 0 && isToolResultMessage(result[n-1]) {
				result[n-1].Content = append(result[n-1].Content, block)
			} else {
				result = append(result, sdk.MessageParam{
					Role:    sdk.MessageParamRoleUser,
					Content: []sdk.ContentBlockParamUnion{block},
				})
			}
		default:
			return nil, fmt.Errorf("unsupported message type %T", msg)
		}
	}
	return result, nil
}

func isToolResultMessage(msg sdk.MessageParam) bool {
	return msg.Role == sdk.MessageParamRoleUser &&
		len(msg.Content) > 0 && msg.Content[0].OfToolResult != nil
}

func convertContentBlocks(blocks []repochat.ContentBlock) []sdk.ContentBlockParamUnion {
	result := make([]sdk.ContentBlockParamUnion, 0, len(blocks))
	for _, block := range blocks {
		switch b := block.(type) {
		case repochat.TextBlock:
			result = append(result, sdk.NewTextBlock(b.Text))
		case repochat.ToolCallBlock:
			result = append(result, sdk.ContentBlockParamUnion{
				OfToolUse: &sdk.ToolUseBlockParam{
					ID:    b.ID,
					Name:  b.Name,
					Input: b.Arguments,
				},
			})
		case repochat.ThinkingBlock:
			// Replaying thinking requires the provider signature, which
			// history does not retain. Dropped from outbound requests.
		}
	}
	return result
}

func convertToolResult(m repochat.ToolResultMessage) sdk.ContentBlockParamUnion {
	content := make([]sdk.ToolResultBlockParamContentUnion, 0, len(m.Content))
	for _, block := range m.Content {
		if tb, ok := block.(repochat.TextBlock); ok {
			content = append(content, sdk.ToolResultBlockParamContentUnion{
				OfText: &sdk.TextBlockParam{Text: tb.Text},
			})
		}
	}
	result := &sdk.ToolResultBlockParam{
		ToolUseID: m.ToolCallID,
		Content:   content,
	}
	if m.IsError {
		result.IsError = sdk.Bool(true)
	}
	return sdk.ContentBlockParamUnion{OfToolResult: result}
}

func convertTools(tools []repochat.Tool) ([]sdk.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	result := make([]sdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		// The Messages API takes properties and required directly; the
		// enclosing "type":"object" is implied by the schema param.
		var schema struct {
			Properties json.RawMessage `json:"properties"`
			Required   []string        `json:"required"`
		}
		if err := json.Unmarshal(t.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("schema for tool %s: %w", t.Name, err)
		}

		tool := &sdk.ToolParam{
			Name:        t.Name,
			Description: sdk.String(t.Description),
			InputSchema: sdk.ToolInputSchemaParam{Required: schema.Required},
		}
		if len(schema.Properties) > 0 {
			tool.InputSchema.Properties = schema.Properties
		}
		result[i] = sdk.ToolUnionParam{OfTool: tool}
	}
	// Cache breakpoint on the last tool covers the full tool definitions.
	result[len(result)-1].OfTool.CacheControl = sdk.NewCacheControlEphemeralParam()
	return result, nil
}
