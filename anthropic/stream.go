package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/deploypilotorg/repochat"
)

// stream implements [repochat.Stream] by translating SDK stream events into
// semantic events while assembling the assistant message.
type stream struct {
	events *ssestream.Stream[sdk.MessageStreamEventUnion]
	ctx    context.Context
	state  repochat.StreamState
	msg    repochat.AssistantMessage
	blocks map[int64]*blockState
	err    error // terminal error, if any
}

// blockState tracks the state of a content block being assembled.
type blockState struct {
	blockType   string
	toolID      string
	toolName    string
	inputBuf    strings.Builder
	textBuf     strings.Builder
	thinkingBuf strings.Builder
}

// Interface compliance check.
var _ repochat.Stream = (*stream)(nil)

func newStream(ctx context.Context, events *ssestream.Stream[sdk.MessageStreamEventUnion]) *stream {
	return &stream{
		events: events,
		ctx:    ctx,
		state:  repochat.StreamStateNew,
		blocks: make(map[int64]*blockState),
	}
}

// Next reads the next semantic event from the stream.
// Returns io.EOF when the stream completes normally.
func (s *stream) Next() (repochat.Event, error) {
	switch s.state {
	case repochat.StreamStateComplete:
		return nil, io.EOF
	case repochat.StreamStateError:
		return nil, s.err
	case repochat.StreamStateClosed:
		return nil, fmt.Errorf("anthropic: stream closed")
	}

	for {
		if !s.events.Next() {
			err := s.events.Err()
			if err == nil {
				err = io.EOF
			}
			s.terminate(err)
			return nil, s.err
		}

		s.state = repochat.StreamStateStreaming

		evt, err := s.processEvent(s.events.Current())
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		// processEvent may set a terminal state (message_stop).
		if s.state == repochat.StreamStateComplete {
			return nil, io.EOF
		}

		if evt != nil {
			return evt, nil
		}
		// Non-semantic event (ping, message_start, etc.) - keep reading.
	}
}

// State returns the current stream state.
func (s *stream) State() repochat.StreamState {
	return s.state
}

// Message returns the assembled AssistantMessage.
func (s *stream) Message() (repochat.AssistantMessage, error) {
	if s.state == repochat.StreamStateNew {
		return repochat.AssistantMessage{}, fmt.Errorf("anthropic: no data received yet")
	}
	return s.msg, nil
}

// Close closes the underlying event stream.
func (s *stream) Close() error {
	if s.state != repochat.StreamStateComplete && s.state != repochat.StreamStateError {
		s.state = repochat.StreamStateClosed
		s.msg.StopReason = repochat.StopAborted
		s.msg.RawStopReason = "aborted"
	}
	return s.events.Close()
}

// terminate records a terminal error and sets the appropriate state and stop reason.
func (s *stream) terminate(err error) {
	if err == io.EOF {
		// Normal completion via message_stop sets StreamStateComplete before
		// we reach here. A raw EOF means the stream ended unexpectedly.
		s.state = repochat.StreamStateError
		s.err = fmt.Errorf("anthropic: unexpected end of stream")
		s.msg.StopReason = repochat.StopError
		s.msg.RawStopReason = "error"
		return
	}
	s.state = repochat.StreamStateError
	s.err = fmt.Errorf("anthropic: %w", err)
	if s.ctx.Err() != nil {
		s.msg.StopReason = repochat.StopAborted
		s.msg.RawStopReason = "aborted"
	} else {
		s.msg.StopReason = repochat.StopError
		s.msg.RawStopReason = "error"
	}
}

// processEvent maps an SDK stream event to a semantic repochat.Event.
// Returns nil event for non-semantic events (ping, message_start, etc.).
func (s *stream) processEvent(evt sdk.MessageStreamEventUnion) (repochat.Event, error) {
	switch v := evt.AsAny().(type) {
	case sdk.MessageStartEvent:
		s.msg.Usage.InputTokens = int(v.Message.Usage.InputTokens)
		s.msg.Usage.CacheReadTokens = int(v.Message.Usage.CacheReadInputTokens)
		s.msg.Usage.CacheWriteTokens = int(v.Message.Usage.CacheCreationInputTokens)
		return nil, nil
	case sdk.ContentBlockStartEvent:
		return s.handleBlockStart(v), nil
	case sdk.ContentBlockDeltaEvent:
		return s.handleBlockDelta(v)
	case sdk.ContentBlockStopEvent:
		return s.handleBlockStop(v)
	case sdk.MessageDeltaEvent:
		s.msg.Usage.OutputTokens = int(v.Usage.OutputTokens)
		if v.Delta.StopReason != "" {
			s.msg.RawStopReason = string(v.Delta.StopReason)
			s.msg.StopReason = mapStopReason(string(v.Delta.StopReason))
		}
		return nil, nil
	case sdk.MessageStopEvent:
		s.state = repochat.StreamStateComplete
		return nil, nil
	default:
		// Unknown event types are ignored per the API spec.
		return nil, nil
	}
}

func (s *stream) handleBlockStart(evt sdk.ContentBlockStartEvent) repochat.Event {
	bs := &blockState{blockType: evt.ContentBlock.Type}
	s.blocks[evt.Index] = bs

	// Grow content slice to accommodate this index.
	for int64(len(s.msg.Content)) <= evt.Index {
		s.msg.Content = append(s.msg.Content, nil)
	}

	if evt.ContentBlock.Type == "tool_use" {
		bs.toolID = evt.ContentBlock.ID
		bs.toolName = evt.ContentBlock.Name
		s.msg.Content[evt.Index] = repochat.ToolCallBlock{ID: bs.toolID, Name: bs.toolName}
		return repochat.EventToolCallBegin{ID: bs.toolID, Name: bs.toolName}
	}
	// No semantic event for text or thinking block start.
	return nil
}

func (s *stream) handleBlockDelta(evt sdk.ContentBlockDeltaEvent) (repochat.Event, error) {
	bs := s.blocks[evt.Index]
	if bs == nil {
		return nil, fmt.Errorf("anthropic: delta for unknown block index %d", evt.Index)
	}

	switch d := evt.Delta.AsAny().(type) {
	case sdk.TextDelta:
		bs.textBuf.WriteString(d.Text)
		s.msg.Content[evt.Index] = repochat.TextBlock{Text: bs.textBuf.String()}
		return repochat.EventTextDelta{Delta: d.Text}, nil
	case sdk.InputJSONDelta:
		bs.inputBuf.WriteString(d.PartialJSON)
		return repochat.EventToolCallDelta{ID: bs.toolID, Delta: d.PartialJSON}, nil
	case sdk.ThinkingDelta:
		bs.thinkingBuf.WriteString(d.Thinking)
		s.msg.Content[evt.Index] = repochat.ThinkingBlock{Thinking: bs.thinkingBuf.String()}
		return repochat.EventThinkingDelta{Delta: d.Thinking}, nil
	case sdk.SignatureDelta:
		// Internal use only; not exposed as a semantic event.
		return nil, nil
	default:
		return nil, nil
	}
}

func (s *stream) handleBlockStop(evt sdk.ContentBlockStopEvent) (repochat.Event, error) {
	bs := s.blocks[evt.Index]
	if bs == nil {
		return nil, fmt.Errorf("anthropic: stop for unknown block index %d", evt.Index)
	}

	if bs.blockType == "tool_use" {
		raw := bs.inputBuf.String()
		if raw == "" {
			raw = "{}"
		}
		call := repochat.ToolCallBlock{
			ID:        bs.toolID,
			Name:      bs.toolName,
			Arguments: json.RawMessage(raw),
		}
		s.msg.Content[evt.Index] = call
		return repochat.EventToolCallEnd{Call: call}, nil
	}
	return nil, nil
}

func mapStopReason(raw string) repochat.StopReason {
	switch raw {
	case "end_turn":
		return repochat.StopEndTurn
	case "max_tokens":
		return repochat.StopLength
	case "tool_use":
		return repochat.StopToolUse
	default:
		return repochat.StopUnknown
	}
}
