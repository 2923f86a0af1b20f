package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/deploypilotorg/repochat"
)

// blockKind tracks what kind of content block is currently being assembled,
// so consecutive parts of the same kind accumulate into one block.
type blockKind int

const (
	kindNone blockKind = iota
	kindText
	kindThinking
	kindTool
)

// stream implements [repochat.Stream] by wrapping the genai SDK's streaming
// iterator. A single chunk may carry several parts, so semantic events are
// queued and handed out one per Next call.
type stream struct {
	ctx   context.Context
	pull  func() (*genai.GenerateContentResponse, error, bool)
	stop  func()
	state repochat.StreamState
	msg   repochat.AssistantMessage
	queue []repochat.Event
	last  blockKind
	err   error
}

// Interface compliance check.
var _ repochat.Stream = (*stream)(nil)

func newStream(ctx context.Context, iterFn iter.Seq2[*genai.GenerateContentResponse, error]) *stream {
	next, stop := iter.Pull2(iterFn)
	return &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		state: repochat.StreamStateNew,
	}
}

// Next returns the next semantic event from the stream.
// Returns io.EOF when the stream completes normally.
func (s *stream) Next() (repochat.Event, error) {
	switch s.state {
	case repochat.StreamStateComplete:
		return nil, io.EOF
	case repochat.StreamStateError:
		return nil, s.err
	case repochat.StreamStateClosed:
		return nil, fmt.Errorf("gemini: %w", repochat.ErrStreamClosed)
	}

	for {
		if len(s.queue) > 0 {
			evt := s.queue[0]
			s.queue = s.queue[1:]
			return evt, nil
		}

		if err := s.ctx.Err(); err != nil {
			s.terminate(err)
			return nil, s.err
		}

		chunk, err, ok := s.pull()
		if !ok {
			s.finalize()
			return nil, io.EOF
		}

		s.state = repochat.StreamStateStreaming

		if err != nil {
			s.terminate(err)
			return nil, s.err
		}
		if err := s.processChunk(chunk); err != nil {
			s.terminate(err)
			return nil, s.err
		}
	}
}

// State returns the current stream state.
func (s *stream) State() repochat.StreamState {
	return s.state
}

// Message returns the assembled AssistantMessage.
func (s *stream) Message() (repochat.AssistantMessage, error) {
	if s.state == repochat.StreamStateNew {
		return repochat.AssistantMessage{}, fmt.Errorf("gemini: no data received yet")
	}
	return s.msg, nil
}

// Close releases the underlying iterator.
func (s *stream) Close() error {
	if s.state != repochat.StreamStateComplete && s.state != repochat.StreamStateError {
		s.state = repochat.StreamStateClosed
		s.msg.StopReason = repochat.StopAborted
		s.msg.RawStopReason = "aborted"
	}
	s.stop()
	return nil
}

// terminate records a terminal error and sets the appropriate state and stop reason.
func (s *stream) terminate(err error) {
	s.state = repochat.StreamStateError
	s.err = fmt.Errorf("gemini: %w", err)
	if s.ctx.Err() != nil {
		s.msg.StopReason = repochat.StopAborted
		s.msg.RawStopReason = "aborted"
	} else {
		s.msg.StopReason = repochat.StopError
		if s.msg.RawStopReason == "" {
			s.msg.RawStopReason = "error"
		}
	}
}

// finalize marks normal completion. Gemini reports FinishReasonStop for both
// final answers and tool-call turns, so the stop reason is refined from the
// assembled content.
func (s *stream) finalize() {
	s.state = repochat.StreamStateComplete
	if s.msg.RawStopReason == "" {
		s.msg.RawStopReason = "end_turn"
		s.msg.StopReason = repochat.StopEndTurn
	}
	if s.msg.StopReason == repochat.StopEndTurn && hasToolCall(s.msg.Content) {
		s.msg.StopReason = repochat.StopToolUse
	}
}

func hasToolCall(blocks []repochat.ContentBlock) bool {
	for _, b := range blocks {
		if _, ok := b.(repochat.ToolCallBlock); ok {
			return true
		}
	}
	return false
}

func (s *stream) processChunk(chunk *genai.GenerateContentResponse) error {
	if chunk == nil {
		return nil
	}
	if len(chunk.Candidates) == 0 {
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			s.msg.RawStopReason = string(chunk.PromptFeedback.BlockReason)
			return fmt.Errorf("prompt blocked: %s", chunk.PromptFeedback.BlockReason)
		}
		return nil
	}

	cand := chunk.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if err := s.processPart(part); err != nil {
				return err
			}
		}
	}
	if cand.FinishReason != "" {
		s.msg.RawStopReason = string(cand.FinishReason)
		s.msg.StopReason = mapFinishReason(cand.FinishReason)
	}
	if chunk.UsageMetadata != nil {
		cached := int(chunk.UsageMetadata.CachedContentTokenCount)
		s.msg.Usage.InputTokens = max(0, int(chunk.UsageMetadata.PromptTokenCount)-cached)
		s.msg.Usage.OutputTokens = int(chunk.UsageMetadata.CandidatesTokenCount)
		s.msg.Usage.CacheReadTokens = cached
	}
	return nil
}

func (s *stream) processPart(part *genai.Part) error {
	switch {
	case part == nil:
		return nil

	case part.FunctionCall != nil:
		id := part.FunctionCall.ID
		if id == "" {
			// Gemini omits call IDs; tool results still need one to correlate.
			id = "call_" + uuid.NewString()
		}
		args := json.RawMessage(`{}`)
		if part.FunctionCall.Args != nil {
			raw, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return fmt.Errorf("invalid tool call arguments: %w", err)
			}
			args = raw
		}
		call := repochat.ToolCallBlock{ID: id, Name: part.FunctionCall.Name, Arguments: args}
		s.msg.Content = append(s.msg.Content, call)
		s.last = kindTool
		// Gemini delivers tool calls whole, so Begin and End arrive together.
		s.queue = append(s.queue,
			repochat.EventToolCallBegin{ID: id, Name: call.Name},
			repochat.EventToolCallEnd{Call: call},
		)

	case part.Thought:
		if s.last == kindThinking {
			n := len(s.msg.Content) - 1
			tb := s.msg.Content[n].(repochat.ThinkingBlock)
			tb.Thinking += part.Text
			s.msg.Content[n] = tb
		} else {
			s.msg.Content = append(s.msg.Content, repochat.ThinkingBlock{Thinking: part.Text})
			s.last = kindThinking
		}
		if part.Text != "" {
			s.queue = append(s.queue, repochat.EventThinkingDelta{Delta: part.Text})
		}

	case part.Text != "":
		if s.last == kindText {
			n := len(s.msg.Content) - 1
			tb := s.msg.Content[n].(repochat.TextBlock)
			tb.Text += part.Text
			s.msg.Content[n] = tb
		} else {
			s.msg.Content = append(s.msg.Content, repochat.TextBlock{Text: part.Text})
			s.last = kindText
		}
		s.queue = append(s.queue, repochat.EventTextDelta{Delta: part.Text})
	}
	return nil
}

func mapFinishReason(r genai.FinishReason) repochat.StopReason {
	switch r {
	case genai.FinishReasonStop:
		return repochat.StopEndTurn
	case genai.FinishReasonMaxTokens:
		return repochat.StopLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return repochat.StopError
	default:
		return repochat.StopUnknown
	}
}
