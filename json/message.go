package json

import (
	"fmt"
	"time"

	"github.com/deploypilotorg/repochat"
)

// messageDTO is the serialized form of a Message. Type discriminates
// between "user", "assistant" and "tool_result"; fields not relevant
// to a given type are omitted.
type messageDTO struct {
	Type          string            `json:"type"`
	Content       []contentBlockDTO `json:"content"`
	Timestamp     time.Time         `json:"timestamp"`
	StopReason    *string           `json:"stop_reason,omitempty"`
	RawStopReason *string           `json:"raw_stop_reason,omitempty"`
	Usage         *usageDTO         `json:"usage,omitempty"`
	ToolCallID    *string           `json:"tool_call_id,omitempty"`
	ToolName      *string           `json:"tool_name,omitempty"`
	IsError       *bool             `json:"is_error,omitempty"`
}

func marshalMessage(msg repochat.Message) (messageDTO, error) {
	switch m := msg.(type) {
	case repochat.UserMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		return messageDTO{
			Type:      "user",
			Content:   blocks,
			Timestamp: m.Timestamp,
		}, nil
	case repochat.AssistantMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		stop := string(m.StopReason)
		raw := m.RawStopReason
		usage := marshalUsage(m.Usage)
		return messageDTO{
			Type:          "assistant",
			Content:       blocks,
			Timestamp:     m.Timestamp,
			StopReason:    &stop,
			RawStopReason: &raw,
			Usage:         &usage,
		}, nil
	case repochat.ToolResultMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		id := m.ToolCallID
		name := m.ToolName
		dto := messageDTO{
			Type:       "tool_result",
			Content:    blocks,
			Timestamp:  m.Timestamp,
			ToolCallID: &id,
			ToolName:   &name,
		}
		if m.IsError {
			isErr := true
			dto.IsError = &isErr
		}
		return dto, nil
	default:
		return messageDTO{}, fmt.Errorf("unknown message type: %T", msg)
	}
}

func unmarshalMessage(dto messageDTO) (repochat.Message, error) {
	blocks, err := unmarshalContentBlocks(dto.Content)
	if err != nil {
		return nil, err
	}
	switch dto.Type {
	case "user":
		return repochat.UserMessage{
			Content:   blocks,
			Timestamp: dto.Timestamp,
		}, nil
	case "assistant":
		msg := repochat.AssistantMessage{
			Content:   blocks,
			Timestamp: dto.Timestamp,
		}
		if dto.StopReason != nil {
			msg.StopReason = repochat.StopReason(*dto.StopReason)
		}
		if dto.RawStopReason != nil {
			msg.RawStopReason = *dto.RawStopReason
		}
		if dto.Usage != nil {
			msg.Usage = unmarshalUsage(*dto.Usage)
		}
		return msg, nil
	case "tool_result":
		msg := repochat.ToolResultMessage{
			Content:   blocks,
			Timestamp: dto.Timestamp,
		}
		if dto.ToolCallID != nil {
			msg.ToolCallID = *dto.ToolCallID
		}
		if dto.ToolName != nil {
			msg.ToolName = *dto.ToolName
		}
		if dto.IsError != nil {
			msg.IsError = *dto.IsError
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", dto.Type)
	}
}
