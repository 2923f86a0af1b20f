package json

import (
	"encoding/json"
	"fmt"

	"github.com/deploypilotorg/repochat"
)

// contentBlockDTO is the serialized form of a ContentBlock. Type
// discriminates between "text", "thinking" and "tool_call".
type contentBlockDTO struct {
	Type      string          `json:"type"`
	Text      *string         `json:"text,omitempty"`
	Thinking  *string         `json:"thinking,omitempty"`
	ID        *string         `json:"id,omitempty"`
	Name      *string         `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func marshalContentBlocks(blocks []repochat.ContentBlock) ([]contentBlockDTO, error) {
	dtos := make([]contentBlockDTO, len(blocks))
	for i, block := range blocks {
		dto, err := marshalContentBlock(block)
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}
		dtos[i] = dto
	}
	return dtos, nil
}

func marshalContentBlock(block repochat.ContentBlock) (contentBlockDTO, error) {
	switch b := block.(type) {
	case repochat.TextBlock:
		text := b.Text
		return contentBlockDTO{Type: "text", Text: &text}, nil
	case repochat.ThinkingBlock:
		thinking := b.Thinking
		return contentBlockDTO{Type: "thinking", Thinking: &thinking}, nil
	case repochat.ToolCallBlock:
		id := b.ID
		name := b.Name
		return contentBlockDTO{
			Type:      "tool_call",
			ID:        &id,
			Name:      &name,
			Arguments: b.Arguments,
		}, nil
	default:
		return contentBlockDTO{}, fmt.Errorf("unknown content block type: %T", block)
	}
}

func unmarshalContentBlocks(dtos []contentBlockDTO) ([]repochat.ContentBlock, error) {
	blocks := make([]repochat.ContentBlock, len(dtos))
	for i, dto := range dtos {
		block, err := unmarshalContentBlock(dto)
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}
		blocks[i] = block
	}
	return blocks, nil
}

func unmarshalContentBlock(dto contentBlockDTO) (repochat.ContentBlock, error) {
	switch dto.Type {
	case "text":
		block := repochat.TextBlock{}
		if dto.Text != nil {
			block.Text = *dto.Text
		}
		return block, nil
	case "thinking":
		block := repochat.ThinkingBlock{}
		if dto.Thinking != nil {
			block.Thinking = *dto.Thinking
		}
		return block, nil
	case "tool_call":
		block := repochat.ToolCallBlock{Arguments: dto.Arguments}
		if dto.ID != nil {
			block.ID = *dto.ID
		}
		if dto.Name != nil {
			block.Name = *dto.Name
		}
		return block, nil
	default:
		return nil, fmt.Errorf("unknown content block type: %q", dto.Type)
	}
}
