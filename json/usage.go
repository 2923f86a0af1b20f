package json

import "github.com/deploypilotorg/repochat"

type usageDTO struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheReadTokens  int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
}

func marshalUsage(u repochat.Usage) usageDTO {
	return usageDTO{
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens,
	}
}

func unmarshalUsage(dto usageDTO) repochat.Usage {
	return repochat.Usage{
		InputTokens:      dto.InputTokens,
		OutputTokens:     dto.OutputTokens,
		CacheReadTokens:  dto.CacheReadTokens,
		CacheWriteTokens: dto.CacheWriteTokens,
	}
}
