package repochat_test

import (
	"testing"
	"time"

	"github.com/deploypilotorg/repochat"
	"github.com/stretchr/testify/assert"
)

func TestSession_Fields(t *testing.T) {
	t.Parallel()
	now := time.Now()
	s := repochat.Session{
		ID:           "sess-123",
		Messages:     []repochat.Message{repochat.UserMessage{Content: []repochat.ContentBlock{repochat.TextBlock{Text: "hello"}}}},
		SystemPrompt: "You are helpful.",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	assert.Equal(t, "sess-123", s.ID)
	assert.Len(t, s.Messages, 1)
	assert.Equal(t, "You are helpful.", s.SystemPrompt)
	assert.Nil(t, s.Repo, "session starts without a repository")
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now, s.UpdatedAt)
}

func TestSession_WithRepository(t *testing.T) {
	t.Parallel()
	now := time.Now()
	s := repochat.Session{
		ID: "sess-456",
		Repo: &repochat.RepositoryHandle{
			URL:      "https://github.com/golang/example",
			Path:     "/tmp/repochat-123/example",
			ClonedAt: now,
		},
	}
	assert.Equal(t, "https://github.com/golang/example", s.Repo.URL)
	assert.Equal(t, "/tmp/repochat-123/example", s.Repo.Path)
	assert.Equal(t, now, s.Repo.ClonedAt)
}
