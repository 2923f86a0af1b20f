// Package json persists sessions as versioned JSON transcripts.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deploypilotorg/repochat"
)

// envelope is the v1 wire format for a persisted session.
type envelope struct {
	Version      int            `json:"version"`
	ID           string         `json:"id"`
	SystemPrompt string         `json:"system_prompt"`
	Repository   *repositoryDTO `json:"repository,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Messages     []messageDTO   `json:"messages"`
}

// repositoryDTO records which repository the session was grounded in.
type repositoryDTO struct {
	URL      string    `json:"url"`
	Path     string    `json:"path"`
	ClonedAt time.Time `json:"cloned_at"`
}

// MarshalSession serializes a Session to JSON in v1 envelope format.
func MarshalSession(s repochat.Session) ([]byte, error) {
	env := envelope{
		Version:      1,
		ID:           s.ID,
		SystemPrompt: s.SystemPrompt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Messages:     make([]messageDTO, len(s.Messages)),
	}
	if s.Repo != nil {
		env.Repository = &repositoryDTO{
			URL:      s.Repo.URL,
			Path:     s.Repo.Path,
			ClonedAt: s.Repo.ClonedAt,
		}
	}
	for i, msg := range s.Messages {
		dto, err := marshalMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		env.Messages[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalSession deserializes a Session from JSON in v1 envelope format.
func UnmarshalSession(data []byte) (repochat.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return repochat.Session{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return repochat.Session{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs := make([]repochat.Message, len(env.Messages))
	for i, dto := range env.Messages {
		msg, err := unmarshalMessage(dto)
		if err != nil {
			return repochat.Session{}, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = msg
	}
	s := repochat.Session{
		ID:           env.ID,
		SystemPrompt: env.SystemPrompt,
		CreatedAt:    env.CreatedAt,
		UpdatedAt:    env.UpdatedAt,
		Messages:     msgs,
	}
	if env.Repository != nil {
		s.Repo = &repochat.RepositoryHandle{
			URL:      env.Repository.URL,
			Path:     env.Repository.Path,
			ClonedAt: env.Repository.ClonedAt,
		}
	}
	return s, nil
}

// Save writes a Session to a JSON file, creating parent directories as needed.
func Save(path string, s repochat.Session) error {
	data, err := MarshalSession(s)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Session from a JSON file.
func Load(path string) (repochat.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return repochat.Session{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalSession(data)
}
