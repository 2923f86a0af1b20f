package repochat

import "time"

// Session represents a conversation session.
type Session struct {
	ID           string
	Messages     []Message
	SystemPrompt string
	Repo         *RepositoryHandle // nil until a repository is cloned
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
