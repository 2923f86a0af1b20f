package repochat

import "time"

// RepositoryHandle identifies a cloned repository on local disk.
// The Path is a scratch directory owned by the process; it is removed
// when a new repository replaces it or the process exits.
type RepositoryHandle struct {
	URL      string
	Path     string
	ClonedAt time.Time
}
