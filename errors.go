package repochat

import "errors"

// Sentinel errors for common failure modes. Security-relevant kinds
// (ErrPathEscape, ErrPrivateRepository) are distinct sentinels so callers
// can never silently fold them into a generic failure.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrStreamNotReady indicates Message() was called before Next().
	ErrStreamNotReady = errors.New("stream not ready: call Next() first")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrSchemaValidation indicates tool arguments did not match the
	// tool's declared parameter schema.
	ErrSchemaValidation = errors.New("arguments do not match tool schema")

	// ErrMaxIterations indicates the conversation loop hit its tool-call
	// round bound without the assistant producing a final text reply.
	ErrMaxIterations = errors.New("max tool iterations exceeded")

	// ErrInvalidURL indicates a repository URL that is not syntactically valid.
	ErrInvalidURL = errors.New("invalid repository URL")

	// ErrPrivateRepository indicates a clone was rejected because the
	// repository requires authentication. Private repositories are
	// unsupported and must be reported as this kind, never as a generic
	// clone failure.
	ErrPrivateRepository = errors.New("unsupported: private repository")

	// ErrCloneFailed indicates the git clone subprocess failed for a
	// reason other than authentication (network, disk, missing remote).
	ErrCloneFailed = errors.New("clone failed")

	// ErrNoRepository indicates a reader operation before any clone.
	ErrNoRepository = errors.New("no repository cloned")

	// ErrPathEscape indicates a requested path resolves outside the
	// cloned repository root.
	ErrPathEscape = errors.New("path outside repository")

	// ErrFileNotFound indicates the requested path does not exist in the
	// cloned repository.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileTooLarge indicates a file above the configured size
	// threshold; readers truncate rather than fail, but report the kind.
	ErrFileTooLarge = errors.New("file too large")
)
