// Package anthropic implements [repochat.Provider] on top of the official
// Anthropic Go SDK. Streaming responses from the Messages API are translated
// into semantic events behind the pull-based [repochat.Stream] interface.
package anthropic

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 8192
)
