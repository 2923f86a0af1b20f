package gemini

import (
	"context"
	"iter"

	"google.golang.org/genai"

	"github.com/deploypilotorg/repochat"
)

// NewStreamFromIter exposes stream construction for tests, bypassing the
// network client.
func NewStreamFromIter(ctx context.Context, iterFn iter.Seq2[*genai.GenerateContentResponse, error]) repochat.Stream {
	return newStream(ctx, iterFn)
}
