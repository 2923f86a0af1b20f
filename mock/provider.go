// Package mock provides test doubles for repochat interfaces using function fields.
package mock

import (
	"context"

	"github.com/deploypilotorg/repochat"
)

// Interface compliance check.
var _ repochat.Provider = (*Provider)(nil)

// Provider is a test double for repochat.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, req repochat.Request) (repochat.Stream, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req repochat.Request) (repochat.Stream, error) {
	return p.StreamFn(ctx, req)
}
