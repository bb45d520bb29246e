package token

import (
	"context"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
)

// Fetcher acquires a raw token value for a persona. Implementations are
// expected to block (the production fetcher drives a real browser); the
// provider isolates every call on its own worker with a bounded, detached
// context, so a Fetcher never runs on a resolution caller's goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, profile persona.Profile) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, profile persona.Profile) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, profile persona.Profile) (string, error) {
	return f(ctx, profile)
}
