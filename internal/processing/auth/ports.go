package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSession covers both an unknown token and one past its TTL.
	ErrNoSession = errors.New("session not found")
	// ErrExchangeFailed wraps any failure in the provider code exchange.
	// Callers treat it generically: no partial session is ever minted.
	ErrExchangeFailed = errors.New("identity exchange failed")
)

// SessionStore maps opaque tokens to user identities with a TTL. Sessions
// are never mutated: created at mint, removed on logout or natural expiry.
type SessionStore interface {
	Put(ctx context.Context, token, identity string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}
