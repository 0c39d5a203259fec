package links

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("link not found")
	ErrExpired           = errors.New("link expired")
	ErrInvalidURL        = errors.New("invalid url")
	ErrInvalidKey        = errors.New("invalid custom key")
	ErrKeyTaken          = errors.New("short key taken")
	ErrKeyspaceExhausted = errors.New("key allocation attempts exhausted")
)

// LinkStore persists canonical link records and the per-owner index. Every
// method is a single-key operation; callers never assume multi-key atomicity.
type LinkStore interface {
	// Create writes a new canonical record, failing with ErrKeyTaken when
	// the code already exists.
	Create(ctx context.Context, record *LinkRecord) error
	// Get returns the canonical record, or ErrNotFound.
	Get(ctx context.Context, code string) (*LinkRecord, error)
	// Put overwrites an existing canonical record (view counter updates).
	Put(ctx context.Context, record *LinkRecord) error
	Delete(ctx context.Context, code string) error

	// The owner index is a denormalized listing cache. It may transiently
	// diverge from canonical records and is never consulted on the redirect
	// path.
	IndexPut(ctx context.Context, owner string, record *LinkRecord) error
	IndexRemove(ctx context.Context, owner, code string) error
	IndexList(ctx context.Context, owner string) ([]LinkRecord, error)
}

// ClickSink accepts click events for asynchronous capture. Implementations
// either append straight to the click store or publish to a queue.
type ClickSink interface {
	Append(ctx context.Context, code string, event ClickEvent) error
}

// ClickStore is the durable, append-only click event log.
type ClickStore interface {
	ClickSink
	ListByCode(ctx context.Context, code string) ([]ClickEvent, error)
	PurgeByCode(ctx context.Context, code string) error
}

// KeyGenerator draws random short codes.
type KeyGenerator interface {
	Generate(length int) (string, error)
}
