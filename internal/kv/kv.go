// Package kv defines the key-value store contract the service is built on.
// The store offers atomic single-key operations only: no cross-key
// transactions and no compare-and-swap. Backends are expected to be
// eventually consistent across regions.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("kv: key not found")

// Entry is a key together with its stored value.
type Entry struct {
	Key   string
	Value []byte
}

type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	// A ttl of zero means the key never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every entry whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// DeletePrefix removes every key starting with prefix. Best-effort:
	// backends may leave keys behind on partial failure.
	DeletePrefix(ctx context.Context, prefix string) error
}
