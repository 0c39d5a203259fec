package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/rajibhasenraju/modern-url-shortener/internal/kv"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/auth"
)

const sessionKeyPrefix = "session:"

// SessionsStore maps opaque tokens to identities. Expiry is delegated to
// the backend's TTL support.
type SessionsStore struct {
	store kv.Store
}

func NewSessionsStore(store kv.Store) *SessionsStore {
	return &SessionsStore{store: store}
}

func (s *SessionsStore) Put(ctx context.Context, token, identity string, ttl time.Duration) error {
	return s.store.Put(ctx, sessionKeyPrefix+token, []byte(identity), ttl)
}

func (s *SessionsStore) Get(ctx context.Context, token string) (string, error) {
	raw, err := s.store.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return "", auth.ErrNoSession
		}
		return "", err
	}
	return string(raw), nil
}

func (s *SessionsStore) Delete(ctx context.Context, token string) error {
	return s.store.Delete(ctx, sessionKeyPrefix+token)
}
