// Package memory provides an in-process kv.Store used in tests and local
// development. It mimics the semantics of the real backends, including TTL
// expiry, but keeps everything in a map behind a mutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rajibhasenraju/modern-url-shortener/internal/kv"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

type Store struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

func New() *Store {
	return &Store{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, kv.ErrKeyNotFound
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) List(_ context.Context, prefix string) ([]kv.Entry, error) {
	s.mu.RLock()
	var out []kv.Entry
	for key, e := range s.data {
		if !strings.HasPrefix(key, prefix) || s.expired(e) {
			continue
		}
		value := make([]byte, len(e.value))
		copy(value, e.value)
		out = append(out, kv.Entry{Key: key, Value: value})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
		}
	}
	s.mu.Unlock()
	return nil
}

// SetClock overrides the store's clock. Test helper for TTL behavior.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) expired(e entry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}
