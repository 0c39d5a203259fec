// Package kvstore implements the domain storage ports on top of kv.Store.
// Every operation touches exactly one key; the canonical record under
// link:<code> is authoritative and the user:<owner> index is a listing cache.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/rajibhasenraju/modern-url-shortener/internal/kv"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/links"
)

const (
	linkKeyPrefix  = "link:"
	ownerKeyPrefix = "user:"
)

type LinksStore struct {
	store kv.Store
}

func NewLinksStore(store kv.Store) *LinksStore {
	return &LinksStore{store: store}
}

func (s *LinksStore) Create(ctx context.Context, record *links.LinkRecord) error {
	key := linkKeyPrefix + record.Code

	// Check-then-put: the store has no compare-and-swap, so this re-check
	// only narrows the race window, it cannot close it.
	_, err := s.store.Get(ctx, key)
	if err == nil {
		return links.ErrKeyTaken
	}
	if !errors.Is(err, kv.ErrKeyNotFound) {
		return err
	}

	return s.write(ctx, record)
}

func (s *LinksStore) Get(ctx context.Context, code string) (*links.LinkRecord, error) {
	raw, err := s.store.Get(ctx, linkKeyPrefix+code)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, links.ErrNotFound
		}
		return nil, err
	}

	var record links.LinkRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *LinksStore) Put(ctx context.Context, record *links.LinkRecord) error {
	return s.write(ctx, record)
}

func (s *LinksStore) Delete(ctx context.Context, code string) error {
	return s.store.Delete(ctx, linkKeyPrefix+code)
}

func (s *LinksStore) write(ctx context.Context, record *links.LinkRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, linkKeyPrefix+record.Code, raw, 0)
}

// The index holds the owner's full code→record map under a single key, so
// each update is one atomic read-modify-write. Concurrent updates by the
// same owner can lose entries; the index self-heals on the next write and
// listings tolerate the gap.

func (s *LinksStore) IndexPut(ctx context.Context, owner string, record *links.LinkRecord) error {
	index, err := s.readIndex(ctx, owner)
	if err != nil {
		return err
	}
	index[record.Code] = *record
	return s.writeIndex(ctx, owner, index)
}

func (s *LinksStore) IndexRemove(ctx context.Context, owner, code string) error {
	index, err := s.readIndex(ctx, owner)
	if err != nil {
		return err
	}
	if _, ok := index[code]; !ok {
		return nil
	}
	delete(index, code)
	return s.writeIndex(ctx, owner, index)
}

func (s *LinksStore) IndexList(ctx context.Context, owner string) ([]links.LinkRecord, error) {
	index, err := s.readIndex(ctx, owner)
	if err != nil {
		return nil, err
	}

	out := make([]links.LinkRecord, 0, len(index))
	for _, record := range index {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *LinksStore) readIndex(ctx context.Context, owner string) (map[string]links.LinkRecord, error) {
	raw, err := s.store.Get(ctx, ownerKeyPrefix+owner)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return make(map[string]links.LinkRecord), nil
		}
		return nil, err
	}

	index := make(map[string]links.LinkRecord)
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *LinksStore) writeIndex(ctx context.Context, owner string, index map[string]links.LinkRecord) error {
	raw, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, ownerKeyPrefix+owner, raw, 0)
}
