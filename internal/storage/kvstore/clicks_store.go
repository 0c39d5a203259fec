package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rajibhasenraju/modern-url-shortener/internal/kv"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/links"
)

const clickKeyPrefix = "click:"

// ClicksStore is the append-only click event log. One key per event,
// click:<code>:<unixNano>:<rand>, so concurrent clicks never overwrite
// each other and the log for a code is one prefix scan away.
type ClicksStore struct {
	store kv.Store
}

func NewClicksStore(store kv.Store) *ClicksStore {
	return &ClicksStore{store: store}
}

func (s *ClicksStore) Append(ctx context.Context, code string, event links.ClickEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// The nanosecond timestamp alone could collide across instances; the
	// random suffix makes the key unique without coordination.
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	key := fmt.Sprintf("%s%s:%020d:%s", clickKeyPrefix, code, event.Timestamp.UTC().UnixNano(), suffix)

	return s.store.Put(ctx, key, raw, 0)
}

func (s *ClicksStore) ListByCode(ctx context.Context, code string) ([]links.ClickEvent, error) {
	entries, err := s.store.List(ctx, clickKeyPrefix+code+":")
	if err != nil {
		return nil, err
	}

	out := make([]links.ClickEvent, 0, len(entries))
	for _, entry := range entries {
		var event links.ClickEvent
		if err := json.Unmarshal(entry.Value, &event); err != nil {
			// A malformed event should not sink the whole aggregation.
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *ClicksStore) PurgeByCode(ctx context.Context, code string) error {
	return s.store.DeletePrefix(ctx, clickKeyPrefix+code+":")
}
