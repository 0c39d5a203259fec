package links

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

type Service struct {
	store     LinkStore
	clicks    ClickStore
	sink      ClickSink
	keygen    KeyGenerator
	keyLength int
	now       func() time.Time
}

func NewService(store LinkStore, clicks ClickStore, sink ClickSink, keygen KeyGenerator, keyLength int) *Service {
	if keyLength <= 0 {
		keyLength = DefaultKeyLength
	}
	if sink == nil {
		sink = clicks
	}

	return &Service{
		store:     store,
		clicks:    clicks,
		sink:      sink,
		keygen:    keygen,
		keyLength: keyLength,
		now:       time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in CreateLinkInput) (*LinkRecord, error) {
	normalizedURL, err := validateAndNormalizeURL(in.URL)
	if err != nil {
		return nil, ErrInvalidURL
	}

	now := s.now().UTC()
	record := &LinkRecord{
		URL:       normalizedURL,
		Owner:     in.Owner,
		CreatedAt: now,
		Password:  in.Password,
		Tags:      in.Tags,
	}
	if in.ExpiryDays > 0 {
		expires := now.Add(time.Duration(in.ExpiryDays) * 24 * time.Hour)
		record.ExpiresAt = &expires
	}

	if custom := strings.TrimSpace(in.CustomKey); custom != "" {
		if err := ValidateCustomKey(custom); err != nil {
			return nil, err
		}
		record.Code = custom
		// A taken custom key is never silently reassigned.
		if err := s.store.Create(ctx, record); err != nil {
			return nil, err
		}
	} else {
		if err := s.allocateRandom(ctx, record); err != nil {
			return nil, err
		}
	}

	// Canonical first, index second. The index is a cache: if this write
	// fails the link is live but briefly invisible in listings, which the
	// store's consistency model already forces callers to tolerate.
	_ = s.store.IndexPut(ctx, record.Owner, record)

	return record, nil
}

// allocateRandom draws codes until one is free. Bounded: exhaustion fails
// closed with ErrKeyspaceExhausted instead of retrying forever.
func (s *Service) allocateRandom(ctx context.Context, record *LinkRecord) error {
	for range maxAllocAttempts {
		code, err := s.keygen.Generate(s.keyLength)
		if err != nil {
			return err
		}
		record.Code = code

		err = s.store.Create(ctx, record)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrKeyTaken) {
			continue
		}
		return err
	}
	return ErrKeyspaceExhausted
}

// List returns the owner's links from the index, overlaying each entry with
// its canonical record. The index copy is written once at create and never
// refreshed by the redirect path, so view counts are only current in the
// canonical record. Entries whose canonical read fails are served from the
// index copy rather than dropped.
func (s *Service) List(ctx context.Context, owner string) ([]LinkRecord, error) {
	records, err := s.store.IndexList(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := range records {
		canonical, err := s.store.Get(ctx, records[i].Code)
		if err != nil {
			continue
		}
		records[i] = *canonical
	}
	return records, nil
}

// Delete removes a link the owner controls. A foreign or unknown code is
// ErrNotFound either way, so callers cannot probe other users' codes.
func (s *Service) Delete(ctx context.Context, owner, code string) error {
	record, err := s.store.Get(ctx, code)
	if err != nil {
		return err
	}
	if record.Owner != owner {
		return ErrNotFound
	}

	// Canonical first so the link stops resolving before it disappears from
	// listings. Index and click-log cleanup are best-effort.
	if err := s.store.Delete(ctx, code); err != nil {
		return err
	}
	_ = s.store.IndexRemove(ctx, owner, code)
	_ = s.clicks.PurgeByCode(ctx, code)
	return nil
}

// Resolve is the redirect hot path: look up the code, enforce expiry lazily,
// bump the view counter. It never touches the owner index and never requires
// a session.
func (s *Service) Resolve(ctx context.Context, code string) (*LinkRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}

	record, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if record.ExpiresAt != nil && s.now().UTC().After(record.ExpiresAt.UTC()) {
		// Lazy tombstoning: the first access past expiry deletes the record.
		// There is no background sweep.
		if err := s.store.Delete(ctx, code); err == nil {
			_ = s.store.IndexRemove(ctx, record.Owner, code)
			_ = s.clicks.PurgeByCode(ctx, code)
		}
		return nil, ErrExpired
	}

	// Read-modify-write with no isolation: concurrent redirects can lose
	// increments (last writer wins). The click event log is the source of
	// truth for exact counts; views is an approximation.
	record.Views++
	if err := s.store.Put(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// RecordClick submits one click event. Callers invoke this after the
// redirect response; failures must never affect that response.
func (s *Service) RecordClick(ctx context.Context, code string, event ClickEvent) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	return s.sink.Append(ctx, code, event)
}

// Aggregate reads the full click log for a code and groups it in memory.
func (s *Service) Aggregate(ctx context.Context, code string) (*Analytics, error) {
	events, err := s.clicks.ListByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return aggregateEvents(events), nil
}

func validateAndNormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", ErrInvalidURL
	}

	return u.String(), nil
}
