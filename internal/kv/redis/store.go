// Package redis implements kv.Store on top of a Redis server. This is the
// primary production backend: single-key GET/SET/DEL map directly onto the
// contract, and SCAN serves the prefix operations.
package redis

import (
	"context"
	"errors"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rajibhasenraju/modern-url-shortener/internal/kv"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type Store struct {
	client *goredis.Client
}

func New(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, kv.ErrKeyNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *Store) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	keys, err := s.scanKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]kv.Entry, 0, len(keys))
	for i, raw := range values {
		// Keys can expire between SCAN and MGET.
		str, ok := raw.(string)
		if !ok {
			continue
		}
		out = append(out, kv.Entry{Key: keys[i], Value: []byte(str)})
	}
	return out, nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.scanKeys(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) scanKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	// SCAN returns keys in no particular order; the contract promises
	// key-ordered entries.
	sort.Strings(keys)
	return keys, nil
}
