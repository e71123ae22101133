package cache

import (
	"context"
	"time"
)

// LocalStore is an in-process Store backed by an LRU cache.
type LocalStore struct {
	lru *LRUCache[[]byte]
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(maxSize int, ttl time.Duration) *LocalStore {
	return &LocalStore{lru: NewLRUCache[[]byte](maxSize, ttl)}
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := s.lru.Get(key)
	return data, ok, nil
}

func (s *LocalStore) Set(_ context.Context, key string, data []byte) error {
	s.lru.Set(key, append([]byte(nil), data...))
	return nil
}

func (s *LocalStore) DeletePrefix(_ context.Context, prefix string) error {
	s.lru.DeletePrefix(prefix)
	return nil
}

// CleanExpired lets a Manager sweep the underlying LRU.
func (s *LocalStore) CleanExpired() int {
	return s.lru.CleanExpired()
}
