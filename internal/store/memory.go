package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process KVStore. It is the default backend and the
// fake used by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]string
	quota    int   // max total bytes of values, 0 means unlimited
	failWith error // when set, every operation fails with it
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// WithQuota limits the total size of stored values in bytes.
func (s *MemoryStore) WithQuota(bytes int) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quota = bytes
	return s
}

// FailWith makes every subsequent operation return err. Pass nil to recover.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return "", false, s.failWith
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if s.quota > 0 {
		used := len(value)
		for k, v := range s.data {
			if k != key {
				used += len(v)
			}
		}
		if used > s.quota {
			return ErrQuotaExceeded
		}
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failWith
}

func (s *MemoryStore) Close() error { return nil }
