// Package memkv is an in-process KeyValue with a byte capacity, modelled on
// browser local storage quotas. Data lives as long as the process.
package memkv

import (
	"context"
	"fmt"
	"sync"

	"cargotrust/internal/pkg/errs"
)

// DefaultCapacity matches the usual 5 MiB browser storage quota.
const DefaultCapacity = 5 << 20

type Store struct {
	mu       sync.RWMutex
	data     map[string]string
	used     int64
	capacity int64
}

// New returns an empty store. capacity <= 0 means unbounded.
func New(capacity int64) *Store {
	return &Store{data: make(map[string]string), capacity: capacity}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used + entrySize(key, value)
	if old, ok := s.data[key]; ok {
		used -= entrySize(key, old)
	}
	if s.capacity > 0 && used > s.capacity {
		return fmt.Errorf("set %q: %d of %d bytes: %w", key, used, s.capacity, errs.ErrCapacityExceeded)
	}
	s.data[key] = value
	s.used = used
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[key]; ok {
		s.used -= entrySize(key, old)
		delete(s.data, key)
	}
	return nil
}

func (s *Store) Usage(context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used, s.capacity, nil
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
