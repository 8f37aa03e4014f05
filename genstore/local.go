package genstore

import (
	"context"
	"sync"
)

// LocalGenStore keeps generations in-process. Entries are never pruned:
// a key's generation must outlive any execution that observed it, and the
// store lives no longer than the environment that owns it.
type LocalGenStore struct {
	mu   sync.RWMutex
	gens map[string]uint64
}

var _ GenStore = (*LocalGenStore)(nil)

func NewLocalGenStore() *LocalGenStore {
	return &LocalGenStore{gens: make(map[string]uint64)}
}

func (s *LocalGenStore) Snapshot(_ context.Context, k string) (uint64, error) {
	s.mu.RLock()
	g := s.gens[k]
	s.mu.RUnlock()
	return g, nil
}

func (s *LocalGenStore) Bump(_ context.Context, k string) (uint64, error) {
	s.mu.Lock()
	s.gens[k]++
	g := s.gens[k]
	s.mu.Unlock()
	return g, nil
}

func (s *LocalGenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

func (s *LocalGenStore) Close(context.Context) error { return nil }
