package memory

import (
	"context"
	"sync"

	"github.com/getpup/chunkstats"
	"github.com/getpup/chunkstats/store"
)

// Store is an in-memory implementation of ResultStore.
// It provides thread-safe access to partial results using a sync.RWMutex.
type Store struct {
	mu      sync.RWMutex
	results map[chunkstats.ResultKey]chunkstats.PartialResult
	closed  bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		results: make(map[chunkstats.ResultKey]chunkstats.PartialResult),
	}
}

// Init is a no-op for the in-memory store.
func (s *Store) Init(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	return nil
}

// Upsert stores result, replacing any result with the same (WorkerID, ChunkID).
func (s *Store) Upsert(ctx context.Context, result chunkstats.PartialResult) error {
	if err := store.Validate(result); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	s.results[result.Key()] = result
	return nil
}

// Aggregate combines every stored result.
func (s *Store) Aggregate(ctx context.Context) (chunkstats.FinalAggregate, error) {
	results, err := s.Results(ctx)
	if err != nil {
		return chunkstats.FinalAggregate{}, err
	}
	return chunkstats.Combine(results), nil
}

// Count returns the number of stored results.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, store.ErrStoreClosed
	}
	return len(s.results), nil
}

// Results returns a copy of every stored result ordered by chunk then worker.
func (s *Store) Results(ctx context.Context) ([]chunkstats.PartialResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	out := make([]chunkstats.PartialResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	store.SortResults(out)
	return out, nil
}

// Close marks the store closed. Later calls fail with store.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

var _ store.ResultStore = (*Store)(nil)
