package store

import (
	"context"
	"sync"

	"github.com/getpup/chunkstats"
)

// MockResultStore is a configurable mock implementation of ResultStore
// for use in tests. It allows setting up return values, tracking method
// calls, and injecting errors for testing error paths.
//
// Without hooks, Upsert records results in memory so Aggregate and Count
// behave like a real store.
type MockResultStore struct {
	mu sync.RWMutex

	// InitFunc is called by Init if set.
	InitFunc func(ctx context.Context) error

	// UpsertFunc is called by Upsert if set.
	UpsertFunc func(ctx context.Context, result chunkstats.PartialResult) error

	// AggregateFunc is called by Aggregate if set.
	AggregateFunc func(ctx context.Context) (chunkstats.FinalAggregate, error)

	// CountFunc is called by Count if set.
	CountFunc func(ctx context.Context) (int, error)

	// CloseFunc is called by Close if set.
	CloseFunc func() error

	// Call tracking
	InitCalls      int
	UpsertCalls    []UpsertCall
	AggregateCalls int
	CountCalls     int
	CloseCalls     int

	results map[chunkstats.ResultKey]chunkstats.PartialResult
}

// UpsertCall records one call to Upsert.
type UpsertCall struct {
	Result chunkstats.PartialResult
}

// NewMockResultStore creates a new mock result store.
func NewMockResultStore() *MockResultStore {
	return &MockResultStore{
		results: make(map[chunkstats.ResultKey]chunkstats.PartialResult),
	}
}

// Init implements ResultStore.
func (m *MockResultStore) Init(ctx context.Context) error {
	m.mu.Lock()
	m.InitCalls++
	m.mu.Unlock()

	if m.InitFunc != nil {
		return m.InitFunc(ctx)
	}
	return nil
}

// Upsert implements ResultStore.
func (m *MockResultStore) Upsert(ctx context.Context, result chunkstats.PartialResult) error {
	m.mu.Lock()
	m.UpsertCalls = append(m.UpsertCalls, UpsertCall{Result: result})
	m.mu.Unlock()

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, result)
	}
	if err := Validate(result); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = make(map[chunkstats.ResultKey]chunkstats.PartialResult)
	}
	m.results[result.Key()] = result
	return nil
}

// Aggregate implements ResultStore.
func (m *MockResultStore) Aggregate(ctx context.Context) (chunkstats.FinalAggregate, error) {
	m.mu.Lock()
	m.AggregateCalls++
	m.mu.Unlock()

	if m.AggregateFunc != nil {
		return m.AggregateFunc(ctx)
	}
	return chunkstats.Combine(m.snapshot()), nil
}

// Count implements ResultStore.
func (m *MockResultStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	m.CountCalls++
	m.mu.Unlock()

	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results), nil
}

// Results implements ResultStore.
func (m *MockResultStore) Results(ctx context.Context) ([]chunkstats.PartialResult, error) {
	return m.snapshot(), nil
}

// Close implements ResultStore.
func (m *MockResultStore) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// UpsertCount returns the number of Upsert calls so far.
func (m *MockResultStore) UpsertCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.UpsertCalls)
}

// Reset clears all call tracking data and stored results.
func (m *MockResultStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitCalls = 0
	m.UpsertCalls = nil
	m.AggregateCalls = 0
	m.CountCalls = 0
	m.CloseCalls = 0
	m.results = make(map[chunkstats.ResultKey]chunkstats.PartialResult)
}

func (m *MockResultStore) snapshot() []chunkstats.PartialResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]chunkstats.PartialResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	SortResults(out)
	return out
}
