package store

import (
	"context"
	"sort"

	"github.com/getpup/chunkstats"
)

// ResultStore persists partial results and derives the final aggregate.
// Implementations must be safe for concurrent use by many sessions.
type ResultStore interface {
	// Init prepares the store, creating tables if needed. Safe to call more than once.
	Init(ctx context.Context) error

	// Upsert inserts the result, or replaces the stored result with the same
	// (WorkerID, ChunkID). Returns chunkstats.ErrInvalidRecord if WorkerID is empty.
	Upsert(ctx context.Context, result chunkstats.PartialResult) error

	// Aggregate computes the final aggregate from every stored result at call time.
	// Returns an empty aggregate (all fields nil) when nothing is stored.
	Aggregate(ctx context.Context) (chunkstats.FinalAggregate, error)

	// Count returns the number of distinct (WorkerID, ChunkID) pairs stored.
	Count(ctx context.Context) (int, error)

	// Results returns every stored result ordered by chunk then worker.
	Results(ctx context.Context) ([]chunkstats.PartialResult, error)

	// Close releases resources held by the store.
	Close() error
}

// Validate checks that a result can be stored.
func Validate(result chunkstats.PartialResult) error {
	if result.WorkerID == "" {
		return chunkstats.ErrInvalidRecord
	}
	if result.ChunkID < 0 {
		return chunkstats.ErrInvalidRecord
	}
	if result.RowsProcessed < 0 {
		return chunkstats.ErrInvalidRecord
	}
	return nil
}

// SortResults orders results by chunk ID, then worker ID.
func SortResults(results []chunkstats.PartialResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].ChunkID != results[j].ChunkID {
			return results[i].ChunkID < results[j].ChunkID
		}
		return results[i].WorkerID < results[j].WorkerID
	})
}
