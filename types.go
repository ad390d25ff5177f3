package chunkstats

import "time"

// Chunk is one immutable partition of the source dataset.
// Chunk IDs form a dense range starting at 0 in split order.
type Chunk struct {
	// ID is the chunk's position in the split (0-indexed).
	ID int

	// Payload is the serialized partition. The coordinator never inspects it.
	Payload []byte
}

// Metrics are the statistics a worker computes for a single chunk.
type Metrics struct {
	// RowsProcessed counts rows whose price parsed as a number.
	RowsProcessed int64

	// TotalSales is the sum of price * quantity over processed rows.
	TotalSales float64

	// MinPrice is the smallest price seen, or 0 when no rows were processed.
	MinPrice float64

	// MaxPrice is the largest price seen, or 0 when no rows were processed.
	MaxPrice float64

	// AvgPrice is the mean price over processed rows, or 0 when none were processed.
	AvgPrice float64
}

// PartialResult is the stored outcome of one chunk processed by one worker.
// It is uniquely identified by (WorkerID, ChunkID); storing a second result
// with the same key replaces the first.
type PartialResult struct {
	// WorkerID identifies the worker that produced the result.
	WorkerID string

	// ChunkID identifies the chunk the result describes.
	ChunkID int

	Metrics

	// InsertedAt is stamped by the coordinator when the result is received.
	InsertedAt time.Time
}

// Key returns the identity under which the result is stored.
func (r PartialResult) Key() ResultKey {
	return ResultKey{WorkerID: r.WorkerID, ChunkID: r.ChunkID}
}

// ResultKey is the unique key of a PartialResult.
type ResultKey struct {
	WorkerID string
	ChunkID  int
}

// FinalAggregate is derived from every stored PartialResult.
// All fields are nil when no results have been stored.
type FinalAggregate struct {
	// TotalRows is the sum of RowsProcessed.
	TotalRows *int64

	// TotalSales is the sum of TotalSales.
	TotalSales *float64

	// MinPrice is the minimum of MinPrice.
	MinPrice *float64

	// MaxPrice is the maximum of MaxPrice.
	MaxPrice *float64

	// AvgPrice is the mean of per-chunk AvgPrice weighted by RowsProcessed.
	// It approximates the global mean and is nil when TotalRows is zero.
	AvgPrice *float64
}

// Empty reports whether the aggregate was computed over no results.
func (a FinalAggregate) Empty() bool {
	return a.TotalRows == nil
}

// Combine folds results into a FinalAggregate using the same rules the SQL
// stores apply. Stores without a query engine use it directly.
func Combine(results []PartialResult) FinalAggregate {
	if len(results) == 0 {
		return FinalAggregate{}
	}

	var (
		rows     int64
		sales    float64
		weighted float64
		minPrice = results[0].MinPrice
		maxPrice = results[0].MaxPrice
	)
	for _, r := range results {
		rows += r.RowsProcessed
		sales += r.TotalSales
		weighted += r.AvgPrice * float64(r.RowsProcessed)
		if r.MinPrice < minPrice {
			minPrice = r.MinPrice
		}
		if r.MaxPrice > maxPrice {
			maxPrice = r.MaxPrice
		}
	}

	agg := FinalAggregate{
		TotalRows:  &rows,
		TotalSales: &sales,
		MinPrice:   &minPrice,
		MaxPrice:   &maxPrice,
	}
	if rows > 0 {
		avg := weighted / float64(rows)
		agg.AvgPrice = &avg
	}
	return agg
}
