package sqlstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/getpup/chunkstats"
	"github.com/getpup/chunkstats/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "results.sqlite")
	s, err := Open("sqlite3", path, DefaultTableConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Init(context.Background()))
	return s
}

func result(worker string, chunk int, rows int64, sales, minP, maxP, avg float64) chunkstats.PartialResult {
	return chunkstats.PartialResult{
		WorkerID: worker,
		ChunkID:  chunk,
		Metrics: chunkstats.Metrics{
			RowsProcessed: rows,
			TotalSales:    sales,
			MinPrice:      minP,
			MaxPrice:      maxP,
			AvgPrice:      avg,
		},
		InsertedAt: time.Now().UTC(),
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver string
		want   Dialect
	}{
		{"sqlite3", SQLite},
		{"sqlite", SQLite},
		{"postgres", Postgres},
		{"postgresql", Postgres},
		{"mysql", MySQL},
		{"MariaDB", MySQL},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := DialectFor(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DialectFor("oracle")
	assert.ErrorIs(t, err, store.ErrUnsupportedDriver)
}

func TestNew_RejectsUnsafeTableName(t *testing.T) {
	for _, name := range []string{"", "1results", "results; DROP TABLE x", "my-table"} {
		_, err := New(nil, SQLite, TableConfig{ResultsTable: name})
		assert.Error(t, err, "table name %q", name)
	}
}

func TestUpsertQuery_PerDialect(t *testing.T) {
	pg, err := New(nil, Postgres, DefaultTableConfig())
	require.NoError(t, err)
	assert.Contains(t, pg.upsertQuery, "VALUES ($1, $2, $3, $4, $5, $6, $7, $8)")
	assert.Contains(t, pg.upsertQuery, "ON CONFLICT (worker_id, chunk_id) DO UPDATE SET")

	my, err := New(nil, MySQL, DefaultTableConfig())
	require.NoError(t, err)
	assert.Contains(t, my.upsertQuery, "VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	assert.Contains(t, my.upsertQuery, "ON DUPLICATE KEY UPDATE rows_processed = VALUES(rows_processed)")

	lite, err := New(nil, SQLite, TableConfig{ResultsTable: "custom_results"})
	require.NoError(t, err)
	assert.Contains(t, lite.upsertQuery, "INSERT INTO custom_results")
	assert.Contains(t, lite.aggregateQuery, "FROM custom_results")
}

func TestMigrationUpDown(t *testing.T) {
	config := TableConfig{ResultsTable: "stats_results"}

	for _, d := range []Dialect{SQLite, Postgres, MySQL} {
		t.Run(string(d), func(t *testing.T) {
			up := MigrationUp(d, config)
			assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS stats_results")
			assert.Contains(t, up, "PRIMARY KEY (worker_id, chunk_id)")
			assert.Contains(t, up, "idx_stats_results_chunk")

			assert.Equal(t, "DROP TABLE IF EXISTS stats_results;\n", MigrationDown(d, config))
		})
	}

	assert.Contains(t, MigrationUp(MySQL, config), "ENGINE=InnoDB")
	assert.Contains(t, MigrationUp(Postgres, config), "TIMESTAMPTZ")
}

func TestSQLite_InitIsIdempotent(t *testing.T) {
	s := openSQLite(t)
	require.NoError(t, s.Init(context.Background()))
}

func TestSQLite_AggregateEmpty(t *testing.T) {
	s := openSQLite(t)

	agg, err := s.Aggregate(context.Background())
	require.NoError(t, err)
	assert.True(t, agg.Empty())
	assert.Nil(t, agg.TotalSales)
	assert.Nil(t, agg.MinPrice)
	assert.Nil(t, agg.MaxPrice)
	assert.Nil(t, agg.AvgPrice)
}

func TestSQLite_UpsertReplaces(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, result("w1", 0, 10, 100, 1, 5, 2)))
	require.NoError(t, s.Upsert(ctx, result("w1", 0, 4, 20, 3, 7, 5)))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := s.Results(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(4), results[0].RowsProcessed)
	assert.InDelta(t, 5.0, results[0].AvgPrice, 1e-9)
	assert.False(t, results[0].InsertedAt.IsZero())
}

func TestSQLite_UpsertRejectsEmptyWorker(t *testing.T) {
	s := openSQLite(t)

	err := s.Upsert(context.Background(), result("", 0, 1, 1, 1, 1, 1))
	assert.ErrorIs(t, err, chunkstats.ErrInvalidRecord)
}

func TestSQLite_WeightedAggregate(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, result("w1", 0, 10, 20, 1, 3, 2.0)))
	require.NoError(t, s.Upsert(ctx, result("w1", 1, 10, 40, 2, 6, 4.0)))
	require.NoError(t, s.Upsert(ctx, result("w2", 2, 20, 20, 0.5, 1.5, 1.0)))

	agg, err := s.Aggregate(ctx)
	require.NoError(t, err)
	require.NotNil(t, agg.TotalRows)
	require.NotNil(t, agg.AvgPrice)
	assert.Equal(t, int64(40), *agg.TotalRows)
	assert.InDelta(t, 80.0, *agg.TotalSales, 1e-9)
	assert.InDelta(t, 0.5, *agg.MinPrice, 1e-9)
	assert.InDelta(t, 6.0, *agg.MaxPrice, 1e-9)
	assert.InDelta(t, 2.0, *agg.AvgPrice, 1e-9)
}

func TestSQLite_ZeroRowsHasNoAverage(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, result("w1", 0, 0, 0, 0, 0, 0)))

	agg, err := s.Aggregate(ctx)
	require.NoError(t, err)
	require.NotNil(t, agg.TotalRows)
	assert.Equal(t, int64(0), *agg.TotalRows)
	assert.Nil(t, agg.AvgPrice)
}

func TestSQLite_AggregateMatchesCombine(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		r := result(fmt.Sprintf("w%d", i%3), i, int64(i+1), float64(i)*3.5, float64(i)+0.25, float64(i)*2+1, float64(i)+0.75)
		require.NoError(t, s.Upsert(ctx, r))
	}

	results, err := s.Results(ctx)
	require.NoError(t, err)
	want := chunkstats.Combine(results)

	got, err := s.Aggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, *want.TotalRows, *got.TotalRows)
	assert.InDelta(t, *want.TotalSales, *got.TotalSales, 1e-6)
	assert.InDelta(t, *want.MinPrice, *got.MinPrice, 1e-9)
	assert.InDelta(t, *want.MaxPrice, *got.MaxPrice, 1e-9)
	assert.InDelta(t, *want.AvgPrice, *got.AvgPrice, 1e-9)
}

func TestSQLite_ConcurrentUpserts(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for c := 0; c < 25; c++ {
				assert.NoError(t, s.Upsert(ctx, result(fmt.Sprintf("w%d", w), c, 1, 1, 1, 1, 1)))
			}
		}(w)
	}
	wg.Wait()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, count)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.sqlite")
	ctx := context.Background()

	s, err := Open("sqlite3", path, DefaultTableConfig())
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Upsert(ctx, result("w1", 0, 3, 9, 1, 5, 3)))
	require.NoError(t, s.Close())

	s, err = Open("sqlite3", path, DefaultTableConfig())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Init(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
