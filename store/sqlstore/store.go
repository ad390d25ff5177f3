package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/getpup/chunkstats"
	"github.com/getpup/chunkstats/store"
)

const columns = "worker_id, chunk_id, rows_processed, total_sales, min_price, max_price, avg_price, inserted_at"

// Store is a database/sql implementation of ResultStore.
// The aggregate is computed by a single query on every call.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	ownsDB  bool

	upsertQuery    string
	aggregateQuery string
}

// Open opens a database with the given driver and wraps it in a Store.
// The returned Store owns the connection pool and closes it on Close.
func Open(driver, dsn string, config TableConfig) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	if dialect == MySQL {
		// Scanning DATETIME into time.Time requires parseTime.
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}

	s, err := New(db, dialect, config)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// New wraps an existing connection pool. The caller keeps ownership of db.
func New(db *sql.DB, dialect Dialect, config TableConfig) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table config: %w", err)
	}

	s := &Store{
		db:      db,
		dialect: dialect,
		table:   config.ResultsTable,
	}
	s.upsertQuery = s.buildUpsertQuery()
	s.aggregateQuery = s.buildAggregateQuery()
	return s, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Init creates the results table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if s.dialect == SQLite {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	for _, stmt := range SchemaStatements(s.dialect, TableConfig{ResultsTable: s.table}) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create results table: %w", err)
		}
	}
	return nil
}

// Upsert inserts result or replaces the row with the same (worker_id, chunk_id).
func (s *Store) Upsert(ctx context.Context, result chunkstats.PartialResult) error {
	if err := store.Validate(result); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, s.upsertQuery,
		result.WorkerID,
		result.ChunkID,
		result.RowsProcessed,
		result.TotalSales,
		result.MinPrice,
		result.MaxPrice,
		result.AvgPrice,
		result.InsertedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert result for chunk %d: %w", result.ChunkID, err)
	}
	return nil
}

// Aggregate computes the final aggregate over every stored row.
func (s *Store) Aggregate(ctx context.Context) (chunkstats.FinalAggregate, error) {
	var (
		rows                    sql.NullInt64
		sales, minP, maxP, avgP sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, s.aggregateQuery).Scan(&rows, &sales, &minP, &maxP, &avgP)
	if err != nil {
		return chunkstats.FinalAggregate{}, fmt.Errorf("failed to aggregate results: %w", err)
	}

	var agg chunkstats.FinalAggregate
	if rows.Valid {
		agg.TotalRows = &rows.Int64
	}
	agg.TotalSales = nullFloat(sales)
	agg.MinPrice = nullFloat(minP)
	agg.MaxPrice = nullFloat(maxP)
	agg.AvgPrice = nullFloat(avgP)
	return agg, nil
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)

	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}

// Results returns every stored row ordered by chunk then worker.
func (s *Store) Results(ctx context.Context) (results []chunkstats.PartialResult, err error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY chunk_id, worker_id`, columns, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var r chunkstats.PartialResult
		err := rows.Scan(
			&r.WorkerID,
			&r.ChunkID,
			&r.RowsProcessed,
			&r.TotalSales,
			&r.MinPrice,
			&r.MaxPrice,
			&r.AvgPrice,
			&r.InsertedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.InsertedAt = r.InsertedAt.UTC()
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// Close closes the connection pool if the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *Store) buildUpsertQuery() string {
	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, s.table, columns, s.dialect.placeholders(8))

	updated := []string{"rows_processed", "total_sales", "min_price", "max_price", "avg_price", "inserted_at"}
	sets := make([]string, len(updated))
	for i, col := range updated {
		if s.dialect == MySQL {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
		} else {
			sets[i] = fmt.Sprintf("%s = excluded.%s", col, col)
		}
	}

	if s.dialect == MySQL {
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return insert + " ON CONFLICT (worker_id, chunk_id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func (s *Store) buildAggregateQuery() string {
	weighted := "SUM(avg_price * rows_processed) / NULLIF(SUM(rows_processed), 0)"
	if s.dialect == Postgres {
		weighted = "SUM(avg_price * rows_processed) / NULLIF(SUM(rows_processed), 0)::DOUBLE PRECISION"
	}
	return fmt.Sprintf(`SELECT SUM(rows_processed), SUM(total_sales), MIN(min_price), MAX(max_price), %s FROM %s`, weighted, s.table)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ store.ResultStore = (*Store)(nil)
