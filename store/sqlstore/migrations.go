package sqlstore

import (
	"fmt"
	"strings"
)

// SchemaStatements returns the statements that create the results table,
// one per element, so they can be executed without multi-statement support.
func SchemaStatements(d Dialect, config TableConfig) []string {
	t := config.ResultsTable
	switch d {
	case Postgres:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    worker_id TEXT NOT NULL,
    chunk_id INTEGER NOT NULL,
    rows_processed BIGINT NOT NULL,
    total_sales DOUBLE PRECISION NOT NULL,
    min_price DOUBLE PRECISION NOT NULL,
    max_price DOUBLE PRECISION NOT NULL,
    avg_price DOUBLE PRECISION NOT NULL,
    inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (worker_id, chunk_id)
)`, t),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_chunk ON %s (chunk_id)`, t, t),
		}
	case MySQL:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    worker_id VARCHAR(255) NOT NULL,
    chunk_id INT NOT NULL,
    rows_processed BIGINT NOT NULL,
    total_sales DOUBLE NOT NULL,
    min_price DOUBLE NOT NULL,
    max_price DOUBLE NOT NULL,
    avg_price DOUBLE NOT NULL,
    inserted_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    PRIMARY KEY (worker_id, chunk_id),
    INDEX idx_%s_chunk (chunk_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`, t, t),
		}
	default:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    worker_id TEXT NOT NULL,
    chunk_id INTEGER NOT NULL,
    rows_processed INTEGER NOT NULL,
    total_sales REAL NOT NULL,
    min_price REAL NOT NULL,
    max_price REAL NOT NULL,
    avg_price REAL NOT NULL,
    inserted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (worker_id, chunk_id)
)`, t),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_chunk ON %s (chunk_id)`, t, t),
		}
	}
}

// MigrationUp returns the SQL to create the results table and its chunk index.
func MigrationUp(d Dialect, config TableConfig) string {
	return strings.Join(SchemaStatements(d, config), ";\n\n") + ";\n"
}

// MigrationDown returns the SQL to drop the results table.
func MigrationDown(d Dialect, config TableConfig) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;\n", config.ResultsTable)
}
