package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/getpup/chunkstats/store/sqlstore"
)

// Config configures migration generation for the results table.
type Config struct {
	// OutputFolder is the directory where the migration file will be written
	OutputFolder string

	// OutputFilename is the name of the migration file
	OutputFilename string

	// ResultsTable is the name of the partial results table
	ResultsTable string
}

// DefaultConfig returns the default configuration for results migrations.
func DefaultConfig() Config {
	timestamp := time.Now().Format("20060102150405")
	return Config{
		OutputFolder:   "migrations",
		OutputFilename: fmt.Sprintf("%s_init_chunkstats_results.sql", timestamp),
		ResultsTable:   sqlstore.DefaultTableConfig().ResultsTable,
	}
}

// Generate writes the migration for the named adapter: postgres, mysql or sqlite.
func Generate(adapter string, config *Config) error {
	switch adapter {
	case "postgres":
		return GeneratePostgres(config)
	case "mysql":
		return GenerateMySQL(config)
	case "sqlite":
		return GenerateSQLite(config)
	default:
		return fmt.Errorf("unsupported adapter %q (supported: postgres, mysql, sqlite)", adapter)
	}
}

// GeneratePostgres generates a PostgreSQL migration file.
func GeneratePostgres(config *Config) error {
	return write(config, sqlstore.Postgres, "PostgreSQL")
}

// GenerateMySQL generates a MySQL/MariaDB migration file.
func GenerateMySQL(config *Config) error {
	return write(config, sqlstore.MySQL, "MySQL/MariaDB")
}

// GenerateSQLite generates a SQLite migration file.
func GenerateSQLite(config *Config) error {
	return write(config, sqlstore.SQLite, "SQLite")
}

func write(config *Config, dialect sqlstore.Dialect, database string) error {
	// Validate configuration to prevent SQL injection
	if err := sqlstore.ValidateIdentifier(config.ResultsTable, "ResultsTable"); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Ensure output folder exists
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	sql := generateSQL(config, dialect, database)

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}

func generateSQL(config *Config, dialect sqlstore.Dialect, database string) string {
	return fmt.Sprintf(`-- Chunkstats Results Migration
-- Generated: %s
-- Database: %s

-- One row per (worker_id, chunk_id); a resent result replaces the row.
-- The final aggregate is computed from this table on demand.
%s`,
		time.Now().Format(time.RFC3339),
		database,
		sqlstore.MigrationUp(dialect, sqlstore.TableConfig{ResultsTable: config.ResultsTable}),
	)
}
