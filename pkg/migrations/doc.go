// Package migrations generates SQL migration files for the partial results
// table used by the coordinator's SQL result store. PostgreSQL, MySQL/MariaDB
// and SQLite are supported.
package migrations
