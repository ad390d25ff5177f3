// Package dataset loads tabular input and cuts it into chunks for workers.
package dataset

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyHeader indicates the input has no header row.
	ErrEmptyHeader = errors.New("dataset has no header row")

	// ErrInvalidChunkCount indicates a split was requested into fewer than one chunk.
	ErrInvalidChunkCount = errors.New("chunk count must be at least 1")
)

// Table is an in-memory table of string cells with named columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the first column whose name matches one of
// names, compared case-insensitively after trimming spaces. Aliases are tried
// in order. Returns -1 if none match.
func (t *Table) ColumnIndex(names ...string) int {
	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, name := range names {
		if i, ok := index[strings.ToLower(name)]; ok {
			return i
		}
	}
	return -1
}

// Cell returns the value at row, col or "" if the row is short.
func (t *Table) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Slice returns a table sharing t's columns with rows [start, end).
func (t *Table) Slice(start, end int) *Table {
	return &Table{
		Columns: t.Columns,
		Rows:    t.Rows[start:end:end],
	}
}
