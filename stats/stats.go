// Package stats computes per-chunk sales statistics.
package stats

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/getpup/chunkstats"
	"github.com/getpup/chunkstats/dataset"
	"github.com/shopspring/decimal"
)

// ErrMissingColumn indicates a required column could not be found under any alias.
var ErrMissingColumn = errors.New("missing column")

var (
	// PriceAliases are the accepted names of the price column, matched case-insensitively.
	PriceAliases = []string{"price", "unitprice", "unit_price"}

	// QuantityAliases are the accepted names of the quantity column, matched case-insensitively.
	QuantityAliases = []string{"quantity", "qty", "units"}
)

// ColumnError reports which logical column was missing and what the table had.
type ColumnError struct {
	Column    string
	Available []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("could not find a %s column among %v", e.Column, e.Available)
}

// Unwrap returns ErrMissingColumn.
func (e *ColumnError) Unwrap() error {
	return ErrMissingColumn
}

// Compute returns the statistics of t.
// Rows whose price does not parse as a finite number are skipped entirely.
// A quantity that does not parse, or is infinite, counts as zero.
func Compute(t *dataset.Table) (chunkstats.Metrics, error) {
	priceCol := t.ColumnIndex(PriceAliases...)
	if priceCol < 0 {
		return chunkstats.Metrics{}, &ColumnError{Column: "price", Available: t.Columns}
	}
	qtyCol := t.ColumnIndex(QuantityAliases...)
	if qtyCol < 0 {
		return chunkstats.Metrics{}, &ColumnError{Column: "quantity", Available: t.Columns}
	}

	var (
		m        chunkstats.Metrics
		sales    = decimal.Zero
		priceSum = decimal.Zero
	)
	for row := range t.Rows {
		price, ok := parseNumber(t.Cell(row, priceCol))
		if !ok {
			continue
		}
		qty, ok := parseNumber(t.Cell(row, qtyCol))
		if !ok {
			qty = 0
		}

		p := decimal.NewFromFloat(price)
		sales = sales.Add(p.Mul(decimal.NewFromFloat(qty)))
		priceSum = priceSum.Add(p)

		if m.RowsProcessed == 0 || price < m.MinPrice {
			m.MinPrice = price
		}
		if m.RowsProcessed == 0 || price > m.MaxPrice {
			m.MaxPrice = price
		}
		m.RowsProcessed++
	}

	if m.RowsProcessed == 0 {
		return chunkstats.Metrics{}, nil
	}

	m.TotalSales = sales.InexactFloat64()
	m.AvgPrice = priceSum.Div(decimal.NewFromInt(m.RowsProcessed)).InexactFloat64()
	return m, nil
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
