package chunkstats

import "errors"

var (
	// ErrInvalidRecord indicates a partial result cannot be stored, e.g. it has no worker ID.
	ErrInvalidRecord = errors.New("invalid partial result")

	// ErrIncomplete indicates the run ended before every chunk was reported.
	ErrIncomplete = errors.New("run incomplete")
)
