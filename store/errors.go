package store

import "errors"

var (
	// ErrStoreClosed indicates the store was used after Close.
	ErrStoreClosed = errors.New("store closed")

	// ErrUnsupportedDriver indicates no SQL dialect is known for a driver name.
	ErrUnsupportedDriver = errors.New("unsupported driver")
)
