package coordinator

import "errors"

var (
	// ErrNotListening indicates Run was called before Listen.
	ErrNotListening = errors.New("coordinator is not listening")

	// ErrNoStore indicates the configuration has no result store.
	ErrNoStore = errors.New("result store is required")
)
