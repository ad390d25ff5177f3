package dataset

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/getpup/chunkstats"
)

// Split partitions t into at most n contiguous tables.
// The first len%n parts get one extra row, so sizes differ by at most one.
// Empty parts are omitted, giving min(n, t.Len()) parts.
func Split(t *Table, n int) ([]*Table, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkCount, n)
	}

	total := t.Len()
	base, rem := total/n, total%n

	parts := make([]*Table, 0, min(n, total))
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		parts = append(parts, t.Slice(start, start+size))
		start += size
	}
	return parts, nil
}

// BuildChunks splits t into up to n chunks numbered from 0 in split order.
func BuildChunks(t *Table, n int) ([]chunkstats.Chunk, error) {
	parts, err := Split(t, n)
	if err != nil {
		return nil, err
	}

	chunks := make([]chunkstats.Chunk, 0, len(parts))
	for i, part := range parts {
		payload, err := EncodeTable(part)
		if err != nil {
			return nil, fmt.Errorf("failed to encode chunk %d: %w", i, err)
		}
		chunks = append(chunks, chunkstats.Chunk{ID: i, Payload: payload})
	}
	return chunks, nil
}

// EncodeTable serializes t for transport inside a chunk.
func EncodeTable(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTable reverses EncodeTable.
func DecodeTable(payload []byte) (*Table, error) {
	var t Table
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}
	return &t, nil
}
