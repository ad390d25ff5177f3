// Package queue holds the chunks that are waiting to be handed to workers.
package queue

import (
	"sync"

	"github.com/getpup/chunkstats"
)

// JobQueue is a FIFO of chunks safe for concurrent use.
// A chunk is returned by at most one TryPop call.
type JobQueue struct {
	mu     sync.Mutex
	chunks []chunkstats.Chunk
}

// New creates a queue holding chunks in the given order.
func New(chunks ...chunkstats.Chunk) *JobQueue {
	q := &JobQueue{
		chunks: make([]chunkstats.Chunk, 0, len(chunks)),
	}
	q.chunks = append(q.chunks, chunks...)
	return q
}

// Push appends a chunk to the back of the queue.
func (q *JobQueue) Push(chunk chunkstats.Chunk) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.chunks = append(q.chunks, chunk)
}

// TryPop removes and returns the chunk at the front of the queue.
// It never blocks; ok is false when the queue is empty.
func (q *JobQueue) TryPop() (chunk chunkstats.Chunk, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.chunks) == 0 {
		return chunkstats.Chunk{}, false
	}

	chunk = q.chunks[0]
	q.chunks[0] = chunkstats.Chunk{}
	q.chunks = q.chunks[1:]
	return chunk, true
}

// Len returns the number of chunks waiting.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.chunks)
}
