package coordinator

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getpup/chunkstats"
	"github.com/getpup/chunkstats/protocol"
	"github.com/getpup/chunkstats/store"
	"github.com/getpup/chunkstats/store/memory"
)

// startSession runs HandleConn on one end of a pipe and returns the other end.
// The returned channel is closed when the session ends.
func startSession(t *testing.T, c *Coordinator) (*protocol.Conn, <-chan struct{}) {
	t.Helper()

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.HandleConn(context.Background(), server)
	}()

	conn := protocol.NewConn(client, 5*time.Second)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, done
}

func receive[T protocol.Message](t *testing.T, c *protocol.Conn) T {
	t.Helper()

	msg, err := c.Receive()
	require.NoError(t, err)
	m, ok := msg.(T)
	require.True(t, ok, "unexpected message %T", msg)
	return m
}

func waitClosed(t *testing.T, done <-chan struct{}) {
	t.Helper()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
}

func record(chunkID int, rows int64) protocol.Record {
	return protocol.Record{
		ChunkID: chunkID,
		Metrics: chunkstats.Metrics{RowsProcessed: rows, TotalSales: 10, MinPrice: 1, MaxPrice: 4, AvgPrice: 2.5},
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	c := New(Config{})

	assert.Equal(t, 100, c.config.ChunkCount)
	assert.Equal(t, 300*time.Second, c.config.IdleTimeout)
	assert.Equal(t, time.Second, c.config.ProgressInterval)
	assert.False(t, c.config.RequeueOnDisconnect)
}

func TestNew_PreservesExplicitValues(t *testing.T) {
	c := New(Config{ChunkCount: 3, IdleTimeout: time.Second, ProgressInterval: time.Millisecond})

	assert.Equal(t, 3, c.config.ChunkCount)
	assert.Equal(t, time.Second, c.config.IdleTimeout)
	assert.Equal(t, time.Millisecond, c.config.ProgressInterval)
}

func TestSession_FullExchange(t *testing.T) {
	st := memory.New()
	c := New(Config{Store: st})
	c.Enqueue(chunkstats.Chunk{ID: 0, Payload: []byte("chunk-0")})

	conn, done := startSession(t, c)

	require.NoError(t, conn.Send(protocol.Hello{WorkerID: "w1"}))
	require.NoError(t, conn.Send(protocol.GetJob{}))

	job := receive[protocol.Job](t, conn)
	assert.Equal(t, 0, job.ChunkID)
	assert.Equal(t, []byte("chunk-0"), job.Data)

	require.NoError(t, conn.Send(protocol.Result{Record: record(0, 4)}))
	ack := receive[protocol.Ack](t, conn)
	assert.Equal(t, 0, ack.ChunkID)

	require.NoError(t, conn.Send(protocol.GetJob{}))
	receive[protocol.NoJob](t, conn)

	require.NoError(t, conn.Send(protocol.Bye{}))
	waitClosed(t, done)

	results, err := st.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "w1", results[0].WorkerID)
	assert.Equal(t, int64(4), results[0].RowsProcessed)
	assert.Equal(t, time.UTC, results[0].InsertedAt.Location())
	assert.Equal(t, 1, c.Tracker().Count())
}

func TestSession_RecordWorkerIDWins(t *testing.T) {
	st := memory.New()
	c := New(Config{Store: st})
	conn, done := startSession(t, c)

	require.NoError(t, conn.Send(protocol.Hello{WorkerID: "hello-id"}))
	rec := record(3, 1)
	rec.WorkerID = "record-id"
	require.NoError(t, conn.Send(protocol.Result{Record: rec}))
	receive[protocol.Ack](t, conn)
	require.NoError(t, conn.Send(protocol.Bye{}))
	waitClosed(t, done)

	results, err := st.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "record-id", results[0].WorkerID)
}

func TestSession_DefaultsWorkerIDToRemoteAddress(t *testing.T) {
	st := memory.New()
	c := New(Config{Store: st})
	conn, done := startSession(t, c)

	// an empty HELLO keeps the default identity
	require.NoError(t, conn.Send(protocol.Hello{}))
	require.NoError(t, conn.Send(protocol.Result{Record: record(0, 1)}))
	receive[protocol.Ack](t, conn)
	require.NoError(t, conn.Send(protocol.Bye{}))
	waitClosed(t, done)

	results, err := st.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pipe", results[0].WorkerID)
}

func TestSession_ResendReplacesButCountsTwice(t *testing.T) {
	st := memory.New()
	c := New(Config{Store: st})
	conn, done := startSession(t, c)

	require.NoError(t, conn.Send(protocol.Hello{WorkerID: "w1"}))
	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Send(protocol.Result{Record: record(0, int64(i+1))}))
		receive[protocol.Ack](t, conn)
	}
	require.NoError(t, conn.Send(protocol.Bye{}))
	waitClosed(t, done)

	count, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, c.Tracker().Count())

	results, err := st.Results(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), results[0].RowsProcessed)
}

func TestSession_IgnoresUnknownMessages(t *testing.T) {
	c := New(Config{Store: memory.New()})
	conn, done := startSession(t, c)

	require.NoError(t, conn.Send(protocol.UnknownMessage{Tag: "PING"}))
	require.NoError(t, conn.Send(protocol.Ack{ChunkID: 1}))
	require.NoError(t, conn.Send(protocol.GetJob{}))
	receive[protocol.NoJob](t, conn)

	require.NoError(t, conn.Send(protocol.Bye{}))
	waitClosed(t, done)
}

func TestSession_StoreErrorClosesOnlyThatSession(t *testing.T) {
	mock := store.NewMockResultStore()
	mock.UpsertFunc = func(ctx context.Context, r chunkstats.PartialResult) error {
		if r.WorkerID == "bad" {
			return errors.New("disk full")
		}
		return nil
	}
	c := New(Config{Store: mock})

	bad, badDone := startSession(t, c)
	good, goodDone := startSession(t, c)

	require.NoError(t, bad.Send(protocol.Hello{WorkerID: "bad"}))
	require.NoError(t, bad.Send(protocol.Result{Record: record(0, 1)}))
	_, err := bad.Receive()
	assert.ErrorIs(t, err, protocol.ErrConnClosed)
	waitClosed(t, badDone)

	require.NoError(t, good.Send(protocol.Hello{WorkerID: "good"}))
	require.NoError(t, good.Send(protocol.Result{Record: record(1, 1)}))
	receive[protocol.Ack](t, good)
	require.NoError(t, good.Send(protocol.Bye{}))
	waitClosed(t, goodDone)

	assert.Equal(t, 2, mock.UpsertCount())
	assert.Equal(t, 1, c.Tracker().Count(), "failed write must not count")
}

func TestSession_TruncatedFrameClosesSession(t *testing.T) {
	c := New(Config{Store: memory.New()})

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.HandleConn(context.Background(), server)
	}()

	_, err := client.Write([]byte{0, 0, 0, 10, 1, 2})
	require.NoError(t, err)
	require.NoError(t, client.Close())
	waitClosed(t, done)
}

func TestSession_IdleTimeoutClosesSession(t *testing.T) {
	c := New(Config{Store: memory.New(), IdleTimeout: 50 * time.Millisecond})
	_, done := startSession(t, c)

	waitClosed(t, done)
}

func TestSession_LostChunkWithoutRequeue(t *testing.T) {
	c := New(Config{Store: memory.New()})
	c.Enqueue(chunkstats.Chunk{ID: 0}, chunkstats.Chunk{ID: 1})

	conn, done := startSession(t, c)
	require.NoError(t, conn.Send(protocol.GetJob{}))
	receive[protocol.Job](t, conn)
	require.NoError(t, conn.Close())
	waitClosed(t, done)

	assert.Equal(t, 1, c.Pending())
}

func TestSession_RequeueOnDisconnect(t *testing.T) {
	c := New(Config{Store: memory.New(), RequeueOnDisconnect: true})
	c.Enqueue(chunkstats.Chunk{ID: 0}, chunkstats.Chunk{ID: 1}, chunkstats.Chunk{ID: 2})

	conn, done := startSession(t, c)
	require.NoError(t, conn.Send(protocol.Hello{WorkerID: "w1"}))
	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Send(protocol.GetJob{}))
		receive[protocol.Job](t, conn)
	}
	// chunk 0 is reported, chunk 1 is not
	require.NoError(t, conn.Send(protocol.Result{Record: record(0, 1)}))
	receive[protocol.Ack](t, conn)
	require.NoError(t, conn.Close())
	waitClosed(t, done)

	assert.Equal(t, 2, c.Pending())

	first, ok := c.queue.TryPop()
	require.True(t, ok)
	assert.Equal(t, 2, first.ID)
	second, ok := c.queue.TryPop()
	require.True(t, ok)
	assert.Equal(t, 1, second.ID)
}
