package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/getpup/chunkstats"
	"github.com/getpup/chunkstats/protocol"
)

// session is the per-connection state of one worker.
type session struct {
	id       string
	workerID string
	conn     *protocol.Conn

	// leased holds chunks handed out on this connection and not yet reported.
	leased map[int]chunkstats.Chunk
}

func newSession(c net.Conn, idleTimeout time.Duration) *session {
	return &session{
		id:       uuid.NewString(),
		workerID: c.RemoteAddr().String(),
		conn:     protocol.NewConn(c, idleTimeout),
		leased:   make(map[int]chunkstats.Chunk),
	}
}

// leasedChunks returns the outstanding chunks ordered by ID.
func (s *session) leasedChunks() []chunkstats.Chunk {
	chunks := make([]chunkstats.Chunk, 0, len(s.leased))
	for _, c := range s.leased {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})
	return chunks
}

// HandleConn serves one worker connection until BYE, a transport error or a
// store error. Errors are logged and end only this session. The connection
// is closed on return.
func (c *Coordinator) HandleConn(ctx context.Context, conn net.Conn) {
	s := newSession(conn, c.config.IdleTimeout)
	defer s.conn.Close()

	c.config.Metrics.SessionOpened()
	defer c.config.Metrics.SessionClosed()

	if c.config.Logger != nil {
		c.config.Logger.Info(ctx, "worker connected", "sessionID", s.id, "remoteAddr", s.workerID)
	}

	err := c.serveSession(ctx, s)
	switch {
	case err == nil:
		if c.config.Logger != nil {
			c.config.Logger.Info(ctx, "worker said goodbye", "sessionID", s.id, "workerID", s.workerID)
		}
	case errors.Is(err, protocol.ErrConnClosed):
		if c.config.Logger != nil {
			c.config.Logger.Info(ctx, "worker disconnected", "sessionID", s.id, "workerID", s.workerID)
		}
	default:
		c.config.Metrics.IncSessionErrors()
		if c.config.Logger != nil {
			c.config.Logger.Error(ctx, "session failed", "sessionID", s.id, "workerID", s.workerID, "error", err)
		}
	}

	c.releaseLeases(ctx, s)
}

func (c *Coordinator) serveSession(ctx context.Context, s *session) error {
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case protocol.Hello:
			if m.WorkerID != "" {
				s.workerID = m.WorkerID
			}
			if c.config.Logger != nil {
				c.config.Logger.Debug(ctx, "worker identified", "sessionID", s.id, "workerID", s.workerID)
			}

		case protocol.GetJob:
			if err := c.dispatch(ctx, s); err != nil {
				return err
			}

		case protocol.Result:
			if err := c.record(ctx, s, m.Record); err != nil {
				return err
			}

		case protocol.Bye:
			return nil

		default:
			if c.config.Logger != nil {
				c.config.Logger.Debug(ctx, "ignoring message", "sessionID", s.id, "type", string(msg.Type()))
			}
		}
	}
}

// dispatch answers GET_JOB with the next chunk or NO_JOB.
func (c *Coordinator) dispatch(ctx context.Context, s *session) error {
	chunk, ok := c.queue.TryPop()
	if !ok {
		if err := s.conn.Send(protocol.NoJob{}); err != nil {
			return fmt.Errorf("failed to send no-job: %w", err)
		}
		return nil
	}

	s.leased[chunk.ID] = chunk
	if err := s.conn.Send(protocol.Job{ChunkID: chunk.ID, Data: chunk.Payload}); err != nil {
		return fmt.Errorf("failed to send chunk %d: %w", chunk.ID, err)
	}

	c.config.Metrics.IncJobsDispatched()
	if c.config.Logger != nil {
		c.config.Logger.Debug(ctx, "chunk dispatched", "sessionID", s.id, "workerID", s.workerID, "chunkID", chunk.ID)
	}
	return nil
}

// record stores a RESULT, bumps the completion counter and acknowledges it.
func (c *Coordinator) record(ctx context.Context, s *session, rec protocol.Record) error {
	result := chunkstats.PartialResult{
		WorkerID:   rec.WorkerID,
		ChunkID:    rec.ChunkID,
		Metrics:    rec.Metrics,
		InsertedAt: c.now().UTC(),
	}
	if result.WorkerID == "" {
		result.WorkerID = s.workerID
	}

	start := time.Now()
	if err := c.config.Store.Upsert(ctx, result); err != nil {
		return fmt.Errorf("failed to store result for chunk %d: %w", result.ChunkID, err)
	}
	c.config.Metrics.ObserveUpsertDuration(time.Since(start).Seconds())
	c.config.Metrics.IncResultsStored()

	done := c.tracker.Add(1)
	c.config.Metrics.SetCompletedChunks(done)
	delete(s.leased, result.ChunkID)

	if c.config.Logger != nil {
		c.config.Logger.Info(ctx, "result stored",
			"workerID", result.WorkerID,
			"chunkID", result.ChunkID,
			"rows", result.RowsProcessed,
			"completed", done)
	}

	if err := s.conn.Send(protocol.Ack{ChunkID: result.ChunkID}); err != nil {
		return fmt.Errorf("failed to ack chunk %d: %w", result.ChunkID, err)
	}
	return nil
}

// releaseLeases handles chunks the session pulled but never reported.
func (c *Coordinator) releaseLeases(ctx context.Context, s *session) {
	if len(s.leased) == 0 {
		return
	}

	chunks := s.leasedChunks()
	ids := make([]int, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}

	if !c.config.RequeueOnDisconnect {
		if c.config.Logger != nil {
			c.config.Logger.Error(ctx, "chunks lost with session", "sessionID", s.id, "workerID", s.workerID, "chunkIDs", ids)
		}
		return
	}

	for _, ch := range chunks {
		c.queue.Push(ch)
	}
	c.config.Metrics.AddChunksRequeued(len(chunks))
	if c.config.Logger != nil {
		c.config.Logger.Info(ctx, "requeued unreported chunks", "sessionID", s.id, "workerID", s.workerID, "chunkIDs", ids)
	}
}
