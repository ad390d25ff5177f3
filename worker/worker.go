// Package worker implements the pull loop that fetches chunks from a
// coordinator, computes their statistics and reports them back.
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getpup/pupsourcing/es"
	"github.com/google/uuid"

	"github.com/getpup/chunkstats/dataset"
	"github.com/getpup/chunkstats/protocol"
	"github.com/getpup/chunkstats/stats"
)

// Config holds configuration for a Worker.
type Config struct {
	// Addr is the coordinator address as host:port (required).
	Addr string

	// WorkerID identifies this worker to the coordinator (default: <hostname>-<uuid>).
	WorkerID string

	// DialTimeout bounds connection establishment (default: 10s).
	DialTimeout time.Duration

	// IdleTimeout bounds each wait for a coordinator reply (default: 300s).
	IdleTimeout time.Duration

	// Logger is for observability (optional).
	Logger es.Logger
}

// Summary describes what a run accomplished.
type Summary struct {
	WorkerID        string
	ChunksProcessed int
	RowsProcessed   int64
}

// Worker processes chunks until the coordinator reports that none remain.
type Worker struct {
	config Config
}

// New creates a Worker, applying defaults for zero values.
func New(cfg Config) *Worker {
	if cfg.WorkerID == "" {
		cfg.WorkerID = DefaultWorkerID()
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 300 * time.Second
	}

	return &Worker{config: cfg}
}

// DefaultWorkerID returns <hostname>-<uuid>.
func DefaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString())
}

// ID returns the identity the worker announces.
func (w *Worker) ID() string {
	return w.config.WorkerID
}

// Run dials the coordinator and processes chunks until it answers NO_JOB.
// Cancelling ctx closes the connection and returns ctx.Err().
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	conn, err := protocol.Dial(w.config.Addr, w.config.DialTimeout, w.config.IdleTimeout)
	if err != nil {
		return Summary{WorkerID: w.config.WorkerID}, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	summary, err := w.Process(ctx, conn)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return summary, ctxErr
	}
	return summary, err
}

// Process runs the session protocol over an established connection.
// A chunk whose data cannot be decoded or lacks the required columns aborts
// the session without BYE. The caller owns conn.
func (w *Worker) Process(ctx context.Context, conn *protocol.Conn) (Summary, error) {
	summary := Summary{WorkerID: w.config.WorkerID}

	if err := conn.Send(protocol.Hello{WorkerID: w.config.WorkerID}); err != nil {
		return summary, fmt.Errorf("failed to send hello: %w", err)
	}
	if w.config.Logger != nil {
		w.config.Logger.Info(ctx, "connected to coordinator", "workerID", w.config.WorkerID, "addr", conn.RemoteAddr().String())
	}

	for {
		if err := conn.Send(protocol.GetJob{}); err != nil {
			return summary, fmt.Errorf("failed to request job: %w", err)
		}

		msg, err := conn.Receive()
		if err != nil {
			return summary, fmt.Errorf("failed to receive job: %w", err)
		}

		switch m := msg.(type) {
		case protocol.NoJob:
			if err := conn.Send(protocol.Bye{}); err != nil {
				return summary, fmt.Errorf("failed to send bye: %w", err)
			}
			if w.config.Logger != nil {
				w.config.Logger.Info(ctx, "no jobs left",
					"workerID", w.config.WorkerID,
					"chunks", summary.ChunksProcessed,
					"rows", summary.RowsProcessed)
			}
			return summary, nil

		case protocol.Job:
			rows, err := w.processJob(ctx, conn, m)
			if err != nil {
				return summary, err
			}
			summary.ChunksProcessed++
			summary.RowsProcessed += rows

		default:
			if w.config.Logger != nil {
				w.config.Logger.Debug(ctx, "ignoring unexpected message", "type", string(msg.Type()))
			}
		}
	}
}

func (w *Worker) processJob(ctx context.Context, conn *protocol.Conn, job protocol.Job) (int64, error) {
	table, err := dataset.DecodeTable(job.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to decode chunk %d: %w", job.ChunkID, err)
	}

	m, err := stats.Compute(table)
	if err != nil {
		return 0, fmt.Errorf("chunk %d: %w", job.ChunkID, err)
	}

	err = conn.Send(protocol.Result{Record: protocol.Record{
		WorkerID: w.config.WorkerID,
		ChunkID:  job.ChunkID,
		Metrics:  m,
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to send result for chunk %d: %w", job.ChunkID, err)
	}

	// The reply is normally an ACK; its content is not needed.
	if _, err := conn.Receive(); err != nil {
		return 0, fmt.Errorf("failed to receive ack for chunk %d: %w", job.ChunkID, err)
	}

	if w.config.Logger != nil {
		w.config.Logger.Debug(ctx, "chunk processed", "chunkID", job.ChunkID, "rows", m.RowsProcessed)
	}
	return m.RowsProcessed, nil
}
