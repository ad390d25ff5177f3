// Package coordinator hands chunks to workers over TCP, stores their partial
// results and reports the final aggregate once every chunk is accounted for.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/getpup/pupsourcing/es"
	"golang.org/x/sync/errgroup"

	"github.com/getpup/chunkstats"
	"github.com/getpup/chunkstats/dataset"
	"github.com/getpup/chunkstats/metrics"
	"github.com/getpup/chunkstats/queue"
	"github.com/getpup/chunkstats/store"
)

// Config holds configuration for the Coordinator.
type Config struct {
	// Store persists partial results (required).
	Store store.ResultStore

	// ChunkCount is the requested number of chunks for Split (default: 100).
	ChunkCount int

	// IdleTimeout bounds how long a session waits for the next message (default: 300s).
	IdleTimeout time.Duration

	// ProgressInterval is how often progress is reported while waiting (default: 1s).
	ProgressInterval time.Duration

	// RequeueOnDisconnect returns chunks a session pulled but never reported
	// to the queue when the session ends (default: false).
	RequeueOnDisconnect bool

	// Logger is for observability (optional).
	Logger es.Logger

	// Metrics records Prometheus metrics (optional).
	Metrics *metrics.Collector
}

// Coordinator owns the job queue and completion tracker of one run.
type Coordinator struct {
	config  Config
	queue   *queue.JobQueue
	tracker *Tracker
	now     func() time.Time

	mu       sync.Mutex
	listener net.Listener
	sessions sync.WaitGroup
}

// New creates a new Coordinator with the given configuration.
// Applies default values for zero count/timeout/interval values.
func New(cfg Config) *Coordinator {
	if cfg.ChunkCount == 0 {
		cfg.ChunkCount = 100
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 300 * time.Second
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = 1 * time.Second
	}

	return &Coordinator{
		config:  cfg,
		queue:   queue.New(),
		tracker: NewTracker(),
		now:     time.Now,
	}
}

// Tracker returns the completion tracker.
func (c *Coordinator) Tracker() *Tracker {
	return c.tracker
}

// Pending returns the number of chunks waiting in the queue.
func (c *Coordinator) Pending() int {
	return c.queue.Len()
}

// Enqueue adds chunks to the job queue.
func (c *Coordinator) Enqueue(chunks ...chunkstats.Chunk) {
	for _, ch := range chunks {
		c.queue.Push(ch)
	}
	c.config.Metrics.AddChunks(len(chunks))
}

// Chunks splits t into at most ChunkCount chunks.
func (c *Coordinator) Chunks(t *dataset.Table) ([]chunkstats.Chunk, error) {
	return dataset.BuildChunks(t, c.config.ChunkCount)
}

// Listen binds the TCP address Run will serve on.
func (c *Coordinator) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	c.mu.Lock()
	c.listener = ln
	c.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (c *Coordinator) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

// Serve accepts connections on ln until ctx is done or ln is closed, running
// one session goroutine per connection. Sessions already running are not
// interrupted when Serve returns.
func (c *Coordinator) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	// sessions outlive the accept loop
	sessionCtx := context.WithoutCancel(ctx)

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			backoff = nextAcceptBackoff(backoff)
			if c.config.Logger != nil {
				c.config.Logger.Error(ctx, "accept failed, retrying", "error", err, "backoff", backoff)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		c.sessions.Add(1)
		go func() {
			defer c.sessions.Done()
			c.HandleConn(sessionCtx, conn)
		}()
	}
}

// nextAcceptBackoff doubles the previous delay between 5ms and 1s.
func nextAcceptBackoff(prev time.Duration) time.Duration {
	const (
		minDelay = 5 * time.Millisecond
		maxDelay = time.Second
	)
	if prev == 0 {
		return minDelay
	}
	return min(prev*2, maxDelay)
}

// WaitSessions blocks until every session started by Serve has ended.
func (c *Coordinator) WaitSessions() {
	c.sessions.Wait()
}

// Run serves the given chunks on the listener bound by Listen until a result
// has been received for each of them, then closes the listener and returns
// the aggregate over the store.
func (c *Coordinator) Run(ctx context.Context, chunks []chunkstats.Chunk) (chunkstats.FinalAggregate, error) {
	if c.config.Store == nil {
		return chunkstats.FinalAggregate{}, ErrNoStore
	}

	c.mu.Lock()
	ln := c.listener
	c.mu.Unlock()
	if ln == nil {
		return chunkstats.FinalAggregate{}, ErrNotListening
	}

	if err := c.config.Store.Init(ctx); err != nil {
		_ = ln.Close()
		return chunkstats.FinalAggregate{}, fmt.Errorf("failed to initialize store: %w", err)
	}

	c.Enqueue(chunks...)
	target := len(chunks)
	if c.config.Logger != nil {
		c.config.Logger.Info(ctx, "coordinator started", "addr", ln.Addr().String(), "chunks", target)
	}

	if err := c.serveUntilComplete(ctx, ln, target); err != nil {
		return chunkstats.FinalAggregate{}, err
	}

	agg, err := c.config.Store.Aggregate(ctx)
	if err != nil {
		return chunkstats.FinalAggregate{}, fmt.Errorf("failed to aggregate results: %w", err)
	}
	if c.config.Logger != nil {
		c.config.Logger.Info(ctx, "all chunks processed", "chunks", target)
	}
	return agg, nil
}

func (c *Coordinator) serveUntilComplete(ctx context.Context, ln net.Listener, target int) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return c.Serve(gctx, ln)
	})

	g.Go(func() error {
		err := c.tracker.Wait(gctx, target, c.config.ProgressInterval, func(done, target int) {
			c.config.Metrics.SetCompletedChunks(done)
			if c.config.Logger != nil {
				c.config.Logger.Info(ctx, "waiting for results", "completed", done, "total", target)
			}
		})
		if err != nil {
			return fmt.Errorf("%w: %d of %d chunks reported: %w", chunkstats.ErrIncomplete, c.tracker.Count(), target, err)
		}
		// completion stops the accept loop
		cancel()
		return nil
	})

	return g.Wait()
}
