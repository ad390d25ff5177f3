// Command worker connects to a coordinator, processes chunks until none are
// left and exits.
//
// Usage:
//
//	worker -server coordinator.local -port 5000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/getpup/chunkstats/logging"
	"github.com/getpup/chunkstats/pkg/version"
	"github.com/getpup/chunkstats/worker"
)

func main() {
	var (
		server      = flag.String("server", "localhost", "Coordinator host")
		port        = flag.Int("port", 5000, "Coordinator port")
		workerID    = flag.String("worker-id", "", "Worker identity (default: <hostname>-<uuid>)")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, or error")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)

	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger, err := logging.NewConsole(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.New(worker.Config{
		Addr:     net.JoinHostPort(*server, strconv.Itoa(*port)),
		WorkerID: *workerID,
		Logger:   logger.With("worker"),
	})

	summary, err := w.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info(ctx, "worker interrupted", "workerID", w.ID())
			os.Exit(130)
		}
		logger.Error(ctx, "worker failed", "workerID", w.ID(), "error", err)
		os.Exit(1)
	}

	logger.Info(ctx, "worker finished",
		"workerID", summary.WorkerID,
		"chunks", summary.ChunksProcessed,
		"rows", summary.RowsProcessed)
}
