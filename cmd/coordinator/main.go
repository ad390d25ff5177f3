// Command coordinator splits a CSV file into chunks, serves them to workers
// over TCP and prints the aggregated sales statistics once every chunk has
// been reported.
//
// Usage:
//
//	coordinator -csv sales.csv -port 5000 -chunks 100 -db results.sqlite
//	coordinator -csv sales.csv -driver postgres -db "postgres://localhost/stats?sslmode=disable"
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
	"time"

	"github.com/google/uuid"

	"github.com/getpup/chunkstats"
	"github.com/getpup/chunkstats/coordinator"
	"github.com/getpup/chunkstats/dataset"
	"github.com/getpup/chunkstats/logging"
	"github.com/getpup/chunkstats/metrics"
	"github.com/getpup/chunkstats/pkg/version"
	"github.com/getpup/chunkstats/store/sqlstore"
)

func main() {
	var (
		csvPath     = flag.String("csv", "", "Path to the input CSV file (required)")
		host        = flag.String("host", "0.0.0.0", "Address to listen on")
		port        = flag.Int("port", 5000, "Port to listen on")
		chunks      = flag.Int("chunks", 100, "Number of chunks to split the dataset into")
		dsn         = flag.String("db", "results.sqlite", "Result store DSN (a file path for sqlite3)")
		driver      = flag.String("driver", "sqlite3", "Result store driver: sqlite3, postgres, or mysql")
		table       = flag.String("table", "partial_results", "Name of the partial results table")
		idleTimeout = flag.Duration("idle-timeout", 300*time.Second, "Close sessions idle for this long")
		requeue     = flag.Bool("requeue", false, "Return chunks of disconnected workers to the queue")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled if empty)")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, or error")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)

	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -csv is required")
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.NewConsole(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config{
		csvPath:     *csvPath,
		addr:        net.JoinHostPort(*host, strconv.Itoa(*port)),
		chunks:      *chunks,
		driver:      *driver,
		dsn:         *dsn,
		table:       *table,
		idleTimeout: *idleTimeout,
		requeue:     *requeue,
		metricsAddr: *metricsAddr,
	}

	agg, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "coordinator failed", "error", err)
		os.Exit(1)
	}

	printAggregate(agg)
}

type config struct {
	csvPath     string
	addr        string
	chunks      int
	driver      string
	dsn         string
	table       string
	idleTimeout time.Duration
	requeue     bool
	metricsAddr string
}

func run(ctx context.Context, cfg config, logger *logging.Logger) (chunkstats.FinalAggregate, error) {
	log := logger.With("coordinator")
	log.Info(ctx, "starting chunkstats coordinator", "version", version.Version)

	table, err := dataset.LoadCSV(cfg.csvPath)
	if err != nil {
		return chunkstats.FinalAggregate{}, err
	}
	log.Info(ctx, "dataset loaded", "path", cfg.csvPath, "rows", table.Len(), "columns", table.Columns)

	st, err := sqlstore.Open(cfg.driver, cfg.dsn, sqlstore.TableConfig{ResultsTable: cfg.table})
	if err != nil {
		return chunkstats.FinalAggregate{}, err
	}
	defer st.Close()

	collector := metrics.NewCollector(uuid.NewString())
	if cfg.metricsAddr != "" {
		server := metrics.NewServer(cfg.metricsAddr)
		if err := server.Start(); err != nil {
			return chunkstats.FinalAggregate{}, err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		log.Info(ctx, "serving metrics", "addr", server.Addr(), "run", collector.Run())
	}

	c := coordinator.New(coordinator.Config{
		Store:               st,
		ChunkCount:          cfg.chunks,
		IdleTimeout:         cfg.idleTimeout,
		RequeueOnDisconnect: cfg.requeue,
		Logger:              log,
		Metrics:             collector,
	})

	chunks, err := c.Chunks(table)
	if err != nil {
		return chunkstats.FinalAggregate{}, err
	}
	log.Info(ctx, "dataset split", "requested", cfg.chunks, "chunks", len(chunks))

	if err := c.Listen(cfg.addr); err != nil {
		return chunkstats.FinalAggregate{}, err
	}

	agg, err := c.Run(ctx, chunks)
	if errors.Is(err, context.Canceled) {
		log.Info(ctx, "interrupted", "completed", c.Tracker().Count(), "total", len(chunks))
	}
	return agg, err
}

func printAggregate(agg chunkstats.FinalAggregate) {
	fmt.Println("Final metrics:")
	fmt.Printf("  total_rows:  %s\n", formatInt(agg.TotalRows))
	fmt.Printf("  total_sales: %s\n", formatFloat(agg.TotalSales))
	fmt.Printf("  min_price:   %s\n", formatFloat(agg.MinPrice))
	fmt.Printf("  max_price:   %s\n", formatFloat(agg.MaxPrice))
	fmt.Printf("  avg_price:   %s\n", formatFloat(agg.AvgPrice))
}

func formatInt(v *int64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatInt(*v, 10)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
