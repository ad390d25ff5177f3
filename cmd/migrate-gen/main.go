// Command migrate-gen generates SQL migration files for the partial results table.
//
// Usage:
//
//	go run github.com/getpup/chunkstats/cmd/migrate-gen -output migrations -filename init.sql
//
// Or with go generate:
//
//	//go:generate go run github.com/getpup/chunkstats/cmd/migrate-gen -output migrations
//
// Generate migrations for different database adapters:
//
//	go run github.com/getpup/chunkstats/cmd/migrate-gen -adapter postgres -output migrations
//	go run github.com/getpup/chunkstats/cmd/migrate-gen -adapter mysql -output migrations
//	go run github.com/getpup/chunkstats/cmd/migrate-gen -adapter sqlite -output migrations
//
// Customize the table name:
//
//	go run github.com/getpup/chunkstats/cmd/migrate-gen -table sales_results -output migrations
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/getpup/chunkstats/pkg/migrations"
	"github.com/getpup/chunkstats/pkg/version"
)

func main() {
	var (
		adapter        = flag.String("adapter", "postgres", "Database adapter: postgres, mysql, or sqlite")
		outputFolder   = flag.String("output", "migrations", "Output folder for migration file")
		outputFilename = flag.String("filename", "", "Output filename (default: timestamp-based)")
		resultsTable   = flag.String("table", "partial_results", "Name of the partial results table")
		showVersion    = flag.Bool("version", false, "Print version and exit")
	)

	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	config := migrations.DefaultConfig()
	config.OutputFolder = *outputFolder
	config.ResultsTable = *resultsTable

	if *outputFilename != "" {
		config.OutputFilename = *outputFilename
	}

	if err := migrations.Generate(*adapter, &config); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s migration: %s/%s\n", *adapter, config.OutputFolder, config.OutputFilename)
}
