package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/seatrace/trackdash/internal/config"
	"github.com/seatrace/trackdash/internal/storage"
	"github.com/seatrace/trackdash/internal/storage/memory"
)

// runImport copies the configured CSV files into a database so later runs
// can use data.source=sqlite or postgres.
func runImport(args []string) int {
	fs := flag.NewFlagSet(AppName+" import", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	target := fs.String("to", storage.SourceSQLite, "import target: sqlite or postgres")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := setup(ctx, *configDir); err != nil {
		fmt.Fprintln(os.Stderr, "trackdash import:", err)
		return 1
	}
	defer shutdown()

	src := memory.New(config.GetDataConfig())
	defer src.Close()

	sink, err := storage.NewSink(ctx, *target, config.GetStorageConfig(), ZeroLogger)
	if err != nil {
		Logger.Error("Failed to open import target", "target", *target, "error", err)
		return 1
	}

	stats, err := storage.Import(ctx, src, sink, ZeroLogger)
	closeErr := sink.Close()
	if err != nil {
		Logger.Error("Import failed", "error", err)
		return 1
	}
	if closeErr != nil {
		Logger.Error("Failed to finish import", "error", closeErr)
		return 1
	}

	fmt.Printf("imported %d samples and %d attribute records into %s\n", stats.Samples, stats.Attributes, *target)
	return 0
}
