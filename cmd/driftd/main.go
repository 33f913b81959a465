// driftd is the drift content server: it ingests configured feed sources
// into SQLite and serves the paginated feed API clients scroll through.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/perivale/drift/internal/api"
	"github.com/perivale/drift/internal/ingest"
	"github.com/perivale/drift/internal/logging"
	"github.com/perivale/drift/internal/store"
)

// Options are the command line options for driftd.
type Options struct {
	Port           int    `short:"p" long:"port" env:"DRIFTD_PORT" default:"8970" description:"HTTP listen port"`
	DBPath         string `long:"db" env:"DRIFTD_DB" default:"drift.db" description:"SQLite database path"`
	SourcesFile    string `short:"s" long:"sources" env:"DRIFTD_SOURCES" default:"sources.yaml" description:"YAML feed source list"`
	IngestInterval int    `long:"ingest-interval" env:"DRIFTD_INGEST_INTERVAL" default:"300" description:"Seconds between ingest cycles"`
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logging.InitToWriter(os.Stderr)
	logging.Info("starting driftd", "port", opts.Port, "db", opts.DBPath)

	st, err := store.Open(opts.DBPath)
	if err != nil {
		logging.Fatal("failed to open store", "err", err)
	}
	defer st.Close()

	sources, err := ingest.LoadSources(opts.SourcesFile)
	if err != nil {
		logging.Fatal("failed to load sources", "err", err)
	}
	logging.Info("loaded sources", "count", len(sources))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := ingest.NewFetcher(30 * time.Second)
	coordinator := ingest.NewCoordinator(st, fetcher, sources, time.Duration(opts.IngestInterval)*time.Second)
	coordinator.Start(ctx)

	handler := api.NewHandler(st)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: api.NewServer(handler),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server failed", "err", err)
		}
	}()
	logging.Info("serving feed API", "addr", srv.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logging.Info("shutting down")
	cancel()
	coordinator.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("shutdown failed", "err", err)
	}
}
