package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_listings/internal/adapters/observability"
	"hotel_listings/internal/app"
	"hotel_listings/internal/shared"
	"hotel_listings/internal/storage"
)

var errMemoryStore = errors.New("ingestor needs a persistent store: set STORE_DRIVER to mysql or mongo")

func main() {
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	path := cfg.IngestFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if err := run(context.Background(), cfg, path); err != nil {
		log.Error().Err(err).Msg("ingestion failed")
		os.Exit(1)
	}
}

// run returns only after the store is closed, so the caller may exit.
func run(ctx context.Context, cfg shared.Config, path string) error {
	if cfg.StoreDriver == "" || cfg.StoreDriver == storage.DriverMemory {
		return errMemoryStore
	}
	log.Info().
		Str("file", path).
		Str("store", cfg.StoreDriver).
		Int("workers", cfg.IngestWorkers).
		Msg("ingestor starting")

	records, err := readRecords(path)
	if err != nil {
		return err
	}

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()

	// no cache: fresh listings have nothing to invalidate
	mod := app.NewModerationService(store, nil, cfg.CASMaxAttempts)
	ing := app.NewIngestionService(mod, cfg.IngestReviewer)

	failed, err := ingestAll(ctx, ing, records, cfg.IngestWorkers)
	log.Info().Int("total", len(records)).Int64("failed", failed).Msg("ingestion completed")
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records failed", failed, len(records))
	}
	return nil
}

func readRecords(path string) ([]app.ImportRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var records []app.ImportRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return records, nil
}

// ingestAll fans records out over at most workers goroutines and reports how
// many were rejected.
func ingestAll(ctx context.Context, ing *app.IngestionService, records []app.ImportRecord, workers int) (int64, error) {
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)

	for i, rec := range records {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return failed.Load(), fmt.Errorf("acquire worker: %w", err)
		}

		wg.Add(1)
		go func(i int, rec app.ImportRecord) {
			defer wg.Done()
			defer sem.Release(1)

			l, err := ing.Ingest(ctx, rec)
			if err != nil {
				failed.Add(1)
				log.Warn().Int("index", i).Str("owner_id", rec.OwnerID).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Int("index", i).Str("listing_id", l.ID).Str("state", l.State().String()).Msg("ingest ok")
		}(i, rec)
	}

	wg.Wait()
	return failed.Load(), nil
}
