package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"rodeo-indexer/internal/config"
	"rodeo-indexer/internal/ingestion"
	"rodeo-indexer/internal/logging"
	"rodeo-indexer/internal/storage/migrations"
	pgstore "rodeo-indexer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	eventsFile := flag.String("events", "", "JSON-lines event file to ingest (required, - for stdin)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	migrate := flag.Bool("migrate", false, "Apply postgres migrations before ingesting")
	bulk := flag.Bool("bulk", false, "Insert the whole file in one transaction; any duplicate fails the batch")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With().Str("cmd", "ingest").Logger()

	if *eventsFile == "" {
		logger.Fatal().Msg("--events is required")
	}
	dsn := cfg.Postgres.DSN
	if *postgresDSN != "" {
		dsn = *postgresDSN
	}
	if dsn == "" {
		logger.Fatal().Msg("postgres DSN is required (--postgres-dsn or postgres.dsn)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, dsn, *eventsFile, *migrate, *bulk); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("ingest interrupted")
			os.Exit(130)
		}
		logger.Fatal().Err(err).Msg("ingest failed")
	}
}

func run(ctx context.Context, logger zerolog.Logger, dsn, path string, migrate, bulk bool) error {
	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open events file: %w", err)
		}
		defer f.Close()
		in = f
	}

	events, err := ingestion.ReadEvents(in)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	logger.Info().Int("events", len(events)).Str("file", path).Msg("decoded events")

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if migrate {
		if _, err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	store := pgstore.NewRawEventStore(pool)
	if bulk {
		if err := store.InsertBulk(ctx, events); err != nil {
			return fmt.Errorf("bulk insert: %w", err)
		}
		logger.Info().Int("inserted", len(events)).Msg("ingest complete")
		return nil
	}

	stats, err := ingestion.NewRecorder(store, logger).RecordAll(ctx, events)
	if err != nil {
		return err
	}
	logger.Info().Int("inserted", stats.Inserted).Int("duplicates", stats.Duplicates).Msg("ingest complete")
	return nil
}
