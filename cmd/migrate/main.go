package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rodeo-indexer/internal/config"
	"rodeo-indexer/internal/logging"
	"rodeo-indexer/internal/storage/migrations"
	pgstore "rodeo-indexer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	skipPostgres := flag.Bool("skip-postgres", false, "Do not migrate postgres")
	withClickhouse := flag.Bool("clickhouse", false, "Also migrate clickhouse (implied by clickhouse.enabled)")

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
	logger = logger.With().Str("cmd", "migrate").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*skipPostgres {
		if cfg.Postgres.DSN == "" {
			logger.Fatal().Msg("postgres.dsn is required")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to postgres")
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool, logger)
		pool.Close()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres migrations failed")
		}
		logger.Info().Strs("applied", applied).Msg("postgres schema up to date")
	}

	if *withClickhouse || cfg.ClickHouse.Enabled {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("clickhouse migrations failed")
		}
		conn.Close()
		logger.Info().Msg("clickhouse schema up to date")
	}
}
