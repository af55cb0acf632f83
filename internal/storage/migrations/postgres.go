package migrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"rodeo-indexer/internal/storage/postgres"
)

const createVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// RunPostgresMigrations applies every embedded SQL file not yet recorded in
// schema_migrations, each in its own transaction. It returns the versions applied.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger zerolog.Logger) ([]string, error) {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range files {
		done, err := applyPostgres(ctx, pool, m)
		if err != nil {
			return applied, err
		}
		if done {
			logger.Info().Str("version", m.Version).Msg("applied postgres migration")
			applied = append(applied, m.Version)
		}
	}
	return applied, nil
}

// applyPostgres applies m unless already recorded. It reports whether m was applied now.
func applyPostgres(ctx context.Context, pool *postgres.Pool, m migration) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var seen string
	err = tx.QueryRow(ctx, `SELECT version FROM schema_migrations WHERE version = $1`, m.Version).Scan(&seen)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("check migration %s: %w", m.Version, err)
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("apply migration %s: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return false, fmt.Errorf("record migration %s: %w", m.Version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return true, nil
}
