package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	chstore "rodeo-indexer/internal/storage/clickhouse"
)

// RunClickhouseMigrations ensures the database exists and applies all embedded SQL files.
// ClickHouse statements use IF NOT EXISTS and are re-applied on every run.
// Returns a ClickHouse connection to the target database for reuse.
func RunClickhouseMigrations(ctx context.Context, dsn string, logger zerolog.Logger) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}

	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "default")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		adminConn.Close()
		return nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := adminConn.Close(); err != nil {
		return nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	for _, m := range files {
		stmts, err := splitStatements(m.SQL)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("split migration %s: %w", m.Version, err)
		}

		// ClickHouse driver doesn't support multiquery in Exec
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.Version, err)
			}
		}
		logger.Info().Str("version", m.Version).Int("statements", len(stmts)).Msg("applied clickhouse migration")
	}

	return conn, nil
}

// splitStatements splits SQL content into statements on semicolons.
//
// Only -- line comments are understood. A semicolon inside a single-quoted
// string literal is rejected rather than split.
func splitStatements(input string) ([]string, error) {
	var (
		stmts    []string
		current  strings.Builder
		inString bool
	)

	for _, line := range strings.Split(input, "\n") {
		if !inString && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case ch == '\'' && inString && i+1 < len(line) && line[i+1] == '\'':
				current.WriteString("''")
				i++
				continue
			case ch == '\'':
				inString = !inString
			case ch == ';' && inString:
				return nil, fmt.Errorf("semicolon inside string literal")
			case ch == ';':
				if stmt := strings.TrimSpace(current.String()); stmt != "" {
					stmts = append(stmts, stmt)
				}
				current.Reset()
				continue
			}
			current.WriteByte(ch)
		}
		current.WriteByte('\n')
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
