package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

type platformStore struct {
	tx pgx.Tx
}

// Get retrieves the platform. Returns ErrNotFound before the first event.
func (s platformStore) Get(ctx context.Context) (*domain.Platform, error) {
	query := `
		SELECT id, total_tokens, total_users, total_trades, total_holders,
			total_quote_volume::text, total_liquidity::text, total_tokens_migrated_to_dex
		FROM platform
		WHERE id = $1
	`

	var (
		p  domain.Platform
		ns numScanner
	)
	err := s.tx.QueryRow(ctx, query, entityid.PlatformKey).Scan(
		&p.ID, &p.TotalTokens, &p.TotalUsers, &p.TotalTrades, &p.TotalHolders,
		ns.Int(&p.TotalQuoteVolume), ns.Int(&p.TotalLiquidity), &p.TotalTokensMigratedToDex,
	)
	if err != nil {
		return nil, readErr("get platform", err)
	}
	if err := ns.Resolve(); err != nil {
		return nil, readErr("get platform", err)
	}
	return &p, nil
}

// Put inserts or replaces the platform.
func (s platformStore) Put(ctx context.Context, p *domain.Platform) error {
	query := `
		INSERT INTO platform (
			id, total_tokens, total_users, total_trades, total_holders,
			total_quote_volume, total_liquidity, total_tokens_migrated_to_dex
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8)
		ON CONFLICT (id) DO UPDATE SET
			total_tokens = EXCLUDED.total_tokens,
			total_users = EXCLUDED.total_users,
			total_trades = EXCLUDED.total_trades,
			total_holders = EXCLUDED.total_holders,
			total_quote_volume = EXCLUDED.total_quote_volume,
			total_liquidity = EXCLUDED.total_liquidity,
			total_tokens_migrated_to_dex = EXCLUDED.total_tokens_migrated_to_dex
	`

	_, err := s.tx.Exec(ctx, query,
		p.ID, p.TotalTokens, p.TotalUsers, p.TotalTrades, p.TotalHolders,
		numArg(p.TotalQuoteVolume), numArg(p.TotalLiquidity), p.TotalTokensMigratedToDex,
	)
	if err != nil {
		return writeErr("put platform", err)
	}
	return nil
}
