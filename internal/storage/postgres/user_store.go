package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

type userStore struct {
	tx pgx.Tx
}

// Get retrieves a user. Returns ErrNotFound if not exists.
func (s userStore) Get(ctx context.Context, key entityid.UserKey) (*domain.User, error) {
	query := `
		SELECT id, is_insider, total_tokens_created, total_trades
		FROM users
		WHERE id = $1
	`

	var u domain.User
	err := s.tx.QueryRow(ctx, query, key.String()).Scan(
		&u.ID,
		&u.IsInsider,
		&u.TotalTokensCreated,
		&u.TotalTrades,
	)
	if err != nil {
		return nil, readErr("get user", err)
	}
	return &u, nil
}

// Put inserts or replaces a user.
func (s userStore) Put(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, is_insider, total_tokens_created, total_trades)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			is_insider = EXCLUDED.is_insider,
			total_tokens_created = EXCLUDED.total_tokens_created,
			total_trades = EXCLUDED.total_trades
	`

	_, err := s.tx.Exec(ctx, query, u.ID, u.IsInsider, u.TotalTokensCreated, u.TotalTrades)
	if err != nil {
		return writeErr("put user", err)
	}
	return nil
}
