package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
)

// cursorStore persists the last applied position in a single-row table.
type cursorStore struct {
	tx pgx.Tx
}

// Get returns the last applied position. Returns ErrNotFound if nothing was applied yet.
func (s cursorStore) Get(ctx context.Context) (*domain.Position, error) {
	query := `SELECT block, tx_index, log_index FROM indexer_cursor WHERE id = 1`

	var b, t, l int64
	if err := s.tx.QueryRow(ctx, query).Scan(&b, &t, &l); err != nil {
		return nil, readErr("get cursor", err)
	}
	return &domain.Position{Block: uint64(b), TxIndex: uint64(t), LogIndex: uint64(l)}, nil
}

// Put records the last applied position.
func (s cursorStore) Put(ctx context.Context, pos domain.Position) error {
	query := `
		INSERT INTO indexer_cursor (id, block, tx_index, log_index, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			block = EXCLUDED.block,
			tx_index = EXCLUDED.tx_index,
			log_index = EXCLUDED.log_index,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := s.tx.Exec(ctx, query, int64(pos.Block), int64(pos.TxIndex), int64(pos.LogIndex)); err != nil {
		return writeErr("put cursor", err)
	}
	return nil
}
