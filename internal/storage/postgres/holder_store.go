package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

type holderStore struct {
	tx pgx.Tx
}

const holderColumns = `id, token, user_id, balance::text, updated_at`

// Get retrieves a holder. Returns ErrNotFound if not exists.
func (s holderStore) Get(ctx context.Context, key entityid.HolderKey) (*domain.Holder, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE id = $1`

	h, err := scanHolder(s.tx.QueryRow(ctx, query, key.String()))
	if err != nil {
		return nil, readErr("get holder", err)
	}
	return h, nil
}

// Put inserts or replaces a holder. The table rejects negative balances.
func (s holderStore) Put(ctx context.Context, h *domain.Holder) error {
	query := `
		INSERT INTO holders (id, token, user_id, balance, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
		ON CONFLICT (id) DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.tx.Exec(ctx, query, h.ID, h.Token, h.User, numArg(h.Balance), h.UpdatedAt)
	if err != nil {
		return writeErr("put holder", err)
	}
	return nil
}

// Delete removes a holder. Deleting a missing holder is not an error.
func (s holderStore) Delete(ctx context.Context, key entityid.HolderKey) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM holders WHERE id = $1`, key.String())
	if err != nil {
		return writeErr("delete holder", err)
	}
	return nil
}

// ListByToken returns all holders of a token ordered by id.
func (s holderStore) ListByToken(ctx context.Context, token entityid.TokenKey) ([]*domain.Holder, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE token = $1 ORDER BY id ASC`

	rows, err := s.tx.Query(ctx, query, token.String())
	if err != nil {
		return nil, fmt.Errorf("list holders by token: %w", err)
	}
	defer rows.Close()

	var holders []*domain.Holder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}
		holders = append(holders, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}
	return holders, nil
}

func scanHolder(row pgx.Row) (*domain.Holder, error) {
	var (
		h  domain.Holder
		ns numScanner
	)
	if err := row.Scan(&h.ID, &h.Token, &h.User, ns.Int(&h.Balance), &h.UpdatedAt); err != nil {
		return nil, err
	}
	if err := ns.Resolve(); err != nil {
		return nil, err
	}
	return &h, nil
}
