package postgres

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

type curveStore struct {
	tx pgx.Tx
}

// Get retrieves a curve. Returns ErrNotFound if not exists.
func (s curveStore) Get(ctx context.Context, key entityid.CurveKey) (*domain.Curve, error) {
	query := `SELECT id, token, points::text[], updated_at FROM curves WHERE id = $1`

	var (
		c   domain.Curve
		raw []string
	)
	if err := s.tx.QueryRow(ctx, query, key.String()).Scan(&c.ID, &c.Token, &raw, &c.UpdatedAt); err != nil {
		return nil, readErr("get curve", err)
	}

	c.Points = make([]*big.Int, len(raw))
	for i, r := range raw {
		v, err := parseNum(r)
		if err != nil {
			return nil, readErr("get curve", err)
		}
		c.Points[i] = v
	}
	return &c, nil
}

// Put inserts or replaces a curve.
func (s curveStore) Put(ctx context.Context, c *domain.Curve) error {
	query := `
		INSERT INTO curves (id, token, points, updated_at)
		VALUES ($1, $2, $3::numeric[], $4)
		ON CONFLICT (id) DO UPDATE SET
			points = EXCLUDED.points,
			updated_at = EXCLUDED.updated_at
	`

	points := make([]string, len(c.Points))
	for i, p := range c.Points {
		points[i] = numArg(p)
	}

	if _, err := s.tx.Exec(ctx, query, c.ID, c.Token, points, c.UpdatedAt); err != nil {
		return writeErr("put curve", err)
	}
	return nil
}

type insiderStore struct {
	tx pgx.Tx
}

// Get retrieves an insider record. Returns ErrNotFound if not exists.
func (s insiderStore) Get(ctx context.Context, key entityid.InsiderKey) (*domain.Insider, error) {
	query := `SELECT id, token, user_id, added_at, removed_at FROM insiders WHERE id = $1`

	var i domain.Insider
	if err := s.tx.QueryRow(ctx, query, key.String()).Scan(&i.ID, &i.Token, &i.User, &i.AddedAt, &i.RemovedAt); err != nil {
		return nil, readErr("get insider", err)
	}
	return &i, nil
}

// Put inserts or replaces an insider record.
func (s insiderStore) Put(ctx context.Context, i *domain.Insider) error {
	query := `
		INSERT INTO insiders (id, token, user_id, added_at, removed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			added_at = EXCLUDED.added_at,
			removed_at = EXCLUDED.removed_at
	`

	if _, err := s.tx.Exec(ctx, query, i.ID, i.Token, i.User, i.AddedAt, i.RemovedAt); err != nil {
		return writeErr("put insider", err)
	}
	return nil
}
