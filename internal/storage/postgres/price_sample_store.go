package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

type priceSampleStore struct {
	tx pgx.Tx
}

// Get retrieves a sample by key. Returns ErrNotFound if not exists.
func (s priceSampleStore) Get(ctx context.Context, key entityid.PriceSampleKey) (*domain.PriceSample, error) {
	return s.get(ctx, "price_samples", key.String())
}

// Put inserts or replaces a sample.
func (s priceSampleStore) Put(ctx context.Context, p *domain.PriceSample) error {
	return s.put(ctx, "price_samples", p)
}

// GetLast retrieves the latest sample. Returns ErrNotFound if none was recorded.
func (s priceSampleStore) GetLast(ctx context.Context) (*domain.PriceSample, error) {
	return s.get(ctx, "last_price_sample", entityid.LastPriceSampleKey)
}

// PutLast replaces the latest sample.
func (s priceSampleStore) PutLast(ctx context.Context, p *domain.PriceSample) error {
	return s.put(ctx, "last_price_sample", p)
}

// table is one of two fixed names, never user input.
func (s priceSampleStore) get(ctx context.Context, table, id string) (*domain.PriceSample, error) {
	query := `SELECT id, price::text, timestamp FROM ` + table + ` WHERE id = $1`

	var (
		p  domain.PriceSample
		ns numScanner
	)
	if err := s.tx.QueryRow(ctx, query, id).Scan(&p.ID, ns.Dec(&p.Price), &p.Timestamp); err != nil {
		return nil, readErr("get price sample", err)
	}
	if err := ns.Resolve(); err != nil {
		return nil, readErr("get price sample", err)
	}
	return &p, nil
}

func (s priceSampleStore) put(ctx context.Context, table string, p *domain.PriceSample) error {
	query := `
		INSERT INTO ` + table + ` (id, price, timestamp)
		VALUES ($1, $2::numeric, $3)
		ON CONFLICT (id) DO UPDATE SET
			price = EXCLUDED.price,
			timestamp = EXCLUDED.timestamp
	`

	if _, err := s.tx.Exec(ctx, query, p.ID, decArg(p.Price), p.Timestamp); err != nil {
		return writeErr("put price sample", err)
	}
	return nil
}
