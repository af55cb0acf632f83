package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/storage"
)

// EntityStore implements storage.EntityStore using PostgreSQL.
// Each unit of work runs in its own database transaction.
type EntityStore struct {
	pool *Pool
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(pool *Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

// Compile-time interface check.
var (
	_ storage.EntityStore = (*EntityStore)(nil)
	_ storage.Tx          = (*pgTx)(nil)
)

// Update runs fn inside a read-write transaction, committing only if fn succeeds.
func (s *EntityStore) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// View runs fn inside a read-only transaction.
func (s *EntityStore) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (s *EntityStore) run(ctx context.Context, opts pgx.TxOptions, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// pgTx scopes the per-entity stores to one database transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Users() storage.UserStore               { return userStore{t.tx} }
func (t *pgTx) Tokens() storage.TokenStore             { return tokenStore{t.tx} }
func (t *pgTx) Holders() storage.HolderStore           { return holderStore{t.tx} }
func (t *pgTx) Trades() storage.TradeStore             { return tradeStore{t.tx} }
func (t *pgTx) Candles() storage.CandleStore           { return candleStore{t.tx} }
func (t *pgTx) Platforms() storage.PlatformStore       { return platformStore{t.tx} }
func (t *pgTx) PriceSamples() storage.PriceSampleStore { return priceSampleStore{t.tx} }
func (t *pgTx) Curves() storage.CurveStore             { return curveStore{t.tx} }
func (t *pgTx) Insiders() storage.InsiderStore         { return insiderStore{t.tx} }
func (t *pgTx) Cursor() storage.CursorStore            { return cursorStore{t.tx} }

// writeErr maps driver errors of write statements onto storage errors.
func writeErr(op string, err error) error {
	switch {
	case isDuplicateKeyError(err):
		return storage.ErrDuplicateKey
	case isReadOnlyError(err):
		return storage.ErrReadOnly
	}
	return fmt.Errorf("%s: %w", op, err)
}

// readErr maps driver errors of single-row reads onto storage errors.
func readErr(op string, err error) error {
	if isNotFoundError(err) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
