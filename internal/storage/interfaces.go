package storage

import (
	"context"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

// EntityStore persists derived entities. All mutations attributed to one event
// are made through a single Tx and land together or not at all.
type EntityStore interface {
	// Update runs fn in a unit of work. Writes made through tx are committed
	// only if fn returns nil; otherwise none of them become visible.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn against committed state. Writes fail with ErrReadOnly
	// (or the backend's read-only error).
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes per-entity stores scoped to one unit of work.
type Tx interface {
	Users() UserStore
	Tokens() TokenStore
	Holders() HolderStore
	Trades() TradeStore
	Candles() CandleStore
	Platforms() PlatformStore
	PriceSamples() PriceSampleStore
	Curves() CurveStore
	Insiders() InsiderStore
	Cursor() CursorStore
}

// UserStore provides access to users.
type UserStore interface {
	// Get retrieves a user. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key entityid.UserKey) (*domain.User, error)

	// Put inserts or replaces a user.
	Put(ctx context.Context, u *domain.User) error
}

// TokenStore provides access to tokens.
type TokenStore interface {
	// Get retrieves a token. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key entityid.TokenKey) (*domain.Token, error)

	// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, t *domain.Token) error

	// Put replaces an existing token or inserts it.
	Put(ctx context.Context, t *domain.Token) error

	// List returns all tokens ordered by (created_at, id).
	List(ctx context.Context) ([]*domain.Token, error)
}

// HolderStore provides access to holder balances.
type HolderStore interface {
	// Get retrieves a holder. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key entityid.HolderKey) (*domain.Holder, error)

	// Put inserts or replaces a holder.
	Put(ctx context.Context, h *domain.Holder) error

	// Delete removes a holder. Deleting a missing holder is not an error.
	Delete(ctx context.Context, key entityid.HolderKey) error

	// ListByToken returns all holders of a token ordered by id.
	ListByToken(ctx context.Context, token entityid.TokenKey) ([]*domain.Holder, error)
}

// TradeStore provides access to the append-only trade ledger.
type TradeStore interface {
	// Get retrieves a trade. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key entityid.TradeKey) (*domain.Trade, error)

	// Insert appends a trade. Returns ErrDuplicateKey if (token, tx_hash, log_index) exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// ListByToken returns a token's trades ordered by (timestamp, log_index).
	ListByToken(ctx context.Context, token entityid.TokenKey) ([]*domain.Trade, error)
}

// CandleStore provides access to OHLCV candles.
type CandleStore interface {
	// Get retrieves a candle. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key entityid.CandleKey) (*domain.Candle, error)

	// Put inserts or replaces a candle.
	Put(ctx context.Context, c *domain.Candle) error

	// ListByToken returns a token's candles for one interval ordered by start_time.
	ListByToken(ctx context.Context, token entityid.TokenKey, intervalName string) ([]*domain.Candle, error)
}

// PlatformStore provides access to the platform singleton.
type PlatformStore interface {
	// Get retrieves the platform. Returns ErrNotFound before the first event.
	Get(ctx context.Context) (*domain.Platform, error)

	// Put inserts or replaces the platform.
	Put(ctx context.Context, p *domain.Platform) error
}

// PriceSampleStore provides access to reference price samples.
type PriceSampleStore interface {
	// Get retrieves a sample by key. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key entityid.PriceSampleKey) (*domain.PriceSample, error)

	// Put inserts or replaces a sample.
	Put(ctx context.Context, s *domain.PriceSample) error

	// GetLast retrieves the latest sample. Returns ErrNotFound if none was recorded.
	GetLast(ctx context.Context) (*domain.PriceSample, error)

	// PutLast replaces the latest sample.
	PutLast(ctx context.Context, s *domain.PriceSample) error
}

// CurveStore provides access to bonding curves.
type CurveStore interface {
	// Get retrieves a curve. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key entityid.CurveKey) (*domain.Curve, error)

	// Put inserts or replaces a curve.
	Put(ctx context.Context, c *domain.Curve) error
}

// InsiderStore provides access to insider records.
type InsiderStore interface {
	// Get retrieves an insider record. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key entityid.InsiderKey) (*domain.Insider, error)

	// Put inserts or replaces an insider record.
	Put(ctx context.Context, i *domain.Insider) error
}

// CursorStore persists the position of the last applied event.
// This enables resumption after restarts without re-applying events.
type CursorStore interface {
	// Get returns the last applied position. Returns ErrNotFound if nothing was applied yet.
	Get(ctx context.Context) (*domain.Position, error)

	// Put records the last applied position.
	Put(ctx context.Context, pos domain.Position) error
}

// RawEventStore is the append-only log of decoded events as delivered.
type RawEventStore interface {
	// Insert adds an event. Returns ErrDuplicateKey if its event id exists.
	Insert(ctx context.Context, ev *domain.Event) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByBlockRange returns events within blocks [from, to] (inclusive),
	// ordered by (block, tx_index, log_index).
	GetByBlockRange(ctx context.Context, from, to uint64) ([]*domain.Event, error)

	// GetAll returns every event ordered by (block, tx_index, log_index).
	GetAll(ctx context.Context) ([]*domain.Event, error)
}
