package memory

import (
	"context"
	"sort"
	"sync"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/storage"
)

const cursorKey = "cursor"

// EntityStore is an in-memory implementation of storage.EntityStore.
// Units of work are serialized by a single lock and committed all at once.
type EntityStore struct {
	mu sync.RWMutex

	users        *table[*domain.User]
	tokens       *table[*domain.Token]
	holders      *table[*domain.Holder]
	trades       *table[*domain.Trade]
	candles      *table[*domain.Candle]
	platforms    *table[*domain.Platform]
	priceSamples *table[*domain.PriceSample]
	lastSample   *table[*domain.PriceSample]
	curves       *table[*domain.Curve]
	insiders     *table[*domain.Insider]
	cursor       *table[*domain.Position]
}

// NewEntityStore creates an empty in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		users:        newTable((*domain.User).Clone),
		tokens:       newTable((*domain.Token).Clone),
		holders:      newTable((*domain.Holder).Clone),
		trades:       newTable((*domain.Trade).Clone),
		candles:      newTable((*domain.Candle).Clone),
		platforms:    newTable((*domain.Platform).Clone),
		priceSamples: newTable((*domain.PriceSample).Clone),
		lastSample:   newTable((*domain.PriceSample).Clone),
		curves:       newTable((*domain.Curve).Clone),
		insiders:     newTable((*domain.Insider).Clone),
		cursor: newTable(func(p *domain.Position) *domain.Position {
			c := *p
			return &c
		}),
	}
}

// Update runs fn in a unit of work and commits its writes only if fn succeeds.
func (s *EntityStore) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.begin(false)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// View runs fn against committed state. Writes fail with storage.ErrReadOnly.
func (s *EntityStore) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(s.begin(true))
}

func (s *EntityStore) begin(readOnly bool) *memTx {
	return &memTx{
		readOnly:     readOnly,
		users:        stage(s.users),
		tokens:       stage(s.tokens),
		holders:      stage(s.holders),
		trades:       stage(s.trades),
		candles:      stage(s.candles),
		platforms:    stage(s.platforms),
		priceSamples: stage(s.priceSamples),
		lastSample:   stage(s.lastSample),
		curves:       stage(s.curves),
		insiders:     stage(s.insiders),
		cursor:       stage(s.cursor),
	}
}

type memTx struct {
	readOnly bool

	users        *staged[*domain.User]
	tokens       *staged[*domain.Token]
	holders      *staged[*domain.Holder]
	trades       *staged[*domain.Trade]
	candles      *staged[*domain.Candle]
	platforms    *staged[*domain.Platform]
	priceSamples *staged[*domain.PriceSample]
	lastSample   *staged[*domain.PriceSample]
	curves       *staged[*domain.Curve]
	insiders     *staged[*domain.Insider]
	cursor       *staged[*domain.Position]
}

func (tx *memTx) commit() {
	tx.users.commit()
	tx.tokens.commit()
	tx.holders.commit()
	tx.trades.commit()
	tx.candles.commit()
	tx.platforms.commit()
	tx.priceSamples.commit()
	tx.lastSample.commit()
	tx.curves.commit()
	tx.insiders.commit()
	tx.cursor.commit()
}

func (tx *memTx) writable() error {
	if tx.readOnly {
		return storage.ErrReadOnly
	}
	return nil
}

func (tx *memTx) Users() storage.UserStore               { return userStore{tx} }
func (tx *memTx) Tokens() storage.TokenStore             { return tokenStore{tx} }
func (tx *memTx) Holders() storage.HolderStore           { return holderStore{tx} }
func (tx *memTx) Trades() storage.TradeStore             { return tradeStore{tx} }
func (tx *memTx) Candles() storage.CandleStore           { return candleStore{tx} }
func (tx *memTx) Platforms() storage.PlatformStore       { return platformStore{tx} }
func (tx *memTx) PriceSamples() storage.PriceSampleStore { return priceSampleStore{tx} }
func (tx *memTx) Curves() storage.CurveStore             { return curveStore{tx} }
func (tx *memTx) Insiders() storage.InsiderStore         { return insiderStore{tx} }
func (tx *memTx) Cursor() storage.CursorStore            { return cursorStore{tx} }

type userStore struct{ tx *memTx }

func (s userStore) Get(_ context.Context, key entityid.UserKey) (*domain.User, error) {
	if u, ok := s.tx.users.get(key.String()); ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (s userStore) Put(_ context.Context, u *domain.User) error {
	if u == nil || u.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.users.put(u.ID, u)
	return nil
}

type tokenStore struct{ tx *memTx }

func (s tokenStore) Get(_ context.Context, key entityid.TokenKey) (*domain.Token, error) {
	if t, ok := s.tx.tokens.get(key.String()); ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (s tokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	if s.tx.tokens.exists(t.ID) {
		return storage.ErrDuplicateKey
	}
	s.tx.tokens.put(t.ID, t)
	return nil
}

func (s tokenStore) Put(_ context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.tokens.put(t.ID, t)
	return nil
}

func (s tokenStore) List(_ context.Context) ([]*domain.Token, error) {
	result := s.tx.tokens.list(func(*domain.Token) bool { return true })
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

type holderStore struct{ tx *memTx }

func (s holderStore) Get(_ context.Context, key entityid.HolderKey) (*domain.Holder, error) {
	if h, ok := s.tx.holders.get(key.String()); ok {
		return h, nil
	}
	return nil, storage.ErrNotFound
}

func (s holderStore) Put(_ context.Context, h *domain.Holder) error {
	if h == nil || h.ID == "" {
		return storage.ErrInvalidInput
	}
	if h.Balance != nil && h.Balance.Sign() < 0 {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.holders.put(h.ID, h)
	return nil
}

func (s holderStore) Delete(_ context.Context, key entityid.HolderKey) error {
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.holders.del(key.String())
	return nil
}

func (s holderStore) ListByToken(_ context.Context, token entityid.TokenKey) ([]*domain.Holder, error) {
	return s.tx.holders.list(func(h *domain.Holder) bool { return h.Token == token.String() }), nil
}

type tradeStore struct{ tx *memTx }

func (s tradeStore) Get(_ context.Context, key entityid.TradeKey) (*domain.Trade, error) {
	if t, ok := s.tx.trades.get(key.String()); ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (s tradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	if s.tx.trades.exists(t.ID) {
		return storage.ErrDuplicateKey
	}
	s.tx.trades.put(t.ID, t)
	return nil
}

func (s tradeStore) ListByToken(_ context.Context, token entityid.TokenKey) ([]*domain.Trade, error) {
	result := s.tx.trades.list(func(t *domain.Trade) bool { return t.Token == token.String() })
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].LogIndex < result[j].LogIndex
	})
	return result, nil
}

type candleStore struct{ tx *memTx }

func (s candleStore) Get(_ context.Context, key entityid.CandleKey) (*domain.Candle, error) {
	if c, ok := s.tx.candles.get(key.String()); ok {
		return c, nil
	}
	return nil, storage.ErrNotFound
}

func (s candleStore) Put(_ context.Context, c *domain.Candle) error {
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.candles.put(c.ID, c)
	return nil
}

func (s candleStore) ListByToken(_ context.Context, token entityid.TokenKey, intervalName string) ([]*domain.Candle, error) {
	result := s.tx.candles.list(func(c *domain.Candle) bool {
		return c.Token == token.String() && c.Interval == intervalName
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

type platformStore struct{ tx *memTx }

func (s platformStore) Get(_ context.Context) (*domain.Platform, error) {
	if p, ok := s.tx.platforms.get(entityid.PlatformKey); ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (s platformStore) Put(_ context.Context, p *domain.Platform) error {
	if p == nil || p.ID != entityid.PlatformKey {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.platforms.put(p.ID, p)
	return nil
}

type priceSampleStore struct{ tx *memTx }

func (s priceSampleStore) Get(_ context.Context, key entityid.PriceSampleKey) (*domain.PriceSample, error) {
	if p, ok := s.tx.priceSamples.get(key.String()); ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (s priceSampleStore) Put(_ context.Context, p *domain.PriceSample) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.priceSamples.put(p.ID, p)
	return nil
}

func (s priceSampleStore) GetLast(_ context.Context) (*domain.PriceSample, error) {
	if p, ok := s.tx.lastSample.get(entityid.LastPriceSampleKey); ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (s priceSampleStore) PutLast(_ context.Context, p *domain.PriceSample) error {
	if p == nil || p.ID != entityid.LastPriceSampleKey {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.lastSample.put(p.ID, p)
	return nil
}

type curveStore struct{ tx *memTx }

func (s curveStore) Get(_ context.Context, key entityid.CurveKey) (*domain.Curve, error) {
	if c, ok := s.tx.curves.get(key.String()); ok {
		return c, nil
	}
	return nil, storage.ErrNotFound
}

func (s curveStore) Put(_ context.Context, c *domain.Curve) error {
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.curves.put(c.ID, c)
	return nil
}

type insiderStore struct{ tx *memTx }

func (s insiderStore) Get(_ context.Context, key entityid.InsiderKey) (*domain.Insider, error) {
	if i, ok := s.tx.insiders.get(key.String()); ok {
		return i, nil
	}
	return nil, storage.ErrNotFound
}

func (s insiderStore) Put(_ context.Context, i *domain.Insider) error {
	if i == nil || i.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.insiders.put(i.ID, i)
	return nil
}

type cursorStore struct{ tx *memTx }

func (s cursorStore) Get(_ context.Context) (*domain.Position, error) {
	if p, ok := s.tx.cursor.get(cursorKey); ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (s cursorStore) Put(_ context.Context, pos domain.Position) error {
	if err := s.tx.writable(); err != nil {
		return err
	}
	s.tx.cursor.put(cursorKey, &pos)
	return nil
}

var (
	_ storage.EntityStore = (*EntityStore)(nil)
	_ storage.Tx          = (*memTx)(nil)
)
