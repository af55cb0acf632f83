package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/fixedpoint"
)

// AnalyticsStore writes trades and candle snapshots for analytical queries.
//
// Both tables are ReplacingMergeTree, so re-sending a trade or an older candle
// snapshot after a replay collapses on merge instead of double counting.
type AnalyticsStore struct {
	conn *Conn
}

// NewAnalyticsStore creates a new AnalyticsStore.
func NewAnalyticsStore(conn *Conn) *AnalyticsStore {
	return &AnalyticsStore{conn: conn}
}

// InsertTrades appends trades in one batch.
func (s *AnalyticsStore) InsertTrades(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trades (
			id, token, user, tx_hash, log_index, block, amount, amount_in_quote,
			amount_in_stable, price, price_in_stable, fees, side, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			t.ID, t.Token, t.User, t.TxHash, t.LogIndex, t.Block,
			fixedpoint.ToDecimal(t.Amount), t.AmountInQuote, t.AmountInStable,
			t.Price, t.PriceInStable, fixedpoint.ToDecimal(t.Fees),
			t.Side(), time.Unix(t.Timestamp, 0).UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// UpsertCandles writes candle snapshots. A higher version replaces lower ones on merge.
func (s *AnalyticsStore) UpsertCandles(ctx context.Context, candles []*domain.Candle, version uint64) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			id, token, interval, start_time, end_time, open, high, low, close, volume, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			c.ID, c.Token, c.Interval,
			time.Unix(c.StartTime, 0).UTC(), time.Unix(c.EndTime, 0).UTC(),
			c.Open, c.High, c.Low, c.Close, fixedpoint.ToDecimal(c.Volume),
			version,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// TradeStats summarizes a token's trades.
type TradeStats struct {
	Trades      uint64
	Buys        uint64
	QuoteVolume decimal.Decimal
}

// GetTradeStats aggregates the deduplicated trades of token.
func (s *AnalyticsStore) GetTradeStats(ctx context.Context, token string) (*TradeStats, error) {
	query := `
		SELECT
			count() AS trades,
			countIf(side = 'buy') AS buys,
			sum(amount_in_quote) AS quote_volume
		FROM trades FINAL
		WHERE token = ?
	`

	var stats TradeStats
	if err := s.conn.QueryRow(ctx, query, token).Scan(&stats.Trades, &stats.Buys, &stats.QuoteVolume); err != nil {
		return nil, fmt.Errorf("get trade stats: %w", err)
	}
	return &stats, nil
}

// GetCandles returns the latest snapshot of token's candles for one interval ordered by start_time.
func (s *AnalyticsStore) GetCandles(ctx context.Context, token, interval string) ([]*domain.Candle, error) {
	query := `
		SELECT id, token, interval, start_time, end_time, open, high, low, close, volume
		FROM candles FINAL
		WHERE token = ? AND interval = ?
		ORDER BY start_time ASC
	`

	rows, err := s.conn.Query(ctx, query, token, interval)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	var result []*domain.Candle
	for rows.Next() {
		var (
			c          domain.Candle
			start, end time.Time
			volume     decimal.Decimal
		)
		if err := rows.Scan(&c.ID, &c.Token, &c.Interval, &start, &end, &c.Open, &c.High, &c.Low, &c.Close, &volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.StartTime = start.Unix()
		c.EndTime = end.Unix()
		c.Volume = fixedpoint.FromDecimal(volume)
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}
	return result, nil
}

// Version orders snapshots by chain position. Transaction and log indexes
// above 4095 wrap within a block.
func Version(pos domain.Position) uint64 {
	return pos.Block<<24 | (pos.TxIndex&0xfff)<<12 | pos.LogIndex&0xfff
}
