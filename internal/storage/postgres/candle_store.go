package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

type candleStore struct {
	tx pgx.Tx
}

const candleColumns = `
	id, token, interval, start_time, end_time,
	open::text, high::text, low::text, close::text, volume::text
`

// Get retrieves a candle. Returns ErrNotFound if not exists.
func (s candleStore) Get(ctx context.Context, key entityid.CandleKey) (*domain.Candle, error) {
	query := `SELECT ` + candleColumns + ` FROM candles WHERE id = $1`

	c, err := scanCandle(s.tx.QueryRow(ctx, query, key.String()))
	if err != nil {
		return nil, readErr("get candle", err)
	}
	return c, nil
}

// Put inserts or replaces a candle. end_time is fixed by the first insert.
func (s candleStore) Put(ctx context.Context, c *domain.Candle) error {
	query := `
		INSERT INTO candles (id, token, interval, start_time, end_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric)
		ON CONFLICT (id) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	_, err := s.tx.Exec(ctx, query,
		c.ID, c.Token, c.Interval, c.StartTime, c.EndTime,
		decArg(c.Open), decArg(c.High), decArg(c.Low), decArg(c.Close), numArg(c.Volume),
	)
	if err != nil {
		return writeErr("put candle", err)
	}
	return nil
}

// ListByToken returns a token's candles for one interval ordered by start_time.
func (s candleStore) ListByToken(ctx context.Context, token entityid.TokenKey, intervalName string) ([]*domain.Candle, error) {
	query := `SELECT ` + candleColumns + ` FROM candles WHERE token = $1 AND interval = $2 ORDER BY start_time ASC`

	rows, err := s.tx.Query(ctx, query, token.String(), intervalName)
	if err != nil {
		return nil, fmt.Errorf("list candles by token: %w", err)
	}
	defer rows.Close()

	var candles []*domain.Candle
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	return candles, nil
}

func scanCandle(row pgx.Row) (*domain.Candle, error) {
	var (
		c  domain.Candle
		ns numScanner
	)
	err := row.Scan(
		&c.ID, &c.Token, &c.Interval, &c.StartTime, &c.EndTime,
		ns.Dec(&c.Open), ns.Dec(&c.High), ns.Dec(&c.Low), ns.Dec(&c.Close), ns.Int(&c.Volume),
	)
	if err != nil {
		return nil, err
	}
	if err := ns.Resolve(); err != nil {
		return nil, err
	}
	return &c, nil
}
