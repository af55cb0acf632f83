package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

type tradeStore struct {
	tx pgx.Tx
}

const tradeColumns = `
	id, token, user_id, tx_hash, log_index, block, amount::text,
	amount_in_quote::text, amount_in_stable::text, price::text, price_in_stable::text,
	fees::text, is_buy, timestamp
`

// Get retrieves a trade. Returns ErrNotFound if not exists.
func (s tradeStore) Get(ctx context.Context, key entityid.TradeKey) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`

	t, err := scanTrade(s.tx.QueryRow(ctx, query, key.String()))
	if err != nil {
		return nil, readErr("get trade", err)
	}
	return t, nil
}

// Insert appends a trade. Returns ErrDuplicateKey if (token, tx_hash, log_index) exists.
func (s tradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	query := `
		INSERT INTO trades (
			id, token, user_id, tx_hash, log_index, block, amount,
			amount_in_quote, amount_in_stable, price, price_in_stable,
			fees, is_buy, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7::numeric,
			$8::numeric, $9::numeric, $10::numeric, $11::numeric,
			$12::numeric, $13, $14
		)
	`

	_, err := s.tx.Exec(ctx, query,
		t.ID,
		t.Token,
		t.User,
		t.TxHash,
		int64(t.LogIndex),
		int64(t.Block),
		numArg(t.Amount),
		decArg(t.AmountInQuote),
		decArg(t.AmountInStable),
		decArg(t.Price),
		decArg(t.PriceInStable),
		numArg(t.Fees),
		t.IsBuy,
		t.Timestamp,
	)
	if err != nil {
		return writeErr("insert trade", err)
	}
	return nil
}

// ListByToken returns a token's trades ordered by (timestamp, log_index).
func (s tradeStore) ListByToken(ctx context.Context, token entityid.TokenKey) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE token = $1 ORDER BY timestamp ASC, log_index ASC`

	rows, err := s.tx.Query(ctx, query, token.String())
	if err != nil {
		return nil, fmt.Errorf("list trades by token: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		t                  domain.Trade
		ns                 numScanner
		logIndex, blockNum int64
	)

	err := row.Scan(
		&t.ID, &t.Token, &t.User, &t.TxHash, &logIndex, &blockNum, ns.Int(&t.Amount),
		ns.Dec(&t.AmountInQuote), ns.Dec(&t.AmountInStable), ns.Dec(&t.Price), ns.Dec(&t.PriceInStable),
		ns.Int(&t.Fees), &t.IsBuy, &t.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if err := ns.Resolve(); err != nil {
		return nil, err
	}
	t.LogIndex = uint64(logIndex)
	t.Block = uint64(blockNum)
	return &t, nil
}
