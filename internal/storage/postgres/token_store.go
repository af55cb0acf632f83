package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

type tokenStore struct {
	tx pgx.Tx
}

const tokenColumns = `
	id, creator, name, symbol, name_lower, symbol_lower, created_at, data,
	total_supply::text, last_price::text, last_price_update, liquidity::text, total_token_liquidity::text,
	on_dex, on_dex_since, reached_one_million, reached_one_million_at,
	reached_halfway_to_dex, reached_halfway_to_dex_at,
	total_token_sold::text, total_quote_spent::text, total_trades, total_holders
`

// Get retrieves a token. Returns ErrNotFound if not exists.
func (s tokenStore) Get(ctx context.Context, key entityid.TokenKey) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`

	t, err := scanToken(s.tx.QueryRow(ctx, query, key.String()))
	if err != nil {
		return nil, readErr("get token", err)
	}
	return t, nil
}

// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
func (s tokenStore) Insert(ctx context.Context, t *domain.Token) error {
	_, err := s.tx.Exec(ctx, tokenInsert, tokenArgs(t)...)
	if err != nil {
		return writeErr("insert token", err)
	}
	return nil
}

// Put replaces an existing token or inserts it.
func (s tokenStore) Put(ctx context.Context, t *domain.Token) error {
	query := tokenInsert + `
		ON CONFLICT (id) DO UPDATE SET
			last_price = EXCLUDED.last_price,
			last_price_update = EXCLUDED.last_price_update,
			liquidity = EXCLUDED.liquidity,
			total_token_liquidity = EXCLUDED.total_token_liquidity,
			on_dex = EXCLUDED.on_dex,
			on_dex_since = EXCLUDED.on_dex_since,
			reached_one_million = EXCLUDED.reached_one_million,
			reached_one_million_at = EXCLUDED.reached_one_million_at,
			reached_halfway_to_dex = EXCLUDED.reached_halfway_to_dex,
			reached_halfway_to_dex_at = EXCLUDED.reached_halfway_to_dex_at,
			total_token_sold = EXCLUDED.total_token_sold,
			total_quote_spent = EXCLUDED.total_quote_spent,
			total_trades = EXCLUDED.total_trades,
			total_holders = EXCLUDED.total_holders
	`

	_, err := s.tx.Exec(ctx, query, tokenArgs(t)...)
	if err != nil {
		return writeErr("put token", err)
	}
	return nil
}

// List returns all tokens ordered by (created_at, id).
func (s tokenStore) List(ctx context.Context) ([]*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens ORDER BY created_at ASC, id ASC`

	rows, err := s.tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

const tokenInsert = `
	INSERT INTO tokens (
		id, creator, name, symbol, name_lower, symbol_lower, created_at, data,
		total_supply, last_price, last_price_update, liquidity, total_token_liquidity,
		on_dex, on_dex_since, reached_one_million, reached_one_million_at,
		reached_halfway_to_dex, reached_halfway_to_dex_at,
		total_token_sold, total_quote_spent, total_trades, total_holders
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8,
		$9::numeric, $10::numeric, $11, $12::numeric, $13::numeric,
		$14, $15, $16, $17,
		$18, $19,
		$20::numeric, $21::numeric, $22, $23
	)
`

func tokenArgs(t *domain.Token) []any {
	return []any{
		t.ID, t.Creator, t.Name, t.Symbol, t.NameLower, t.SymbolLower, t.CreatedAt, t.Data,
		numArg(t.TotalSupply), decArg(t.LastPrice), t.LastPriceUpdate, numArg(t.Liquidity), numArg(t.TotalTokenLiquidity),
		t.OnDex, t.OnDexSince, t.ReachedOneMillion, t.ReachedOneMillionAt,
		t.ReachedHalfwayToDex, t.ReachedHalfwayToDexAt,
		numArg(t.TotalTokenSold), numArg(t.TotalQuoteSpent), t.TotalTrades, t.TotalHolders,
	}
}

// scanToken scans one row selected with tokenColumns.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var (
		t  domain.Token
		ns numScanner
	)

	err := row.Scan(
		&t.ID, &t.Creator, &t.Name, &t.Symbol, &t.NameLower, &t.SymbolLower, &t.CreatedAt, &t.Data,
		ns.Int(&t.TotalSupply), ns.Dec(&t.LastPrice), &t.LastPriceUpdate, ns.Int(&t.Liquidity), ns.Int(&t.TotalTokenLiquidity),
		&t.OnDex, &t.OnDexSince, &t.ReachedOneMillion, &t.ReachedOneMillionAt,
		&t.ReachedHalfwayToDex, &t.ReachedHalfwayToDexAt,
		ns.Int(&t.TotalTokenSold), ns.Int(&t.TotalQuoteSpent), &t.TotalTrades, &t.TotalHolders,
	)
	if err != nil {
		return nil, err
	}
	if err := ns.Resolve(); err != nil {
		return nil, err
	}
	return &t, nil
}
