package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505" // unique_violation
	pgErrReadOnlyTransaction = "25006" // read_only_sql_transaction
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	return hasCode(err, pgErrUniqueViolation)
}

// isReadOnlyError checks if error is a write attempted in a read-only transaction.
func isReadOnlyError(err error) bool {
	return hasCode(err, pgErrReadOnlyTransaction)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}

	// Use pgconn.PgError for reliable error code detection
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Amounts and prices live in NUMERIC columns and cross the wire as text,
// so no precision is lost in either direction.

func numArg(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decArg(d decimal.Decimal) string {
	return d.String()
}

func parseNum(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse numeric %q", s)
	}
	return v, nil
}

func parseDec(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// numScanner collects text-scanned NUMERIC columns and converts them after Scan.
type numScanner struct {
	ints []*intTarget
	decs []*decTarget
}

type intTarget struct {
	raw string
	dst **big.Int
}

type decTarget struct {
	raw string
	dst *decimal.Decimal
}

func (n *numScanner) Int(dst **big.Int) *string {
	t := &intTarget{dst: dst}
	n.ints = append(n.ints, t)
	return &t.raw
}

func (n *numScanner) Dec(dst *decimal.Decimal) *string {
	t := &decTarget{dst: dst}
	n.decs = append(n.decs, t)
	return &t.raw
}

func (n *numScanner) Resolve() error {
	for _, t := range n.ints {
		v, err := parseNum(t.raw)
		if err != nil {
			return err
		}
		*t.dst = v
	}
	for _, t := range n.decs {
		d, err := parseDec(t.raw)
		if err != nil {
			return err
		}
		*t.dst = d
	}
	return nil
}
