package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/idhash"
	"rodeo-indexer/internal/storage"
)

// RawEventStore implements storage.RawEventStore using PostgreSQL.
// The full event is kept as JSONB next to its ordering columns.
type RawEventStore struct {
	pool *Pool
}

// NewRawEventStore creates a new RawEventStore.
func NewRawEventStore(pool *Pool) *RawEventStore {
	return &RawEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawEventStore = (*RawEventStore)(nil)

const rawEventInsert = `
	INSERT INTO raw_events (
		event_id, kind, block, tx_index, log_index, tx_hash, source, timestamp, payload
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Insert adds a new event. Returns ErrDuplicateKey if its event id exists.
func (s *RawEventStore) Insert(ctx context.Context, ev *domain.Event) error {
	args, err := rawEventArgs(ev)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, rawEventInsert, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert raw event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *RawEventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ev := range events {
		args, err := rawEventArgs(ev)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, rawEventInsert, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert raw event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByBlockRange returns events within blocks [from, to] (inclusive) in chain order.
func (s *RawEventStore) GetByBlockRange(ctx context.Context, from, to uint64) ([]*domain.Event, error) {
	query := `
		SELECT payload
		FROM raw_events
		WHERE block >= $1 AND block <= $2
		ORDER BY block ASC, tx_index ASC, log_index ASC, kind ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("get raw events by block range: %w", err)
	}
	defer rows.Close()

	return scanRawEvents(rows)
}

// GetAll returns every event in chain order.
func (s *RawEventStore) GetAll(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT payload
		FROM raw_events
		ORDER BY block ASC, tx_index ASC, log_index ASC, kind ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all raw events: %w", err)
	}
	defer rows.Close()

	return scanRawEvents(rows)
}

func rawEventArgs(ev *domain.Event) ([]any, error) {
	if ev == nil || ev.TxHash == "" {
		return nil, storage.ErrInvalidInput
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode raw event: %w", err)
	}
	return []any{
		idhash.EventID(ev),
		string(ev.Kind),
		int64(ev.Block),
		int64(ev.TxIndex),
		int64(ev.LogIndex),
		ev.TxHash,
		ev.Source,
		ev.Timestamp,
		payload,
	}, nil
}

// scanRawEvents decodes the payload column of each row.
func scanRawEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan raw event row: %w", err)
		}

		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode raw event: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw event rows: %w", err)
	}

	return events, nil
}
