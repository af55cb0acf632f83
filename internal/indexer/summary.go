package indexer

import (
	"context"
	"errors"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/interval"
	"rodeo-indexer/internal/storage"
)

// Summary counts the derived entities in a store.
type Summary struct {
	Tokens      int
	Trades      int
	Candles     int
	Holders     int
	TokensOnDex int
	Platform    *domain.Platform
	Cursor      *domain.Position
}

// Summarize walks every token in store and counts what it owns.
func Summarize(ctx context.Context, store storage.EntityStore) (*Summary, error) {
	s := &Summary{}
	err := store.View(ctx, func(tx storage.Tx) error {
		p, err := tx.Platforms().Get(ctx)
		switch {
		case err == nil:
			s.Platform = p
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		cur, err := tx.Cursor().Get(ctx)
		switch {
		case err == nil:
			s.Cursor = cur
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		tokens, err := tx.Tokens().List(ctx)
		if err != nil {
			return err
		}
		s.Tokens = len(tokens)

		for _, tok := range tokens {
			key := entityid.Token(tok.ID)
			if tok.OnDex {
				s.TokensOnDex++
			}

			trades, err := tx.Trades().ListByToken(ctx, key)
			if err != nil {
				return err
			}
			s.Trades += len(trades)

			for _, iv := range interval.All() {
				candles, err := tx.Candles().ListByToken(ctx, key, iv.Name)
				if err != nil {
					return err
				}
				s.Candles += len(candles)
			}

			holders, err := tx.Holders().ListByToken(ctx, key)
			if err != nil {
				return err
			}
			s.Holders += len(holders)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
