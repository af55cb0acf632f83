package postgres

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/fixedpoint"
	"rodeo-indexer/internal/storage"
)

const (
	tokenA = "0x00000000000000000000000000000000000000aa"
	userA  = "0x00000000000000000000000000000000000000b1"
	userB  = "0x00000000000000000000000000000000000000b2"
)

func seedToken(t *testing.T, store *EntityStore) {
	t.Helper()
	ctx := context.Background()
	update(t, store, func(tx storage.Tx) error {
		// Token first: the creator foreign key is only checked at commit.
		err := tx.Tokens().Insert(ctx, &domain.Token{
			ID: tokenA, Creator: userA, Name: "Rodeo", Symbol: "RDO",
			NameLower: "rodeo", SymbolLower: "rdo", CreatedAt: 100,
			TotalSupply: fixedpoint.Units(1_000_000), LastPriceUpdate: 100,
		})
		if err != nil {
			return err
		}
		return tx.Users().Put(ctx, &domain.User{ID: userA, TotalTokensCreated: 1})
	})
}

func TestEntityStore_TokenRoundTrip(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)
	seedToken(t, store)

	update(t, store, func(tx storage.Tx) error {
		tok, err := tx.Tokens().Get(ctx, tokenA)
		if err != nil {
			return err
		}
		tok.LastPrice = decimal.RequireFromString("0.000000000123456789")
		tok.Liquidity = fixedpoint.MustParse("123456789012345678901234567890")
		tok.ReachedHalfwayToDex = true
		tok.ReachedHalfwayToDexAt = 200
		tok.TotalTrades = 3
		return tx.Tokens().Put(ctx, tok)
	})

	err := store.View(ctx, func(tx storage.Tx) error {
		tok, err := tx.Tokens().Get(ctx, tokenA)
		require.NoError(t, err)
		assert.Equal(t, "Rodeo", tok.Name)
		assert.Equal(t, userA, tok.Creator)
		assert.Equal(t, fixedpoint.Units(1_000_000).String(), tok.TotalSupply.String())
		assert.Equal(t, "123456789012345678901234567890", tok.Liquidity.String())
		assert.True(t, tok.LastPrice.Equal(decimal.RequireFromString("0.000000000123456789")))
		assert.True(t, tok.ReachedHalfwayToDex)
		assert.Equal(t, int64(200), tok.ReachedHalfwayToDexAt)
		assert.Equal(t, int64(3), tok.TotalTrades)

		list, err := tx.Tokens().List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestEntityStore_InsertDuplicateToken(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)
	seedToken(t, store)

	err := store.Update(ctx, func(tx storage.Tx) error {
		return tx.Tokens().Insert(ctx, &domain.Token{
			ID: tokenA, Creator: userA, TotalSupply: big.NewInt(1),
		})
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEntityStore_RollbackOnError(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)
	boom := errors.New("boom")

	err := store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Users().Put(ctx, &domain.User{ID: userB}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.View(ctx, func(tx storage.Tx) error {
		_, err := tx.Users().Get(ctx, userB)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEntityStore_ViewIsReadOnly(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)

	err := store.View(ctx, func(tx storage.Tx) error {
		return tx.Users().Put(ctx, &domain.User{ID: userA})
	})
	assert.ErrorIs(t, err, storage.ErrReadOnly)
}

func TestEntityStore_DeferredForeignKeys(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)
	seedToken(t, store)

	// Holder and trade rows precede the user row they reference.
	update(t, store, func(tx storage.Tx) error {
		h := &domain.Holder{
			ID: entityid.Holder(tokenA, userB).String(), Token: tokenA, User: userB,
			Balance: fixedpoint.Units(5), UpdatedAt: 150,
		}
		if err := tx.Holders().Put(ctx, h); err != nil {
			return err
		}
		tr := &domain.Trade{
			ID: entityid.Trade(tokenA, "0x01", 4).String(), Token: tokenA, User: userB,
			TxHash: "0x01", LogIndex: 4, Block: 9,
			Amount: fixedpoint.Units(5), AmountInQuote: decimal.NewFromInt(1),
			Price: decimal.RequireFromString("0.2"), Fees: big.NewInt(0), IsBuy: true, Timestamp: 150,
		}
		if err := tx.Trades().Insert(ctx, tr); err != nil {
			return err
		}
		return tx.Users().Put(ctx, &domain.User{ID: userB, TotalTrades: 1})
	})

	// A dangling reference fails at commit.
	err := store.Update(ctx, func(tx storage.Tx) error {
		return tx.Holders().Put(ctx, &domain.Holder{
			ID: "dangling", Token: tokenA, User: "0xdead", Balance: big.NewInt(1),
		})
	})
	assert.Error(t, err)

	err = store.View(ctx, func(tx storage.Tx) error {
		holders, err := tx.Holders().ListByToken(ctx, tokenA)
		require.NoError(t, err)
		require.Len(t, holders, 1)
		assert.Equal(t, fixedpoint.Units(5).String(), holders[0].Balance.String())

		trades, err := tx.Trades().ListByToken(ctx, tokenA)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.True(t, trades[0].IsBuy)
		assert.True(t, trades[0].Price.Equal(decimal.RequireFromString("0.2")))
		return nil
	})
	require.NoError(t, err)
}

func TestEntityStore_HolderDelete(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)
	seedToken(t, store)

	key := entityid.Holder(tokenA, userA)
	update(t, store, func(tx storage.Tx) error {
		return tx.Holders().Put(ctx, &domain.Holder{ID: key.String(), Token: tokenA, User: userA, Balance: big.NewInt(0)})
	})
	update(t, store, func(tx storage.Tx) error {
		return tx.Holders().Delete(ctx, key)
	})

	err := store.View(ctx, func(tx storage.Tx) error {
		_, err := tx.Holders().Get(ctx, key)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEntityStore_CandlesOrdered(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)
	seedToken(t, store)

	update(t, store, func(tx storage.Tx) error {
		for i, start := range []int64{180, 60, 120} {
			c := &domain.Candle{
				ID: tokenA + "-1m-" + string(rune('a'+i)), Token: tokenA, Interval: "1m",
				StartTime: start, EndTime: start + 60,
				Open: decimal.NewFromInt(1), High: decimal.NewFromInt(2),
				Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(2),
				Volume: fixedpoint.Units(int64(i + 1)),
			}
			if err := tx.Candles().Put(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})

	err := store.View(ctx, func(tx storage.Tx) error {
		list, err := tx.Candles().ListByToken(ctx, tokenA, "1m")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []int64{60, 120, 180}, []int64{list[0].StartTime, list[1].StartTime, list[2].StartTime})
		assert.Equal(t, fixedpoint.Units(2).String(), list[0].Volume.String())

		none, err := tx.Candles().ListByToken(ctx, tokenA, "5m")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
	require.NoError(t, err)
}

func TestEntityStore_SingletonsAndCursor(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)

	err := store.View(ctx, func(tx storage.Tx) error {
		_, err := tx.Cursor().Get(ctx)
		return err
	})
	require.ErrorIs(t, err, storage.ErrNotFound)

	pos := domain.Position{Block: 42, TxIndex: 3, LogIndex: 7}
	update(t, store, func(tx storage.Tx) error {
		p := &domain.Platform{
			ID: entityid.PlatformKey, TotalTokens: 2, TotalUsers: 3,
			TotalQuoteVolume: fixedpoint.Units(10), TotalLiquidity: fixedpoint.Units(4),
		}
		if err := tx.Platforms().Put(ctx, p); err != nil {
			return err
		}
		sample := &domain.PriceSample{ID: "100", Price: decimal.RequireFromString("2.45"), Timestamp: 100}
		if err := tx.PriceSamples().Put(ctx, sample); err != nil {
			return err
		}
		last := sample.Clone()
		last.ID = entityid.LastPriceSampleKey
		if err := tx.PriceSamples().PutLast(ctx, last); err != nil {
			return err
		}
		return tx.Cursor().Put(ctx, pos)
	})

	err = store.View(ctx, func(tx storage.Tx) error {
		p, err := tx.Platforms().Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), p.TotalUsers)
		assert.Equal(t, fixedpoint.Units(10).String(), p.TotalQuoteVolume.String())

		last, err := tx.PriceSamples().GetLast(ctx)
		require.NoError(t, err)
		assert.True(t, last.Price.Equal(decimal.RequireFromString("2.45")))

		got, err := tx.Cursor().Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, pos, *got)
		return nil
	})
	require.NoError(t, err)
}

func TestEntityStore_CurveAndInsider(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewEntityStore(pool)
	seedToken(t, store)

	update(t, store, func(tx storage.Tx) error {
		c := &domain.Curve{
			ID: entityid.Curve(tokenA).String(), Token: tokenA,
			Points: []*big.Int{fixedpoint.Units(1), fixedpoint.Units(2)}, UpdatedAt: 100,
		}
		if err := tx.Curves().Put(ctx, c); err != nil {
			return err
		}
		return tx.Insiders().Put(ctx, &domain.Insider{
			ID: entityid.Insider(tokenA, userA).String(), Token: tokenA, User: userA, AddedAt: 100,
		})
	})

	err := store.View(ctx, func(tx storage.Tx) error {
		c, err := tx.Curves().Get(ctx, entityid.Curve(tokenA))
		require.NoError(t, err)
		require.Len(t, c.Points, 2)
		assert.Equal(t, fixedpoint.Units(2).String(), c.Points[1].String())

		in, err := tx.Insiders().Get(ctx, entityid.Insider(tokenA, userA))
		require.NoError(t, err)
		assert.Nil(t, in.RemovedAt)
		return nil
	})
	require.NoError(t, err)
}
