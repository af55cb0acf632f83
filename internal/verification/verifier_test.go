package verification

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/fixedpoint"
	"rodeo-indexer/internal/indexer"
	"rodeo-indexer/internal/reducer"
	"rodeo-indexer/internal/storage"
	"rodeo-indexer/internal/storage/memory"
)

const (
	tokenT  = "0x00000000000000000000000000000000000000aa"
	creator = "0x00000000000000000000000000000000000000c1"
	trader  = "0x00000000000000000000000000000000000000d1"

	t0 int64 = 1_700_000_040
)

func units(n int64) *big.Int { return fixedpoint.Units(n) }

func events() []*domain.Event {
	evs := []*domain.Event{{
		Kind:      domain.KindCreateToken,
		Block:     1,
		TxHash:    "0x01",
		Timestamp: t0,
		CreateToken: &domain.CreateToken{
			Account: creator, Token: tokenT, Name: "Rodeo", Symbol: "RDO", TotalSupply: units(1_000_000),
		},
	}}
	for b := uint64(2); b <= 4; b++ {
		evs = append(evs, &domain.Event{
			Kind:      domain.KindTokenTrade,
			Block:     b,
			TxHash:    fmt.Sprintf("0x%02x", b),
			Timestamp: t0 + int64(b)*60,
			TokenTrade: &domain.TokenTrade{
				Token: tokenT, Account: trader,
				AmountIn: units(100), AmountOut: units(50), ExcludeFee: units(2),
				Liquidity: units(100 * int64(b)), BalanceToDex: units(1000), IsBuy: true,
			},
		})
	}
	return evs
}

// setup records evs into a raw log and applies the first applied of them to a stored state.
func setup(t *testing.T, evs []*domain.Event, applied int) (*memory.RawEventStore, *memory.EntityStore) {
	t.Helper()
	ctx := context.Background()

	raw := memory.NewRawEventStore()
	require.NoError(t, raw.InsertBulk(ctx, evs))

	stored := memory.NewEntityStore()
	ix := indexer.New(indexer.Options{Store: stored, Logger: zerolog.Nop()})
	for _, ev := range evs[:applied] {
		require.NoError(t, ix.OnEvent(ctx, ev))
	}
	return raw, stored
}

func newVerifier(raw storage.RawEventStore, stored storage.EntityStore) *ReplayVerifier {
	return NewReplayVerifier(ReplayVerifierOptions{
		Events: raw,
		Stored: stored,
		Logger: zerolog.Nop(),
	})
}

func TestVerifyAll_Match(t *testing.T) {
	evs := events()
	raw, stored := setup(t, evs, len(evs))

	report, err := newVerifier(raw, stored).VerifyAll(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), "%+v", report.Results)
	assert.Equal(t, 1, report.TotalTokens)
	assert.Equal(t, 1, report.MatchedTokens)
}

func TestVerifyAll_StopsAtStoredCursor(t *testing.T) {
	evs := events()
	raw, stored := setup(t, evs, 2)

	report, err := newVerifier(raw, stored).VerifyAll(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), "%+v", report.Results)
}

func TestVerifyAll_DetectsTamperedState(t *testing.T) {
	evs := events()
	raw, stored := setup(t, evs, len(evs))
	ctx := context.Background()

	require.NoError(t, stored.Update(ctx, func(tx storage.Tx) error {
		tok, err := tx.Tokens().Get(ctx, entityid.Token(tokenT))
		if err != nil {
			return err
		}
		tok.TotalTrades++
		if err := tx.Tokens().Put(ctx, tok); err != nil {
			return err
		}
		key := entityid.Holder(entityid.Token(tokenT), entityid.User(trader))
		h, err := tx.Holders().Get(ctx, key)
		if err != nil {
			return err
		}
		h.Balance = units(1)
		return tx.Holders().Put(ctx, h)
	}))

	report, err := newVerifier(raw, stored).VerifyAll(ctx)
	require.NoError(t, err)
	assert.False(t, report.OK())
	require.Len(t, report.Results, 1)

	fields := make([]string, 0)
	for _, d := range report.Results[0].Divergences {
		fields = append(fields, d.Field)
	}
	holderID := string(entityid.Holder(entityid.Token(tokenT), entityid.User(trader)))
	assert.ElementsMatch(t, []string{"TotalTrades", "Holder " + holderID + " Balance"}, fields)
}

func TestVerifyToken(t *testing.T) {
	evs := events()
	raw, stored := setup(t, evs, len(evs))
	v := newVerifier(raw, stored)

	result, err := v.VerifyToken(context.Background(), "0x00000000000000000000000000000000000000AA")
	require.NoError(t, err)
	assert.True(t, result.Match)

	_, err = v.VerifyToken(context.Background(), "0x00000000000000000000000000000000000000bb")
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = v.VerifyToken(context.Background(), "not-an-address")
	require.Error(t, err)
}

func TestVerifyAll_DifferentHolderPolicy(t *testing.T) {
	evs := events()
	raw, stored := setup(t, evs, len(evs))

	v := NewReplayVerifier(ReplayVerifierOptions{
		Events:  raw,
		Stored:  stored,
		Reducer: reducer.Options{InitialHolder: reducer.HolderPolicyNone},
		Logger:  zerolog.Nop(),
	})
	report, err := v.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.False(t, report.OK(), "creator holder only exists in the stored state")
}

func TestCompareTokens(t *testing.T) {
	a := &domain.Token{ID: tokenT, LastPrice: decimal.RequireFromString("1.50"), TotalSupply: units(1)}
	b := a.Clone()
	b.LastPrice = decimal.RequireFromString("1.5")
	assert.Empty(t, CompareTokens(a, b), "decimals compare by value")

	b.OnDex = true
	b.TotalSupply = units(2)
	d := CompareTokens(a, b)
	require.Len(t, d, 2)
	assert.Equal(t, "TotalSupply", d[0].Field)
	assert.Equal(t, units(1).String(), d[0].Expected)
	assert.Equal(t, "OnDex", d[1].Field)
}

func TestCompareTrades_LengthMismatch(t *testing.T) {
	d := CompareTrades([]*domain.Trade{{ID: "a"}}, nil)
	require.Len(t, d, 1)
	assert.Equal(t, "Trades", d[0].Field)
}
