package reducer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"rodeo-indexer/internal/candle"
	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/fixedpoint"
	"rodeo-indexer/internal/pricing"
	"rodeo-indexer/internal/rollup"
	"rodeo-indexer/internal/storage"
)

func (a *application) tokenTrade() error {
	p := a.ev.TokenTrade
	ts := a.ev.Timestamp

	tok, err := a.requireToken(p.Token)
	if err != nil {
		return err
	}

	trader, err := a.loadOrCreateUser(p.Account)
	if err != nil {
		return err
	}

	q := pricing.QuoteTrade(p.AmountIn, p.AmountOut, p.ExcludeFee, p.IsBuy)

	reference, err := a.referencePrice()
	if err != nil {
		return err
	}

	rollup.ApplyThresholds(tok, rollup.EvaluateThresholds(p.Liquidity, p.BalanceToDex, ts))
	rollup.RecordTrade(a.platform, tok, trader, q, p.IsBuy)
	rollup.RecordLiquidity(a.platform, tok, p.Liquidity)

	trade := &domain.Trade{
		ID:             entityid.Trade(entityid.Token(tok.ID), a.ev.TxHash, a.ev.LogIndex).String(),
		Token:          tok.ID,
		User:           trader.ID,
		TxHash:         a.ev.TxHash,
		LogIndex:       a.ev.LogIndex,
		Block:          a.ev.Block,
		Amount:         q.Amount,
		AmountInQuote:  q.AmountInQuote,
		AmountInStable: pricing.InStable(q.AmountInQuote, reference),
		Price:          q.Price,
		PriceInStable:  pricing.InStable(q.Price, reference),
		Fees:           fixedpoint.Clone(p.ExcludeFee),
		IsBuy:          p.IsBuy,
		Timestamp:      ts,
	}
	if err := a.tx.Trades().Insert(a.ctx, trade); err != nil {
		return fmt.Errorf("insert trade %s: %w", trade.ID, err)
	}
	a.fx.Trade = trade

	if err := a.updateCandles(tok, candle.TradeTick(ts, q.Price, tok.LastPrice, p.AmountOut)); err != nil {
		return err
	}
	rollup.RecordPrice(tok, q.Price, ts)

	h, err := a.loadOrCreateHolder(tok, trader.ID)
	if err != nil {
		return err
	}
	if p.IsBuy {
		h.Balance = fixedpoint.Add(h.Balance, p.AmountOut)
	} else if err := debit(h, p.AmountIn); err != nil {
		return err
	}

	if err := a.putHolder(h); err != nil {
		return err
	}
	if err := a.putUser(trader); err != nil {
		return err
	}
	return a.putToken(tok)
}

// referencePrice returns the latest reference price, or zero when none was sampled yet.
func (a *application) referencePrice() (decimal.Decimal, error) {
	s, err := a.tx.PriceSamples().GetLast(a.ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get last price sample: %w", err)
	}
	return s.Price, nil
}

// updateCandles applies tick to tok's candle of every interval.
func (a *application) updateCandles(tok *domain.Token, tick candle.Tick) error {
	token := entityid.Token(tok.ID)
	for _, iv := range a.r.intervals {
		key := entityid.Candle(token, iv, tick.Timestamp)

		prev, err := a.tx.Candles().Get(a.ctx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("get candle %s: %w", key, err)
		}

		next := candle.Apply(prev, token, iv, tick)
		if err := a.tx.Candles().Put(a.ctx, next); err != nil {
			return fmt.Errorf("put candle %s: %w", key, err)
		}
		a.fx.Candles = append(a.fx.Candles, next)
	}
	return nil
}

// debit removes amount from h. An overdraft leaves h unchanged.
func debit(h *domain.Holder, amount *big.Int) error {
	if fixedpoint.Less(h.Balance, amount) {
		return &InsufficientBalanceError{
			Token:   h.Token,
			Address: h.User,
			Balance: fixedpoint.Clone(h.Balance),
			Debit:   fixedpoint.Clone(amount),
		}
	}
	h.Balance = fixedpoint.Sub(h.Balance, amount)
	return nil
}
