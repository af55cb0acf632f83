package reducer

import (
	"rodeo-indexer/internal/candle"
	"rodeo-indexer/internal/pricing"
	"rodeo-indexer/internal/rollup"
)

func (a *application) liquidityTrade() error {
	p := a.ev.LiquidityTrade
	ts := a.ev.Timestamp

	tok, err := a.requireToken(p.Token)
	if err != nil {
		return err
	}

	price := pricing.LiquidityPrice(p.Liquidity, p.TokenBalance, p.VirtualToken)

	if err := a.updateCandles(tok, candle.PriceTick(ts, price, tok.LastPrice)); err != nil {
		return err
	}

	rollup.RecordPrice(tok, price, ts)
	rollup.RecordLiquidity(a.platform, tok, p.Liquidity)
	tok.TotalTokenLiquidity = pricing.CurveTokens(p.TokenBalance, p.VirtualToken)

	return a.putToken(tok)
}

func (a *application) transferToDex() error {
	tok, err := a.requireToken(a.ev.TransferToDex.Token)
	if err != nil {
		return err
	}

	if !rollup.RecordMigration(a.platform, tok, a.ev.Timestamp) {
		return nil
	}
	return a.putToken(tok)
}
