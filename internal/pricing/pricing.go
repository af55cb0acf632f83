// Package pricing derives token prices from trade amounts, curve state and pool reserves.
// Every function is pure; inputs are 18-decimal integer amounts.
package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"

	"rodeo-indexer/internal/fixedpoint"
)

// TradeQuote is the priced view of one bonding-curve trade.
type TradeQuote struct {
	Net           *big.Int        // amountIn minus the excluded fee
	Amount        *big.Int        // token amount: amountOut on buys, amountIn on sells
	QuoteAmount   *big.Int        // quote asset amount: net on buys, amountOut on sells
	AmountInQuote decimal.Decimal // QuoteAmount as a decimal
	Price         decimal.Decimal // quote asset per token
}

// NetAmount returns amountIn minus excludeFee.
func NetAmount(amountIn, excludeFee *big.Int) *big.Int {
	return fixedpoint.Sub(amountIn, excludeFee)
}

// QuoteTrade prices a trade. The fee is always taken out of amountIn:
// buys pay net quote for amountOut tokens, sells give net tokens for amountOut quote.
// A zero denominator prices the trade at zero.
func QuoteTrade(amountIn, amountOut, excludeFee *big.Int, isBuy bool) TradeQuote {
	net := NetAmount(amountIn, excludeFee)
	netDec := fixedpoint.ToDecimal(net)
	outDec := fixedpoint.ToDecimal(amountOut)

	if isBuy {
		return TradeQuote{
			Net:           net,
			Amount:        fixedpoint.Clone(amountOut),
			QuoteAmount:   net,
			AmountInQuote: netDec,
			Price:         fixedpoint.Div(netDec, outDec),
		}
	}
	return TradeQuote{
		Net:           net,
		Amount:        fixedpoint.Clone(amountIn),
		QuoteAmount:   fixedpoint.Clone(amountOut),
		AmountInQuote: outDec,
		Price:         fixedpoint.Div(outDec, netDec),
	}
}

// CurveTokens returns tokenBalance + virtualToken.
func CurveTokens(tokenBalance, virtualToken *big.Int) *big.Int {
	return fixedpoint.Add(tokenBalance, virtualToken)
}

// LiquidityPrice returns liquidity / (tokenBalance + virtualToken), or zero when the curve holds no tokens.
func LiquidityPrice(liquidity, tokenBalance, virtualToken *big.Int) decimal.Decimal {
	return fixedpoint.Div(fixedpoint.ToDecimal(liquidity), fixedpoint.ToDecimal(CurveTokens(tokenBalance, virtualToken)))
}

// ReservePrice returns reserve1 / reserve0, or zero when reserve0 is zero.
func ReservePrice(reserve0, reserve1 *big.Int) decimal.Decimal {
	return fixedpoint.Div(fixedpoint.ToDecimal(reserve1), fixedpoint.ToDecimal(reserve0))
}

// InStable values v at the reference price. A zero reference yields zero.
func InStable(v, reference decimal.Decimal) decimal.Decimal {
	return v.Mul(reference)
}
