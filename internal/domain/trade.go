package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Trade is one bonding-curve trade. Trades are append-only.
type Trade struct {
	ID             string // token-txhash-logIndex
	Token          string
	User           string
	TxHash         string
	LogIndex       uint64
	Block          uint64
	Amount         *big.Int        // token amount bought or sold
	AmountInQuote  decimal.Decimal // quote asset amount of the trade
	AmountInStable decimal.Decimal // quote amount valued in the stable reference currency
	Price          decimal.Decimal
	PriceInStable  decimal.Decimal
	Fees           *big.Int
	IsBuy          bool
	Timestamp      int64
}

// Side returns "buy" or "sell".
func (t *Trade) Side() string {
	if t.IsBuy {
		return TradeSideBuy
	}
	return TradeSideSell
}

// Trade side constants
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Clone returns a deep copy of t.
func (t *Trade) Clone() *Trade {
	c := *t
	c.Amount = cloneInt(t.Amount)
	c.Fees = cloneInt(t.Fees)
	return &c
}
