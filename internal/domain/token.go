package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Token is a token launched on the bonding-curve platform.
// Exactly one Token exists per contract address; it is never deleted.
type Token struct {
	ID                    string // lower-case contract address
	Creator               string // FK to users
	Name                  string
	Symbol                string
	NameLower             string
	SymbolLower           string
	CreatedAt             int64  // unix seconds
	Data                  []byte // opaque metadata blob from the creation event
	TotalSupply           *big.Int
	LastPrice             decimal.Decimal // quote asset per token
	LastPriceUpdate       int64
	Liquidity             *big.Int // quote asset pooled in the curve
	TotalTokenLiquidity   *big.Int // token balance + virtual tokens at the last liquidity trade
	OnDex                 bool
	OnDexSince            int64
	ReachedOneMillion     bool
	ReachedOneMillionAt   int64
	ReachedHalfwayToDex   bool
	ReachedHalfwayToDexAt int64
	TotalTokenSold        *big.Int
	TotalQuoteSpent       *big.Int
	TotalTrades           int64
	TotalHolders          int64
}

// Clone returns a deep copy of t.
func (t *Token) Clone() *Token {
	c := *t
	c.Data = append([]byte(nil), t.Data...)
	c.TotalSupply = cloneInt(t.TotalSupply)
	c.Liquidity = cloneInt(t.Liquidity)
	c.TotalTokenLiquidity = cloneInt(t.TotalTokenLiquidity)
	c.TotalTokenSold = cloneInt(t.TotalTokenSold)
	c.TotalQuoteSpent = cloneInt(t.TotalQuoteSpent)
	return &c
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
