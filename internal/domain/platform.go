package domain

import "math/big"

// Platform holds platform-wide running totals. Exactly one instance exists.
type Platform struct {
	ID                       string
	TotalTokens              int64
	TotalUsers               int64
	TotalTrades              int64
	TotalHolders             int64
	TotalQuoteVolume         *big.Int
	TotalLiquidity           *big.Int
	TotalTokensMigratedToDex int64
}

// Clone returns a deep copy of p.
func (p *Platform) Clone() *Platform {
	c := *p
	c.TotalQuoteVolume = cloneInt(p.TotalQuoteVolume)
	c.TotalLiquidity = cloneInt(p.TotalLiquidity)
	return &c
}
