package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Candle is the OHLCV record of one token for one interval bucket.
type Candle struct {
	ID        string // token-interval-bucketIndex
	Token     string
	Interval  string // interval name, e.g. "1m"
	StartTime int64  // bucket start, unix seconds
	EndTime   int64  // StartTime + interval width, fixed at creation
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    *big.Int
}

// Clone returns a deep copy of c.
func (c *Candle) Clone() *Candle {
	cp := *c
	cp.Volume = cloneInt(c.Volume)
	return &cp
}
