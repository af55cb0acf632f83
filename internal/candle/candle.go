// Package candle computes OHLCV candle updates for one token and interval bucket.
//
// Apply is pure: it never mutates the previous candle and never touches storage.
// The reducer loads the previous candle, applies a Tick and writes the result.
package candle

import (
	"math/big"

	"github.com/shopspring/decimal"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/fixedpoint"
	"rodeo-indexer/internal/interval"
)

// Tick is one price and/or volume observation routed to a bucket.
type Tick struct {
	Timestamp int64

	// HasPrice marks a price-bearing tick. Price-less ticks only add volume.
	HasPrice bool
	Price    decimal.Decimal

	// LastPrice is the token's price before this tick, carried forward as the
	// open of a bucket's first price. Zero means no prior price exists.
	LastPrice decimal.Decimal

	// Volume is added to the bucket. Nil adds nothing.
	Volume *big.Int
}

// PriceTick returns a price-only tick.
func PriceTick(ts int64, price, lastPrice decimal.Decimal) Tick {
	return Tick{Timestamp: ts, HasPrice: true, Price: price, LastPrice: lastPrice}
}

// VolumeTick returns a volume-only tick.
func VolumeTick(ts int64, volume *big.Int) Tick {
	return Tick{Timestamp: ts, Volume: volume}
}

// TradeTick returns a tick carrying both price and volume.
func TradeTick(ts int64, price, lastPrice decimal.Decimal, volume *big.Int) Tick {
	return Tick{Timestamp: ts, HasPrice: true, Price: price, LastPrice: lastPrice, Volume: volume}
}

// Apply returns the candle of token's iv bucket containing tick.Timestamp after
// applying tick. prev is the stored candle for that bucket, or nil if absent.
//
// A bucket's first price opens at the carried last price (or the price itself
// when none exists) and high/low span both. A candle created by a volume-only
// tick has all-zero prices; its first price write initializes it the same way.
func Apply(prev *domain.Candle, token entityid.TokenKey, iv interval.Interval, tick Tick) *domain.Candle {
	var c *domain.Candle
	if prev == nil {
		start := iv.Start(tick.Timestamp)
		c = &domain.Candle{
			ID:        entityid.Candle(token, iv, tick.Timestamp).String(),
			Token:     token.String(),
			Interval:  iv.Name,
			StartTime: start,
			EndTime:   start + iv.Seconds,
			Open:      decimal.Zero,
			High:      decimal.Zero,
			Low:       decimal.Zero,
			Close:     decimal.Zero,
			Volume:    fixedpoint.Zero(),
		}
	} else {
		c = prev.Clone()
	}

	if tick.HasPrice {
		if prev == nil || !hasPrice(c) {
			open(c, tick.Price, tick.LastPrice)
		} else {
			c.High = decimal.Max(c.High, tick.Price)
			c.Low = decimal.Min(c.Low, tick.Price)
			c.Close = tick.Price
		}
	}

	if tick.Volume != nil {
		c.Volume = fixedpoint.Add(c.Volume, tick.Volume)
	}
	return c
}

// open initializes a bucket's first price. High and low include the carried
// open so that low <= open <= high holds for every stored candle.
func open(c *domain.Candle, price, lastPrice decimal.Decimal) {
	o := lastPrice
	if o.IsZero() {
		o = price
	}
	c.Open = o
	c.High = decimal.Max(o, price)
	c.Low = decimal.Min(o, price)
	c.Close = price
}

// hasPrice reports whether any price was written to c.
func hasPrice(c *domain.Candle) bool {
	return !(c.Open.IsZero() && c.High.IsZero() && c.Low.IsZero() && c.Close.IsZero())
}

// Valid reports whether c satisfies low <= open, close <= high and a non-negative volume.
func Valid(c *domain.Candle) bool {
	if c.Volume != nil && c.Volume.Sign() < 0 {
		return false
	}
	for _, p := range []decimal.Decimal{c.Open, c.Close} {
		if p.LessThan(c.Low) || p.GreaterThan(c.High) {
			return false
		}
	}
	return c.Low.LessThanOrEqual(c.High)
}
