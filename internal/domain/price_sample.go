package domain

import "github.com/shopspring/decimal"

// PriceSample is a reference quote-asset price observed on the secondary pool.
// The same type backs the singleton latest sample.
type PriceSample struct {
	ID        string // timestamp, or "1" for the latest sample
	Price     decimal.Decimal
	Timestamp int64
}

// Clone returns a copy of s.
func (s *PriceSample) Clone() *PriceSample {
	c := *s
	return &c
}
