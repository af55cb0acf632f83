// Package fixedpoint converts 18-decimal on-chain integer amounts to decimal values.
//
// All helpers are pure and never mutate their arguments; big.Int results are
// always freshly allocated.
package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of implied decimal places of every on-chain amount.
const Decimals = 18

// DivisionPrecision is the number of decimal places kept by Div.
const DivisionPrecision = 32

var (
	one18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

	// OneMillion is 1,000,000 whole units expressed in 18-decimal integer form.
	OneMillion = Units(1_000_000)
)

// Units returns n whole units as an 18-decimal integer (n * 10^18).
func Units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), one18)
}

// ToDecimal converts an 18-decimal integer to its decimal value (v / 10^18).
// A nil amount converts to zero.
func ToDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -Decimals)
}

// FromDecimal converts a decimal value back to 18-decimal integer form,
// truncating anything below 10^-18.
func FromDecimal(d decimal.Decimal) *big.Int {
	return d.Shift(Decimals).BigInt()
}

// Div divides a by b, returning zero when b is zero.
func Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, DivisionPrecision)
}

// Parse parses a base-10 integer amount.
func Parse(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse amount %q: not a base-10 integer", s)
	}
	return v, nil
}

// MustParse is like Parse but panics on malformed input. Intended for constants and tests.
func MustParse(s string) *big.Int {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Zero returns a new zero amount.
func Zero() *big.Int {
	return new(big.Int)
}

// Clone returns a copy of v, or zero when v is nil.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Add returns a + b. Nil operands are treated as zero.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(Clone(a), Clone(b))
}

// Sub returns a - b. Nil operands are treated as zero.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(Clone(a), Clone(b))
}

// IsZero reports whether v is nil or zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// Less reports whether a < b. Nil operands are treated as zero.
func Less(a, b *big.Int) bool {
	return Clone(a).Cmp(Clone(b)) < 0
}
