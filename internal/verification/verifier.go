// Package verification checks that stored derived state matches a fresh
// replay of the raw event log.
package verification

import (
	"math/big"

	"github.com/shopspring/decimal"

	"rodeo-indexer/internal/domain"
)

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name, prefixed with the entity id for nested entities
	Expected any    // stored value
	Actual   any    // replayed value
}

// VerificationResult contains the result of verifying a single token.
type VerificationResult struct {
	Token       string
	Match       bool
	Divergences []FieldDivergence
}

// VerificationReport contains results for every stored token.
type VerificationReport struct {
	TotalTokens     int
	MatchedTokens   int
	DivergentTokens int
	MissingTokens   []string // replayed tokens absent from the stored state
	Results         []VerificationResult
}

// OK reports whether every token matched and none is missing.
func (r *VerificationReport) OK() bool {
	return r.DivergentTokens == 0 && len(r.MissingTokens) == 0
}

type divergences []FieldDivergence

func (d *divergences) add(field string, expected, actual any) {
	*d = append(*d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
}

func (d *divergences) str(field, expected, actual string) {
	if expected != actual {
		d.add(field, expected, actual)
	}
}

func (d *divergences) i64(field string, expected, actual int64) {
	if expected != actual {
		d.add(field, expected, actual)
	}
}

func (d *divergences) flag(field string, expected, actual bool) {
	if expected != actual {
		d.add(field, expected, actual)
	}
}

func (d *divergences) num(field string, expected, actual *big.Int) {
	if intOrZero(expected).Cmp(intOrZero(actual)) != 0 {
		d.add(field, intOrZero(expected).String(), intOrZero(actual).String())
	}
}

func (d *divergences) dec(field string, expected, actual decimal.Decimal) {
	if !expected.Equal(actual) {
		d.add(field, expected.String(), actual.String())
	}
}

func intOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// CompareTokens compares two tokens and returns divergences.
// Decimal fields compare by value, not by representation.
func CompareTokens(stored, replayed *domain.Token) []FieldDivergence {
	var d divergences

	d.str("ID", stored.ID, replayed.ID)
	d.str("Creator", stored.Creator, replayed.Creator)
	d.str("Name", stored.Name, replayed.Name)
	d.str("Symbol", stored.Symbol, replayed.Symbol)
	d.i64("CreatedAt", stored.CreatedAt, replayed.CreatedAt)
	d.num("TotalSupply", stored.TotalSupply, replayed.TotalSupply)

	// Pricing
	d.dec("LastPrice", stored.LastPrice, replayed.LastPrice)
	d.i64("LastPriceUpdate", stored.LastPriceUpdate, replayed.LastPriceUpdate)
	d.num("Liquidity", stored.Liquidity, replayed.Liquidity)
	d.num("TotalTokenLiquidity", stored.TotalTokenLiquidity, replayed.TotalTokenLiquidity)

	// Lifecycle
	d.flag("OnDex", stored.OnDex, replayed.OnDex)
	d.i64("OnDexSince", stored.OnDexSince, replayed.OnDexSince)
	d.flag("ReachedOneMillion", stored.ReachedOneMillion, replayed.ReachedOneMillion)
	d.i64("ReachedOneMillionAt", stored.ReachedOneMillionAt, replayed.ReachedOneMillionAt)
	d.flag("ReachedHalfwayToDex", stored.ReachedHalfwayToDex, replayed.ReachedHalfwayToDex)
	d.i64("ReachedHalfwayToDexAt", stored.ReachedHalfwayToDexAt, replayed.ReachedHalfwayToDexAt)

	// Totals
	d.num("TotalTokenSold", stored.TotalTokenSold, replayed.TotalTokenSold)
	d.num("TotalQuoteSpent", stored.TotalQuoteSpent, replayed.TotalQuoteSpent)
	d.i64("TotalTrades", stored.TotalTrades, replayed.TotalTrades)
	d.i64("TotalHolders", stored.TotalHolders, replayed.TotalHolders)

	return d
}

// CompareHolders compares the holder sets of one token by holder id.
func CompareHolders(stored, replayed []*domain.Holder) []FieldDivergence {
	var d divergences

	byID := make(map[string]*domain.Holder, len(replayed))
	for _, h := range replayed {
		byID[h.ID] = h
	}
	for _, h := range stored {
		r, ok := byID[h.ID]
		if !ok {
			d.add("Holder "+h.ID, intOrZero(h.Balance).String(), nil)
			continue
		}
		delete(byID, h.ID)
		d.num("Holder "+h.ID+" Balance", h.Balance, r.Balance)
		d.i64("Holder "+h.ID+" UpdatedAt", h.UpdatedAt, r.UpdatedAt)
	}
	for _, r := range replayed {
		if _, extra := byID[r.ID]; extra {
			d.add("Holder "+r.ID, nil, intOrZero(r.Balance).String())
		}
	}
	return d
}

// CompareTrades compares the trade ledgers of one token in ledger order.
func CompareTrades(stored, replayed []*domain.Trade) []FieldDivergence {
	var d divergences
	if len(stored) != len(replayed) {
		d.add("Trades", len(stored), len(replayed))
		return d
	}
	for i, s := range stored {
		r := replayed[i]
		if s.ID != r.ID {
			d.add("Trade "+s.ID, s.ID, r.ID)
			continue
		}
		d.num("Trade "+s.ID+" Amount", s.Amount, r.Amount)
		d.dec("Trade "+s.ID+" Price", s.Price, r.Price)
		d.dec("Trade "+s.ID+" AmountInQuote", s.AmountInQuote, r.AmountInQuote)
		d.dec("Trade "+s.ID+" PriceInStable", s.PriceInStable, r.PriceInStable)
		d.flag("Trade "+s.ID+" IsBuy", s.IsBuy, r.IsBuy)
	}
	return d
}
