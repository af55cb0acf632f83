// Package rollup maintains the running counters of users, tokens and the platform.
//
// Counters move only when the reducer first creates the entity they count, so
// every helper here is called at most once per created child. The functions
// mutate the values passed in and never touch storage.
package rollup

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/fixedpoint"
	"rodeo-indexer/internal/pricing"
)

// NewPlatform returns the zeroed platform singleton.
func NewPlatform() *domain.Platform {
	return &domain.Platform{
		ID:               entityid.PlatformKey,
		TotalQuoteVolume: fixedpoint.Zero(),
		TotalLiquidity:   fixedpoint.Zero(),
	}
}

// NewUser returns a zeroed user and counts it on p.
func NewUser(p *domain.Platform, key entityid.UserKey) *domain.User {
	p.TotalUsers++
	return &domain.User{ID: key.String()}
}

// NewHolder returns an empty holder of tok and counts it on tok and p.
func NewHolder(p *domain.Platform, tok *domain.Token, user entityid.UserKey, ts int64) *domain.Holder {
	tok.TotalHolders++
	p.TotalHolders++
	return &domain.Holder{
		ID:        entityid.Holder(entityid.Token(tok.ID), user).String(),
		Token:     tok.ID,
		User:      user.String(),
		Balance:   fixedpoint.Zero(),
		UpdatedAt: ts,
	}
}

// TokenParams describes a token at creation.
type TokenParams struct {
	Address     entityid.TokenKey
	Name        string
	Symbol      string
	TotalSupply *big.Int
	Data        []byte
	CreatedAt   int64
}

// NewToken returns a freshly launched token with zeroed rollups and counts it
// on its creator and p.
func NewToken(p *domain.Platform, creator *domain.User, params TokenParams) *domain.Token {
	creator.TotalTokensCreated++
	p.TotalTokens++
	return &domain.Token{
		ID:                  params.Address.String(),
		Creator:             creator.ID,
		Name:                params.Name,
		Symbol:              params.Symbol,
		NameLower:           strings.ToLower(params.Name),
		SymbolLower:         strings.ToLower(params.Symbol),
		CreatedAt:           params.CreatedAt,
		Data:                append([]byte(nil), params.Data...),
		TotalSupply:         fixedpoint.Clone(params.TotalSupply),
		LastPrice:           decimal.Zero,
		LastPriceUpdate:     params.CreatedAt,
		Liquidity:           fixedpoint.Zero(),
		TotalTokenLiquidity: fixedpoint.Zero(),
		TotalTokenSold:      fixedpoint.Zero(),
		TotalQuoteSpent:     fixedpoint.Zero(),
	}
}

// RecordTrade accumulates one priced trade on the trader, token and platform.
//
// Buys add amountOut tokens sold and net quote spent. Sells remove net tokens
// and amountOut quote. Platform quote volume moves with the token's quote spent.
func RecordTrade(p *domain.Platform, tok *domain.Token, trader *domain.User, q pricing.TradeQuote, isBuy bool) {
	if isBuy {
		tok.TotalTokenSold = fixedpoint.Add(tok.TotalTokenSold, q.Amount)
		tok.TotalQuoteSpent = fixedpoint.Add(tok.TotalQuoteSpent, q.QuoteAmount)
		p.TotalQuoteVolume = fixedpoint.Add(p.TotalQuoteVolume, q.QuoteAmount)
	} else {
		tok.TotalTokenSold = fixedpoint.Sub(tok.TotalTokenSold, q.Net)
		tok.TotalQuoteSpent = fixedpoint.Sub(tok.TotalQuoteSpent, q.QuoteAmount)
		p.TotalQuoteVolume = fixedpoint.Sub(p.TotalQuoteVolume, q.QuoteAmount)
	}

	trader.TotalTrades++
	tok.TotalTrades++
	p.TotalTrades++
}

// RecordLiquidity sets tok's pooled liquidity and moves the platform total by the delta.
func RecordLiquidity(p *domain.Platform, tok *domain.Token, liquidity *big.Int) {
	delta := fixedpoint.Sub(liquidity, tok.Liquidity)
	p.TotalLiquidity = fixedpoint.Add(p.TotalLiquidity, delta)
	tok.Liquidity = fixedpoint.Clone(liquidity)
}

// RecordMigration marks tok as listed on the external exchange. It reports
// false and changes nothing if tok was already migrated.
func RecordMigration(p *domain.Platform, tok *domain.Token, ts int64) bool {
	if tok.OnDex {
		return false
	}
	tok.OnDex = true
	tok.OnDexSince = ts
	p.TotalTokensMigratedToDex++
	return true
}

// RecordPrice advances tok's last price.
func RecordPrice(tok *domain.Token, price decimal.Decimal, ts int64) {
	tok.LastPrice = price
	tok.LastPriceUpdate = ts
}
