package domain

import (
	"fmt"

	"rodeo-indexer/internal/entityid"
)

// Normalized validates e and returns a copy with every address lower-cased and
// the transaction hash normalized. Amount pointers are shared with e.
func (e *Event) Normalized() (*Event, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	out := *e
	out.TxHash = entityid.NormalizeHash(e.TxHash)

	var err error
	addr := func(field, v string) string {
		if err != nil {
			return ""
		}
		n, nerr := entityid.NormalizeAddress(v)
		if nerr != nil {
			err = fmt.Errorf("%w: %s %s: %v", ErrInvalidEvent, e.Kind, field, nerr)
		}
		return n
	}

	// Source is optional except for transfers, where it identifies the token.
	if e.Source != "" || e.Kind == KindTransfer {
		out.Source = addr("source", e.Source)
	}

	switch e.Kind {
	case KindCreateToken:
		p := *e.CreateToken
		p.Account = addr("account", p.Account)
		p.Token = addr("token", p.Token)
		out.CreateToken = &p
	case KindTokenTrade:
		p := *e.TokenTrade
		p.Account = addr("account", p.Account)
		p.Token = addr("token", p.Token)
		out.TokenTrade = &p
	case KindLiquidityTrade:
		p := *e.LiquidityTrade
		p.Token = addr("token", p.Token)
		out.LiquidityTrade = &p
	case KindTransferToDex:
		p := *e.TransferToDex
		p.Token = addr("token", p.Token)
		out.TransferToDex = &p
	case KindTransfer:
		p := *e.Transfer
		p.From = addr("from", p.From)
		p.To = addr("to", p.To)
		out.Transfer = &p
	}

	if err != nil {
		return nil, err
	}
	return &out, nil
}
