package reducer

import (
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/fixedpoint"
)

// transfer moves an ERC-20 balance between holders of the emitting token.
// The zero address on either side mints or burns and has no holder.
func (a *application) transfer() error {
	p := a.ev.Transfer

	tok, err := a.requireToken(a.ev.Source)
	if err != nil {
		return err
	}

	if !entityid.IsZeroAddress(p.From) {
		if err := a.ensureUser(p.From); err != nil {
			return err
		}
		from, err := a.loadOrCreateHolder(tok, p.From)
		if err != nil {
			return err
		}
		if err := debit(from, p.Value); err != nil {
			return err
		}
		if err := a.putHolder(from); err != nil {
			return err
		}
	}

	if !entityid.IsZeroAddress(p.To) {
		if err := a.ensureUser(p.To); err != nil {
			return err
		}
		to, err := a.loadOrCreateHolder(tok, p.To)
		if err != nil {
			return err
		}
		to.Balance = fixedpoint.Add(to.Balance, p.Value)
		if err := a.putHolder(to); err != nil {
			return err
		}
	}

	return a.putToken(tok)
}
