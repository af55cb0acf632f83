package domain

import "math/big"

// Holder is the balance of one token held by one address.
type Holder struct {
	ID        string   // token-holder
	Token     string   // FK to tokens
	User      string   // FK to users
	Balance   *big.Int // never negative
	UpdatedAt int64
}

// Clone returns a deep copy of h.
func (h *Holder) Clone() *Holder {
	c := *h
	c.Balance = cloneInt(h.Balance)
	return &c
}
