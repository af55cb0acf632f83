package reducer

import (
	"fmt"
	"math/big"

	"rodeo-indexer/internal/storage"
)

// ErrMissingReferent is returned when an event refers to an entity that was never created.
// It wraps storage.ErrNotFound.
var ErrMissingReferent = fmt.Errorf("missing referent: %w", storage.ErrNotFound)

// InsufficientBalanceError is returned when a debit exceeds a holder's balance.
// It is a data-integrity violation and halts indexing.
type InsufficientBalanceError struct {
	Token   string
	Address string
	Balance *big.Int
	Debit   *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: holder %s of token %s has %s, debit %s",
		e.Address, e.Token, e.Balance, e.Debit)
}
