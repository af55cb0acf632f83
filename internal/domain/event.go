package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EventKind identifies the payload carried by an Event.
type EventKind string

// Event kind constants.
const (
	KindCreateToken    EventKind = "create_token"
	KindTokenTrade     EventKind = "token_trade"
	KindLiquidityTrade EventKind = "liquidity_trade"
	KindTransferToDex  EventKind = "transfer_to_dex"
	KindTransfer       EventKind = "transfer"
	KindReserveSync    EventKind = "reserve_sync"
)

// IsValid reports whether k is a known event kind.
func (k EventKind) IsValid() bool {
	switch k {
	case KindCreateToken, KindTokenTrade, KindLiquidityTrade, KindTransferToDex, KindTransfer, KindReserveSync:
		return true
	}
	return false
}

// Event is one decoded on-chain log, positioned in canonical chain order.
// Exactly one payload pointer is set, matching Kind.
type Event struct {
	Kind      EventKind `json:"kind"`
	Block     uint64    `json:"block"`
	TxIndex   uint64    `json:"txIndex"`
	LogIndex  uint64    `json:"logIndex"`
	TxHash    string    `json:"txHash"`
	Source    string    `json:"source"`    // emitting contract
	Timestamp int64     `json:"timestamp"` // block timestamp, unix seconds

	CreateToken    *CreateToken    `json:"createToken,omitempty"`
	TokenTrade     *TokenTrade     `json:"tokenTrade,omitempty"`
	LiquidityTrade *LiquidityTrade `json:"liquidityTrade,omitempty"`
	TransferToDex  *TransferToDex  `json:"transferToDex,omitempty"`
	Transfer       *Transfer       `json:"transfer,omitempty"`
	ReserveSync    *ReserveSync    `json:"reserveSync,omitempty"`
}

// CreateToken is emitted by the platform when a token is launched.
type CreateToken struct {
	Account     string        `json:"account"`
	Token       string        `json:"token"`
	Name        string        `json:"name"`
	Symbol      string        `json:"symbol"`
	TotalSupply *big.Int      `json:"totalSupply"`
	Data        hexutil.Bytes `json:"data,omitempty"`
	CurvePoints []*big.Int    `json:"curvePoints,omitempty"`
}

// TokenTrade is a buy or sell against a token's bonding curve.
// ExcludeFee is the protocol fee component taken out of AmountIn.
type TokenTrade struct {
	Token        string   `json:"token"`
	Account      string   `json:"account"`
	AmountIn     *big.Int `json:"amountIn"`
	AmountOut    *big.Int `json:"amountOut"`
	ExcludeFee   *big.Int `json:"excludeFee"`
	Liquidity    *big.Int `json:"liquidity"`
	BalanceToDex *big.Int `json:"balanceToDex"`
	IsBuy        bool     `json:"isBuy"`
}

// LiquidityTrade reprices a token from its curve state.
type LiquidityTrade struct {
	Token        string   `json:"token"`
	TokenBalance *big.Int `json:"tokenBalance"`
	VirtualToken *big.Int `json:"virtualToken"`
	Liquidity    *big.Int `json:"liquidity"`
}

// TransferToDex marks a token's migration to the external exchange.
type TransferToDex struct {
	Token string `json:"token"`
}

// Transfer is an ERC-20 transfer emitted by the token contract (Event.Source).
type Transfer struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Value *big.Int `json:"value"`
}

// ReserveSync reports the reserves of the reference quote/stable pool.
type ReserveSync struct {
	Reserve0 *big.Int `json:"reserve0"`
	Reserve1 *big.Int `json:"reserve1"`
}

// Position is the canonical chain position of an event.
type Position struct {
	Block    uint64 `json:"block"`
	TxIndex  uint64 `json:"txIndex"`
	LogIndex uint64 `json:"logIndex"`
}

// Position returns the event's chain position.
func (e *Event) Position() Position {
	return Position{Block: e.Block, TxIndex: e.TxIndex, LogIndex: e.LogIndex}
}

// Compare returns -1, 0 or 1 ordering p before, equal to or after o.
// Order: (block ASC, tx_index ASC, log_index ASC).
func (p Position) Compare(o Position) int {
	if p.Block != o.Block {
		if p.Block < o.Block {
			return -1
		}
		return 1
	}
	if p.TxIndex != o.TxIndex {
		if p.TxIndex < o.TxIndex {
			return -1
		}
		return 1
	}
	if p.LogIndex != o.LogIndex {
		if p.LogIndex < o.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d/%d/%d", p.Block, p.TxIndex, p.LogIndex)
}

// ErrInvalidEvent is returned by Validate for malformed events.
var ErrInvalidEvent = errors.New("invalid event")

// Validate checks that the payload matches Kind and required amounts are present.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if n := e.payloadCount(); n != 1 {
		return fmt.Errorf("%w: %s carries %d payloads", ErrInvalidEvent, e.Kind, n)
	}

	missing := func(field string) error {
		return fmt.Errorf("%w: %s missing %s", ErrInvalidEvent, e.Kind, field)
	}

	switch e.Kind {
	case KindCreateToken:
		p := e.CreateToken
		if p == nil {
			return missing("createToken payload")
		}
		if p.TotalSupply == nil || p.TotalSupply.Sign() < 0 {
			return missing("totalSupply")
		}
	case KindTokenTrade:
		p := e.TokenTrade
		if p == nil {
			return missing("tokenTrade payload")
		}
		for name, v := range map[string]*big.Int{
			"amountIn": p.AmountIn, "amountOut": p.AmountOut, "excludeFee": p.ExcludeFee,
			"liquidity": p.Liquidity, "balanceToDex": p.BalanceToDex,
		} {
			if v == nil || v.Sign() < 0 {
				return missing(name)
			}
		}
		if p.ExcludeFee.Cmp(p.AmountIn) > 0 {
			return fmt.Errorf("%w: fee %s exceeds amountIn %s", ErrInvalidEvent, p.ExcludeFee, p.AmountIn)
		}
	case KindLiquidityTrade:
		p := e.LiquidityTrade
		if p == nil {
			return missing("liquidityTrade payload")
		}
		for name, v := range map[string]*big.Int{
			"tokenBalance": p.TokenBalance, "virtualToken": p.VirtualToken, "liquidity": p.Liquidity,
		} {
			if v == nil || v.Sign() < 0 {
				return missing(name)
			}
		}
	case KindTransferToDex:
		if e.TransferToDex == nil {
			return missing("transferToDex payload")
		}
	case KindTransfer:
		p := e.Transfer
		if p == nil {
			return missing("transfer payload")
		}
		if p.Value == nil || p.Value.Sign() < 0 {
			return missing("value")
		}
	case KindReserveSync:
		p := e.ReserveSync
		if p == nil {
			return missing("reserveSync payload")
		}
		if p.Reserve0 == nil || p.Reserve0.Sign() < 0 {
			return missing("reserve0")
		}
		if p.Reserve1 == nil || p.Reserve1.Sign() < 0 {
			return missing("reserve1")
		}
	}
	return nil
}

func (e *Event) payloadCount() int {
	n := 0
	if e.CreateToken != nil {
		n++
	}
	if e.TokenTrade != nil {
		n++
	}
	if e.LiquidityTrade != nil {
		n++
	}
	if e.TransferToDex != nil {
		n++
	}
	if e.Transfer != nil {
		n++
	}
	if e.ReserveSync != nil {
		n++
	}
	return n
}

// TokenAddress returns the token the event refers to, or "" for ReserveSync.
func (e *Event) TokenAddress() string {
	switch e.Kind {
	case KindCreateToken:
		return e.CreateToken.Token
	case KindTokenTrade:
		return e.TokenTrade.Token
	case KindLiquidityTrade:
		return e.LiquidityTrade.Token
	case KindTransferToDex:
		return e.TransferToDex.Token
	case KindTransfer:
		return e.Source
	}
	return ""
}
