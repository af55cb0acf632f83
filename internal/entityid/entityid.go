// Package entityid builds the primary keys of derived entities.
//
// Every entity kind has its own key type so that a holder key can never be
// passed where a candle key is expected. Keys are plain strings on the wire and
// in storage, built by joining components with "-".
package entityid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"rodeo-indexer/internal/interval"
)

// Singleton keys.
const (
	PlatformKey        = "1"
	LastPriceSampleKey = "1"
)

type (
	UserKey        string
	TokenKey       string
	HolderKey      string
	TradeKey       string
	CandleKey      string
	CurveKey       string
	InsiderKey     string
	PriceSampleKey string
)

func (k UserKey) String() string        { return string(k) }
func (k TokenKey) String() string       { return string(k) }
func (k HolderKey) String() string      { return string(k) }
func (k TradeKey) String() string       { return string(k) }
func (k CandleKey) String() string      { return string(k) }
func (k CurveKey) String() string       { return string(k) }
func (k InsiderKey) String() string     { return string(k) }
func (k PriceSampleKey) String() string { return string(k) }

// NormalizeAddress validates a hex account address and returns it lower-cased with 0x prefix.
func NormalizeAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// NormalizeHash lower-cases a transaction hash and ensures the 0x prefix.
func NormalizeHash(hash string) string {
	h := strings.ToLower(strings.TrimSpace(hash))
	if !strings.HasPrefix(h, "0x") {
		h = "0x" + h
	}
	return h
}

// IsZeroAddress reports whether addr is the zero (mint/burn) address.
func IsZeroAddress(addr string) bool {
	return common.HexToAddress(addr) == (common.Address{})
}

// User returns the key of the user owning addr. addr must already be normalized.
func User(addr string) UserKey {
	return UserKey(addr)
}

// Token returns the key of the token deployed at addr. addr must already be normalized.
func Token(addr string) TokenKey {
	return TokenKey(addr)
}

// Holder returns the key of holder's balance of token.
func Holder(token TokenKey, holder UserKey) HolderKey {
	return HolderKey(join(string(token), string(holder)))
}

// Trade returns the key of the trade emitted at (txHash, logIndex) for token.
func Trade(token TokenKey, txHash string, logIndex uint64) TradeKey {
	return TradeKey(join(string(token), txHash, strconv.FormatUint(logIndex, 10)))
}

// Candle returns the key of token's candle for the bucket of iv containing ts.
func Candle(token TokenKey, iv interval.Interval, ts int64) CandleKey {
	return CandleKey(join(string(token), iv.Name, strconv.FormatInt(iv.Bucket(ts), 10)))
}

// Curve returns the key of token's bonding curve.
func Curve(token TokenKey) CurveKey {
	return CurveKey(token)
}

// Insider returns the key of user's insider record for token.
func Insider(token TokenKey, user UserKey) InsiderKey {
	return InsiderKey(join(string(token), string(user)))
}

// PriceSample returns the key of the reference price sample taken at ts.
func PriceSample(ts int64) PriceSampleKey {
	return PriceSampleKey(strconv.FormatInt(ts, 10))
}

func join(parts ...string) string {
	return strings.Join(parts, "-")
}
