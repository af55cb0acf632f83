package rollup

import (
	"math/big"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/fixedpoint"
)

// Thresholds are the liquidity milestone flags of a token after one trade.
type Thresholds struct {
	ReachedOneMillion     bool
	ReachedOneMillionAt   int64
	ReachedHalfwayToDex   bool
	ReachedHalfwayToDexAt int64
}

// EvaluateThresholds computes the milestone flags from a trade's pool state alone.
// Flags are not sticky: a trade below a threshold clears it and zeroes its timestamp.
//
//	reachedOneMillion   = liquidity > 1_000_000e18
//	reachedHalfwayToDex = liquidity > balanceToDex / 2
func EvaluateThresholds(liquidity, balanceToDex *big.Int, ts int64) Thresholds {
	var th Thresholds
	liq := fixedpoint.Clone(liquidity)

	if liq.Cmp(fixedpoint.OneMillion) > 0 {
		th.ReachedOneMillion = true
		th.ReachedOneMillionAt = ts
	}

	half := new(big.Int).Quo(fixedpoint.Clone(balanceToDex), big.NewInt(2))
	if liq.Cmp(half) > 0 {
		th.ReachedHalfwayToDex = true
		th.ReachedHalfwayToDexAt = ts
	}
	return th
}

// ApplyThresholds overwrites t's milestone flags with th.
func ApplyThresholds(t *domain.Token, th Thresholds) {
	t.ReachedOneMillion = th.ReachedOneMillion
	t.ReachedOneMillionAt = th.ReachedOneMillionAt
	t.ReachedHalfwayToDex = th.ReachedHalfwayToDex
	t.ReachedHalfwayToDexAt = th.ReachedHalfwayToDexAt
}
