package amount

import (
	"math/big"
	"time"

	gethmath "github.com/ethereum/go-ethereum/common/math"
)

const (
	BpsDenominator     = 10000
	DefaultSlippageBps = 50
	HighSlippageBps    = 300

	// LPDecimals is the precision of every directional LP token.
	LPDecimals = 18

	MinimumLiquidity = 1000
)

const (
	SwapDeadline      = 20 * time.Minute
	LiquidityDeadline = time.Hour
	LPApprovalTTL     = 2 * time.Hour
)

// MaxUint256 is the unlimited ERC20 allowance.
var MaxUint256 = new(big.Int).Set(gethmath.MaxBig256)

// MinWithSlippage returns value*(10000-bps)/10000.
func MinWithSlippage(value *big.Int, bps uint64) *big.Int {
	if bps > BpsDenominator {
		bps = BpsDenominator
	}
	return scaleBps(value, BpsDenominator-bps)
}

// MaxWithSlippage returns value*(10000+bps)/10000.
func MaxWithSlippage(value *big.Int, bps uint64) *big.Int {
	return scaleBps(value, BpsDenominator+bps)
}

// IsHighSlippage reports tolerances above the warning threshold.
func IsHighSlippage(bps uint64) bool {
	return bps > HighSlippageBps
}

// Deadline returns the unix timestamp ttl after now.
func Deadline(now time.Time, ttl time.Duration) *big.Int {
	return big.NewInt(now.Add(ttl).Unix())
}

func scaleBps(value *big.Int, multiplier uint64) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(value, new(big.Int).SetUint64(multiplier))
	return out.Quo(out, big.NewInt(BpsDenominator))
}
