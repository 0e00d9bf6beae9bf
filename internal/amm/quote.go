package amm

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/model"
)

// Swap fee of 0.3%, as numerator/denominator.
const (
	FeeNumerator   = 3
	FeeDenominator = 1000
)

const impactPrecision = 18

var (
	feeDenominator = big.NewInt(FeeDenominator)
	feeMultiplier  = big.NewInt(FeeDenominator - FeeNumerator)
	hundred        = decimal.NewFromInt(100)
)

// QuoteOut returns the output amount of a constant-product swap after the fee.
func QuoteOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if err := checkReserves(reserveIn, reserveOut); err != nil {
		return nil, err
	}
	if err := checkAmount(amountIn); err != nil {
		return nil, err
	}

	amountInWithFee := new(big.Int).Mul(amountIn, feeMultiplier)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDenominator)
	denominator.Add(denominator, amountInWithFee)

	return numerator.Quo(numerator, denominator), nil
}

// QuoteIn returns the input amount required to receive amountOut. It rounds up so that
// QuoteOut(QuoteIn(y)) >= y.
func QuoteIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if err := checkReserves(reserveIn, reserveOut); err != nil {
		return nil, err
	}
	if err := checkAmount(amountOut); err != nil {
		return nil, err
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: want %s of %s", ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, feeDenominator)
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, feeMultiplier)

	amountIn := numerator.Quo(numerator, denominator)
	return amountIn.Add(amountIn, big.NewInt(1)), nil
}

// PriceImpact is the relative shortfall of the execution price against the spot price,
// in percent. The fee is part of the shortfall.
func PriceImpact(amountIn, reserveIn, reserveOut *big.Int) (decimal.Decimal, error) {
	amountOut, err := QuoteOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return decimal.Zero, err
	}
	return impactOf(amountIn, amountOut, reserveIn, reserveOut), nil
}

// (spot - exec) / spot == 1 - (out*rIn)/(in*rOut)
func impactOf(amountIn, amountOut, reserveIn, reserveOut *big.Int) decimal.Decimal {
	num := new(big.Int).Mul(amountOut, reserveIn)
	den := new(big.Int).Mul(amountIn, reserveOut)
	ratio := decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), impactPrecision)
	return decimal.NewFromInt(1).Sub(ratio).Mul(hundred)
}

// ImpactLevel buckets a price impact for display.
type ImpactLevel int

const (
	ImpactLow ImpactLevel = iota
	ImpactMedium
	ImpactHigh
)

var (
	impactMediumFrom = decimal.NewFromInt(1)
	impactHighFrom   = decimal.NewFromInt(3)
)

func ClassifyImpact(pct decimal.Decimal) ImpactLevel {
	switch {
	case pct.LessThan(impactMediumFrom):
		return ImpactLow
	case pct.LessThan(impactHighFrom):
		return ImpactMedium
	default:
		return ImpactHigh
	}
}

// IsHighImpact reports impacts that need an explicit warning.
func IsHighImpact(pct decimal.Decimal) bool {
	return pct.GreaterThan(impactHighFrom)
}

func (l ImpactLevel) String() string {
	switch l {
	case ImpactMedium:
		return "medium"
	case ImpactHigh:
		return "high"
	default:
		return "low"
	}
}

func (l ImpactLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// SwapQuote is a priced swap against one directional side of a pool.
type SwapQuote struct {
	AmountIn    *big.Int
	AmountOut   *big.Int
	MinimumOut  *big.Int
	MaximumIn   *big.Int
	ReserveIn   *big.Int
	ReserveOut  *big.Int
	PriceImpact decimal.Decimal
	Level       ImpactLevel
}

// Quote prices an exact-input swap. token0In selects the orientation and long the
// directional side of the pool.
func Quote(amountIn *big.Int, reserves model.PoolReserves, token0In, long bool, slippageBps uint64) (SwapQuote, error) {
	reserveIn, reserveOut := reserves.Directional(token0In, long)
	amountOut, err := QuoteOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return SwapQuote{}, err
	}
	impact := impactOf(amountIn, amountOut, reserveIn, reserveOut)
	return SwapQuote{
		AmountIn:    new(big.Int).Set(amountIn),
		AmountOut:   amountOut,
		MinimumOut:  amount.MinWithSlippage(amountOut, slippageBps),
		MaximumIn:   new(big.Int).Set(amountIn),
		ReserveIn:   reserveIn,
		ReserveOut:  reserveOut,
		PriceImpact: impact,
		Level:       ClassifyImpact(impact),
	}, nil
}

// QuoteExactOut prices a swap that must deliver amountOut.
func QuoteExactOut(amountOut *big.Int, reserves model.PoolReserves, token0In, long bool, slippageBps uint64) (SwapQuote, error) {
	reserveIn, reserveOut := reserves.Directional(token0In, long)
	amountIn, err := QuoteIn(amountOut, reserveIn, reserveOut)
	if err != nil {
		return SwapQuote{}, err
	}
	impact := impactOf(amountIn, amountOut, reserveIn, reserveOut)
	return SwapQuote{
		AmountIn:    amountIn,
		AmountOut:   new(big.Int).Set(amountOut),
		MinimumOut:  new(big.Int).Set(amountOut),
		MaximumIn:   amount.MaxWithSlippage(amountIn, slippageBps),
		ReserveIn:   reserveIn,
		ReserveOut:  reserveOut,
		PriceImpact: impact,
		Level:       ClassifyImpact(impact),
	}, nil
}

func checkReserves(reserveIn, reserveOut *big.Int) error {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return ErrNoLiquidity
	}
	return nil
}

func checkAmount(v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
