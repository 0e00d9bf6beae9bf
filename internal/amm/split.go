package amm

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const MaxSlider = 100

// Allocation is the directional split of a two-token deposit. The slider expresses how
// bullish the depositor is on token A; token B receives the mirrored ratio.
type Allocation struct {
	ALong  decimal.Decimal `json:"a_long"`
	AShort decimal.Decimal `json:"a_short"`
	BLong  decimal.Decimal `json:"b_long"`
	BShort decimal.Decimal `json:"b_short"`
}

// Split previews the allocation on human amounts.
func Split(totalA, totalB decimal.Decimal, slider int) (Allocation, error) {
	if err := validateSlider(slider); err != nil {
		return Allocation{}, err
	}
	if totalA.IsNegative() || totalB.IsNegative() {
		return Allocation{}, fmt.Errorf("%w: negative total", ErrInvalidAmount)
	}

	s := decimal.NewFromInt(int64(slider))
	inv := decimal.NewFromInt(int64(MaxSlider - slider))

	return Allocation{
		ALong:  totalA.Mul(s).Shift(-2),
		AShort: totalA.Mul(inv).Shift(-2),
		BLong:  totalB.Mul(inv).Shift(-2),
		BShort: totalB.Mul(s).Shift(-2),
	}, nil
}

// UnitAllocation is the allocation in smallest token units, as submitted on chain.
type UnitAllocation struct {
	ALong  *big.Int
	AShort *big.Int
	BLong  *big.Int
	BShort *big.Int
}

// SplitUnits splits integer totals. The floor remainder goes to the complementary leg,
// so ALong+AShort == totalA and BLong+BShort == totalB exactly.
func SplitUnits(totalA, totalB *big.Int, slider int) (UnitAllocation, error) {
	if err := validateSlider(slider); err != nil {
		return UnitAllocation{}, err
	}
	if totalA == nil || totalB == nil || totalA.Sign() < 0 || totalB.Sign() < 0 {
		return UnitAllocation{}, fmt.Errorf("%w: negative total", ErrInvalidAmount)
	}

	aLong := percentOf(totalA, slider)
	bShort := percentOf(totalB, slider)

	return UnitAllocation{
		ALong:  aLong,
		AShort: new(big.Int).Sub(totalA, aLong),
		BLong:  new(big.Int).Sub(totalB, bShort),
		BShort: bShort,
	}, nil
}

func percentOf(v *big.Int, pct int) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(int64(pct)))
	return out.Quo(out, big.NewInt(MaxSlider))
}

func validateSlider(slider int) error {
	if slider < 0 || slider > MaxSlider {
		return fmt.Errorf("%w: %d", ErrInvalidSlider, slider)
	}
	return nil
}
