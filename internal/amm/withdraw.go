package amm

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/model"
)

// Resolve turns one withdrawal input into an absolute amount no larger than max.
// Invalid or negative input resolves to zero.
func Resolve(w model.WithdrawalAmount, max decimal.Decimal) decimal.Decimal {
	if !max.IsPositive() {
		return decimal.Zero
	}
	if w.UsePercentage {
		pct := w.Percentage
		if pct <= 0 {
			return decimal.Zero
		}
		if pct > 100 {
			pct = 100
		}
		return max.Mul(decimal.NewFromInt(int64(pct))).Shift(-2)
	}

	parsed, err := amount.ParseDecimal(w.Amount)
	if err != nil {
		return decimal.Zero
	}
	return decimal.Min(parsed, max)
}

// ResolveUnits resolves against an integer balance with the given decimals.
func ResolveUnits(w model.WithdrawalAmount, max *big.Int, decimals uint8) *big.Int {
	if max == nil || max.Sign() <= 0 {
		return new(big.Int)
	}
	resolved := amount.FromDecimal(Resolve(w, amount.ToDecimal(max, decimals)), decimals)
	if resolved.Cmp(max) > 0 {
		return new(big.Int).Set(max)
	}
	return resolved
}

// ResolveAll resolves the four LP components against balances given in
// (long0, short0, long1, short1) order. A request that resolves to nothing is rejected.
func ResolveAll(req model.WithdrawalRequest, balances [4]*big.Int) ([4]*big.Int, error) {
	var out [4]*big.Int
	total := new(big.Int)
	for i, w := range req.Components() {
		out[i] = ResolveUnits(w, balances[i], amount.LPDecimals)
		total.Add(total, out[i])
	}
	if total.Sign() == 0 {
		return out, ErrNothingToWithdraw
	}
	return out, nil
}

// ParseWithdrawal reads "25%", "max" or an absolute amount. An empty string withdraws
// nothing.
func ParseWithdrawal(text string) (model.WithdrawalAmount, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return model.WithdrawalAmount{Amount: "0"}, nil
	case strings.EqualFold(text, "max"), strings.EqualFold(text, "all"):
		return model.WithdrawalAmount{Percentage: 100, UsePercentage: true}, nil
	case strings.HasSuffix(text, "%"):
		pct, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(text, "%")))
		if err != nil || pct < 0 || pct > 100 {
			return model.WithdrawalAmount{}, fmt.Errorf("%w: percentage %q", ErrInvalidAmount, text)
		}
		return model.WithdrawalAmount{Percentage: pct, UsePercentage: true}, nil
	default:
		if _, err := amount.ParseDecimal(text); err != nil {
			return model.WithdrawalAmount{}, err
		}
		return model.WithdrawalAmount{Amount: text}, nil
	}
}
