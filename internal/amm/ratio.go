package amm

import (
	"github.com/shopspring/decimal"

	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/model"
)

const ratioPrecision = 36

// EnforceRatio returns the amount of the other token that keeps the pool price when
// edited units of one token are deposited. ok is false when the pool does not exist or
// either normalised reserve is zero; the caller then treats the pool as new.
func EnforceRatio(edited decimal.Decimal, editedIsToken0 bool, reserves model.PoolReserves, decimals0, decimals1 uint8) (decimal.Decimal, bool) {
	if !reserves.Exists() || !edited.IsPositive() {
		return decimal.Zero, false
	}

	norm0 := amount.ToDecimal(reserves.Total0(), decimals0)
	norm1 := amount.ToDecimal(reserves.Total1(), decimals1)
	if norm0.IsZero() || norm1.IsZero() {
		return decimal.Zero, false
	}

	editedReserve, otherReserve, otherDecimals := norm0, norm1, decimals1
	if !editedIsToken0 {
		editedReserve, otherReserve, otherDecimals = norm1, norm0, decimals0
	}

	paired := edited.Mul(otherReserve).DivRound(editedReserve, ratioPrecision)
	return amount.Truncate(paired, otherDecimals), true
}

// PoolPrice is the human price of the pair: how many B one A buys and the inverse.
type PoolPrice struct {
	AToB decimal.Decimal `json:"a_to_b"`
	BToA decimal.Decimal `json:"b_to_a"`
}

// InitialPrice derives the price a new pool would be seeded with from the two deposit
// amounts. ok is false when either amount is not positive.
func InitialPrice(amountA, amountB decimal.Decimal) (PoolPrice, bool) {
	if !amountA.IsPositive() || !amountB.IsPositive() {
		return PoolPrice{}, false
	}
	return PoolPrice{
		AToB: amountB.DivRound(amountA, 18),
		BToA: amountA.DivRound(amountB, 18),
	}, true
}

// CurrentPrice derives the human price from existing reserves.
func CurrentPrice(reserves model.PoolReserves, tokenA, tokenB model.Token) (PoolPrice, bool) {
	if !reserves.Exists() {
		return PoolPrice{}, false
	}
	_, _, aFirst, err := model.SortTokens(tokenA, tokenB)
	if err != nil {
		return PoolPrice{}, false
	}
	a := amount.ToDecimal(reserves.Total1(), tokenA.Decimals)
	b := amount.ToDecimal(reserves.Total0(), tokenB.Decimals)
	if aFirst {
		a = amount.ToDecimal(reserves.Total0(), tokenA.Decimals)
		b = amount.ToDecimal(reserves.Total1(), tokenB.Decimals)
	}
	return InitialPrice(a, b)
}
