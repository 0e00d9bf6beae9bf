package amm

import "errors"

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidSlider         = errors.New("slider percent must be within [0,100]")
	ErrNoLiquidity           = errors.New("no liquidity")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNothingToWithdraw     = errors.New("nothing to withdraw")
)
