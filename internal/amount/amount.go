package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts a human decimal string into smallest units. Fractional digits beyond
// decimals are truncated.
func Parse(text string, decimals uint8) (*big.Int, error) {
	d, err := ParseDecimal(text)
	if err != nil {
		return nil, err
	}
	return FromDecimal(d, decimals), nil
}

// ParseDecimal parses a non-negative decimal string.
func ParseDecimal(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative %q", ErrInvalidAmount, text)
	}
	return d, nil
}

// FromDecimal scales d by 10^decimals and truncates toward zero.
func FromDecimal(d decimal.Decimal, decimals uint8) *big.Int {
	return d.Shift(int32(decimals)).BigInt()
}

// ToDecimal interprets value as an amount with the given decimals.
func ToDecimal(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}

// Format renders value with trailing fractional zeros removed ("12.5", "10").
func Format(value *big.Int, decimals uint8) string {
	return ToDecimal(value, decimals).String()
}

// Truncate drops fractional digits beyond decimals.
func Truncate(d decimal.Decimal, decimals uint8) decimal.Decimal {
	return d.Truncate(int32(decimals))
}
