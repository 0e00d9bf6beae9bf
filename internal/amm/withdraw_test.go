package amm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   model.WithdrawalAmount
		max  string
		want string
	}{
		{name: "percentage", in: model.WithdrawalAmount{Percentage: 25, UsePercentage: true}, max: "50.0", want: "12.5"},
		{name: "absolute clamps", in: model.WithdrawalAmount{Amount: "999"}, max: "10", want: "10"},
		{name: "absolute within max", in: model.WithdrawalAmount{Amount: "2.25"}, max: "10", want: "2.25"},
		{name: "non numeric", in: model.WithdrawalAmount{Amount: "abc"}, max: "10", want: "0"},
		{name: "negative", in: model.WithdrawalAmount{Amount: "-3"}, max: "10", want: "0"},
		{name: "empty", in: model.WithdrawalAmount{}, max: "10", want: "0"},
		{name: "percentage above 100", in: model.WithdrawalAmount{Percentage: 150, UsePercentage: true}, max: "8", want: "8"},
		{name: "negative percentage", in: model.WithdrawalAmount{Percentage: -5, UsePercentage: true}, max: "8", want: "0"},
		{name: "zero max", in: model.WithdrawalAmount{Percentage: 50, UsePercentage: true}, max: "0", want: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.in, dec(tc.max))
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestResolveUnits(t *testing.T) {
	max, err := amount.Parse("50", amount.LPDecimals)
	require.NoError(t, err)

	got := ResolveUnits(model.WithdrawalAmount{Percentage: 25, UsePercentage: true}, max, amount.LPDecimals)
	assert.Equal(t, "12.5", amount.Format(got, amount.LPDecimals))

	got = ResolveUnits(model.WithdrawalAmount{Amount: "51"}, max, amount.LPDecimals)
	assert.Equal(t, 0, got.Cmp(max))

	got = ResolveUnits(model.WithdrawalAmount{Amount: "1"}, nil, amount.LPDecimals)
	assert.Equal(t, 0, got.Sign())
}

func TestResolveAll(t *testing.T) {
	one, err := amount.Parse("1", amount.LPDecimals)
	require.NoError(t, err)
	balances := [4]*big.Int{one, one, big.NewInt(0), one}

	req := model.WithdrawalRequest{
		Long0:  model.WithdrawalAmount{Percentage: 100, UsePercentage: true},
		Short0: model.WithdrawalAmount{Amount: "0.5"},
		Long1:  model.WithdrawalAmount{Amount: "3"},
	}
	out, err := ResolveAll(req, balances)
	require.NoError(t, err)
	assert.Equal(t, "1", amount.Format(out[0], amount.LPDecimals))
	assert.Equal(t, "0.5", amount.Format(out[1], amount.LPDecimals))
	assert.Equal(t, "0", amount.Format(out[2], amount.LPDecimals))
	assert.Equal(t, "0", amount.Format(out[3], amount.LPDecimals))

	_, err = ResolveAll(model.WithdrawalRequest{}, balances)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)

	_, err = ResolveAll(model.WithdrawalRequest{Long1: model.WithdrawalAmount{Percentage: 50, UsePercentage: true}}, balances)
	assert.ErrorIs(t, err, ErrNothingToWithdraw, "zero balance resolves to nothing")
}

func TestParseWithdrawal(t *testing.T) {
	w, err := ParseWithdrawal("25%")
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalAmount{Percentage: 25, UsePercentage: true}, w)

	w, err = ParseWithdrawal("max")
	require.NoError(t, err)
	assert.Equal(t, 100, w.Percentage)

	w, err = ParseWithdrawal("1.75")
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalAmount{Amount: "1.75"}, w)

	w, err = ParseWithdrawal("")
	require.NoError(t, err)
	assert.False(t, w.UsePercentage)

	_, err = ParseWithdrawal("120%")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseWithdrawal("x")
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)
}
