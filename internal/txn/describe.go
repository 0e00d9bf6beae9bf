package txn

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"directionalLiquidity/internal/amm"
	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/model"
)

// DescribeError turns a submission or validation failure into a short message fit for
// an end user.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrBusy):
		return "A transaction is already being submitted"
	case errors.Is(err, amm.ErrNothingToWithdraw):
		return "Enter an amount to withdraw"
	case errors.Is(err, amm.ErrInvalidAmount), errors.Is(err, amount.ErrInvalidAmount):
		return "Enter a valid amount"
	case errors.Is(err, model.ErrSameToken):
		return "Select two different tokens"
	case errors.Is(err, amm.ErrNoLiquidity):
		return "No liquidity for this pair"
	case errors.Is(err, amm.ErrInsufficientLiquidity):
		return "Insufficient liquidity for this trade"
	case errors.Is(err, ErrInsufficientAllowance):
		return "Insufficient token allowance"
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient token balance"
	}

	text := err.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason := revertData(dataErr.ErrorData()); reason != "" {
			text = reason
		}
	}
	if msg := classify(text); msg != "" {
		return msg
	}
	if errors.Is(err, ErrReverted) {
		return "Transaction failed on chain"
	}
	return text
}

func revertData(data interface{}) string {
	raw, ok := data.(string)
	if !ok {
		return ""
	}
	b, err := hexutil.Decode(raw)
	if err != nil {
		return ""
	}
	reason, err := abi.UnpackRevert(b)
	if err != nil {
		return ""
	}
	return reason
}

var messages = []struct {
	needles []string
	message string
}{
	{[]string{"user rejected", "user denied", "action_rejected"}, "Transaction rejected by user"},
	{[]string{"insufficient allowance", "exceeds allowance"}, "Insufficient token allowance"},
	{[]string{"insufficient funds"}, "Insufficient balance to pay for gas"},
	{[]string{"slippage", "insufficient_output_amount", "insufficient output", "excessive_input_amount", "minimum"}, "Price moved beyond your slippage tolerance"},
	{[]string{"expired", "deadline"}, "Transaction deadline expired"},
	{[]string{"nonce too low", "already known", "replacement transaction underpriced"}, "A conflicting transaction is pending"},
}

func classify(text string) string {
	lower := strings.ToLower(text)
	for _, m := range messages {
		for _, needle := range m.needles {
			if strings.Contains(lower, needle) {
				return m.message
			}
		}
	}
	return ""
}
