package chaintest

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Method answers one contract method with unpacked arguments.
type Method func(from common.Address, args []interface{}) ([]interface{}, error)

// Contract dispatches eth_call data by selector and ABI-encodes the method results.
func Contract(parsed abi.ABI, methods map[string]Method) CallHandler {
	return func(from common.Address, data []byte) ([]byte, error) {
		if len(data) < 4 {
			return nil, fmt.Errorf("short calldata")
		}
		method, err := parsed.MethodById(data[:4])
		if err != nil {
			return nil, err
		}
		fn, ok := methods[method.Name]
		if !ok {
			return nil, fmt.Errorf("execution reverted: %s not scripted", method.Name)
		}
		args, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
		}
		out, err := fn(from, args)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(out...)
	}
}

// Merge combines handlers for contracts that expose several ABIs at one address. The
// first handler that does not fail wins.
func Merge(handlers ...CallHandler) CallHandler {
	return func(from common.Address, data []byte) ([]byte, error) {
		var lastErr error
		for _, h := range handlers {
			out, err := h(from, data)
			if err == nil {
				return out, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}
