package model

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrSameToken = errors.New("tokens must differ")

// Token captures ERC20 metadata for one side of a pair.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name,omitempty"`
	Decimals uint8          `json:"decimals"`
	ChainID  uint64         `json:"chain_id,omitempty"`
}

// Key is the canonical lowercase hex form used for ordering and comparison.
func (t Token) Key() string {
	return AddressKey(t.Address)
}

func AddressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// LessAddress reports whether a sorts before b in the pairing contract's order.
func LessAddress(a, b common.Address) bool {
	return AddressKey(a) < AddressKey(b)
}

// SortAddresses returns (token0, token1) ordered ascending.
func SortAddresses(a, b common.Address) (common.Address, common.Address, error) {
	if a == b {
		return common.Address{}, common.Address{}, ErrSameToken
	}
	if LessAddress(a, b) {
		return a, b, nil
	}
	return b, a, nil
}

// SortTokens orders two tokens into (token0, token1). aFirst is true when a became token0.
func SortTokens(a, b Token) (token0 Token, token1 Token, aFirst bool, err error) {
	if a.Address == b.Address {
		return Token{}, Token{}, false, ErrSameToken
	}
	if LessAddress(a.Address, b.Address) {
		return a, b, true, nil
	}
	return b, a, false, nil
}
