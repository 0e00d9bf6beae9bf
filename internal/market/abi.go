package market

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const marketABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token0", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token1", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "pairId", "type": "uint256"}
    ],
    "name": "Create",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "pairId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "longX", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "shortX", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "longY", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "shortY", "type": "uint256"}
    ],
    "name": "Mint",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"}
    ],
    "name": "getReserves",
    "outputs": [
      {"internalType": "uint256", "name": "reserve0Long", "type": "uint256"},
      {"internalType": "uint256", "name": "reserve0Short", "type": "uint256"},
      {"internalType": "uint256", "name": "reserve1Long", "type": "uint256"},
      {"internalType": "uint256", "name": "reserve1Short", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "uint256", "name": "poolId", "type": "uint256"}
    ],
    "name": "balanceOf",
    "outputs": [
      {"internalType": "uint256", "name": "longX", "type": "uint256"},
      {"internalType": "uint256", "name": "shortX", "type": "uint256"},
      {"internalType": "uint256", "name": "longY", "type": "uint256"},
      {"internalType": "uint256", "name": "shortY", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"}
    ],
    "name": "getPairId",
    "outputs": [{"internalType": "uint256", "name": "pairId", "type": "uint256"}],
    "stateMutability": "pure",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "spender", "type": "address"},
      {"internalType": "uint256", "name": "poolId", "type": "uint256"},
      {"internalType": "uint256", "name": "deadline", "type": "uint256"}
    ],
    "name": "approve",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const routerABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint256", "name": "longX", "type": "uint256"},
      {"internalType": "uint256", "name": "shortX", "type": "uint256"},
      {"internalType": "uint256", "name": "longY", "type": "uint256"},
      {"internalType": "uint256", "name": "shortY", "type": "uint256"}
    ],
    "name": "quoteReserve",
    "outputs": [
      {"internalType": "uint256", "name": "amount0Long", "type": "uint256"},
      {"internalType": "uint256", "name": "amount0Short", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1Long", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1Short", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint256", "name": "amount0Long", "type": "uint256"},
      {"internalType": "uint256", "name": "amount0Short", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1Long", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1Short", "type": "uint256"},
      {"internalType": "uint256", "name": "longXMinimum", "type": "uint256"},
      {"internalType": "uint256", "name": "shortXMinimum", "type": "uint256"},
      {"internalType": "uint256", "name": "longYMinimum", "type": "uint256"},
      {"internalType": "uint256", "name": "shortYMinimum", "type": "uint256"},
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "deadline", "type": "uint256"}
    ],
    "name": "addLiquidity",
    "outputs": [
      {"internalType": "uint256", "name": "longX", "type": "uint256"},
      {"internalType": "uint256", "name": "shortX", "type": "uint256"},
      {"internalType": "uint256", "name": "longY", "type": "uint256"},
      {"internalType": "uint256", "name": "shortY", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint256", "name": "longX", "type": "uint256"},
      {"internalType": "uint256", "name": "shortX", "type": "uint256"},
      {"internalType": "uint256", "name": "longY", "type": "uint256"},
      {"internalType": "uint256", "name": "shortY", "type": "uint256"},
      {"internalType": "uint256", "name": "amount0Minimum", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1Minimum", "type": "uint256"},
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "deadline", "type": "uint256"}
    ],
    "name": "removeLiquidity",
    "outputs": [
      {"internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address[]", "name": "path", "type": "address[]"},
      {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
      {"internalType": "bool", "name": "long", "type": "bool"},
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "deadline", "type": "uint256"}
    ],
    "name": "swap",
    "outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"internalType": "uint256", "name": "reserveIn", "type": "uint256"},
      {"internalType": "uint256", "name": "reserveOut", "type": "uint256"}
    ],
    "name": "getAmountOut",
    "outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
    "stateMutability": "pure",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "amountOut", "type": "uint256"},
      {"internalType": "uint256", "name": "reserveIn", "type": "uint256"},
      {"internalType": "uint256", "name": "reserveOut", "type": "uint256"}
    ],
    "name": "getAmountIn",
    "outputs": [{"internalType": "uint256", "name": "amountIn", "type": "uint256"}],
    "stateMutability": "pure",
    "type": "function"
  }
]`

var (
	marketABI     abi.ABI
	marketABIOnce sync.Once
	marketABIErr  error
	routerABI     abi.ABI
	routerABIOnce sync.Once
	routerABIErr  error
)

// MarketABI returns the parsed market ABI. The market contract also carries the LP
// token surface, so the TTL-based approve lives here.
func MarketABI() (abi.ABI, error) {
	marketABIOnce.Do(func() {
		marketABI, marketABIErr = abi.JSON(strings.NewReader(marketABIJSON))
	})
	return marketABI, marketABIErr
}

// RouterABI returns the parsed router ABI.
func RouterABI() (abi.ABI, error) {
	routerABIOnce.Do(func() {
		routerABI, routerABIErr = abi.JSON(strings.NewReader(routerABIJSON))
	})
	return routerABI, routerABIErr
}
