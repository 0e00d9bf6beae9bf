package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AddLiquidityCall holds the router addLiquidity arguments. Token0 must sort before Token1.
type AddLiquidityCall struct {
	Token0       common.Address
	Token1       common.Address
	Amount0Long  *big.Int
	Amount0Short *big.Int
	Amount1Long  *big.Int
	Amount1Short *big.Int
	// Per-leg minimum LP output.
	LongXMin  *big.Int
	ShortXMin *big.Int
	LongYMin  *big.Int
	ShortYMin *big.Int
	To        common.Address
	Deadline  *big.Int
}

func (c AddLiquidityCall) Pack() ([]byte, error) {
	parsed, err := RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	return parsed.Pack("addLiquidity",
		c.Token0, c.Token1,
		orZero(c.Amount0Long), orZero(c.Amount0Short), orZero(c.Amount1Long), orZero(c.Amount1Short),
		orZero(c.LongXMin), orZero(c.ShortXMin), orZero(c.LongYMin), orZero(c.ShortYMin),
		c.To, orZero(c.Deadline),
	)
}

// RemoveLiquidityCall holds the router removeLiquidity arguments. LP amounts use 18 decimals.
type RemoveLiquidityCall struct {
	Token0     common.Address
	Token1     common.Address
	LongX      *big.Int
	ShortX     *big.Int
	LongY      *big.Int
	ShortY     *big.Int
	Amount0Min *big.Int
	Amount1Min *big.Int
	To         common.Address
	Deadline   *big.Int
}

func (c RemoveLiquidityCall) args() []interface{} {
	return []interface{}{
		c.Token0, c.Token1,
		orZero(c.LongX), orZero(c.ShortX), orZero(c.LongY), orZero(c.ShortY),
		orZero(c.Amount0Min), orZero(c.Amount1Min),
		c.To, orZero(c.Deadline),
	}
}

func (c RemoveLiquidityCall) Pack() ([]byte, error) {
	parsed, err := RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	return parsed.Pack("removeLiquidity", c.args()...)
}

// SwapCall holds the router swap arguments. Long selects the long-side reserves.
type SwapCall struct {
	Path         []common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Long         bool
	To           common.Address
	Deadline     *big.Int
}

func (c SwapCall) Pack() ([]byte, error) {
	if len(c.Path) < 2 {
		return nil, fmt.Errorf("swap path needs at least two tokens")
	}
	parsed, err := RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	return parsed.Pack("swap", c.Path, orZero(c.AmountIn), orZero(c.AmountOutMin), c.Long, c.To, orZero(c.Deadline))
}

// PackApprove builds ERC20 approve(spender, amount) calldata.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return parsed.Pack("approve", spender, orZero(amount))
}

// PackLPApprove builds the market's TTL-based LP approval for one pool.
func PackLPApprove(spender common.Address, poolID, deadline *big.Int) ([]byte, error) {
	parsed, err := MarketABI()
	if err != nil {
		return nil, fmt.Errorf("parse market abi: %w", err)
	}
	return parsed.Pack("approve", spender, orZero(poolID), orZero(deadline))
}
