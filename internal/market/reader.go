package market

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"directionalLiquidity/internal/amm"
	"directionalLiquidity/internal/model"
)

// Reader performs read-only calls against the market and router.
type Reader struct {
	caller Caller
	market common.Address
	router common.Address
}

func NewReader(caller Caller, market, router common.Address) *Reader {
	return &Reader{caller: caller, market: market, router: router}
}

func (r *Reader) Market() common.Address { return r.market }

func (r *Reader) Router() common.Address { return r.router }

// GetReserves returns the four directional reserves of a pair. The tokens may be given in
// either order; the result is always in token0/token1 order.
func (r *Reader) GetReserves(ctx context.Context, tokenA, tokenB common.Address) (model.PoolReserves, error) {
	token0, token1, err := model.SortAddresses(tokenA, tokenB)
	if err != nil {
		return model.PoolReserves{}, err
	}
	parsed, err := MarketABI()
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("parse market abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.market, parsed, "getReserves", token0, token1)
	if err != nil {
		return model.PoolReserves{}, err
	}
	v, err := asBigInts(values, 4)
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("getReserves: %w", err)
	}
	return model.PoolReserves{
		Reserve0Long:  v[0],
		Reserve0Short: v[1],
		Reserve1Long:  v[2],
		Reserve1Short: v[3],
	}, nil
}

// BalanceOf returns an owner's LP balances in (longX, shortX, longY, shortY) order.
func (r *Reader) BalanceOf(ctx context.Context, owner common.Address, pairID *big.Int) ([4]*big.Int, error) {
	var out [4]*big.Int
	parsed, err := MarketABI()
	if err != nil {
		return out, fmt.Errorf("parse market abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.market, parsed, "balanceOf", owner, pairID)
	if err != nil {
		return out, err
	}
	v, err := asBigInts(values, 4)
	if err != nil {
		return out, fmt.Errorf("balanceOf: %w", err)
	}
	copy(out[:], v)
	return out, nil
}

// GetPairID asks the market for the pair identifier of sorted token0/token1.
func (r *Reader) GetPairID(ctx context.Context, token0, token1 common.Address) (*big.Int, error) {
	parsed, err := MarketABI()
	if err != nil {
		return nil, fmt.Errorf("parse market abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.market, parsed, "getPairId", token0, token1)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// QuoteReserve converts LP balances into the underlying token amounts they redeem for,
// in (amount0Long, amount0Short, amount1Long, amount1Short) order.
func (r *Reader) QuoteReserve(ctx context.Context, token0, token1 common.Address, balances [4]*big.Int) ([4]*big.Int, error) {
	var out [4]*big.Int
	parsed, err := RouterABI()
	if err != nil {
		return out, fmt.Errorf("parse router abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.router, parsed, "quoteReserve",
		token0, token1, orZero(balances[0]), orZero(balances[1]), orZero(balances[2]), orZero(balances[3]))
	if err != nil {
		return out, err
	}
	v, err := asBigInts(values, 4)
	if err != nil {
		return out, fmt.Errorf("quoteReserve: %w", err)
	}
	copy(out[:], v)
	return out, nil
}

// RouterAmountOut is the router's own getAmountOut, useful to cross-check local quotes.
func (r *Reader) RouterAmountOut(ctx context.Context, amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	return r.routerPure(ctx, "getAmountOut", amountIn, reserveIn, reserveOut)
}

func (r *Reader) RouterAmountIn(ctx context.Context, amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	return r.routerPure(ctx, "getAmountIn", amountOut, reserveIn, reserveOut)
}

// RouterCheck is the router's price for a locally computed quote.
type RouterCheck struct {
	// Amount is the router's output for an exact-input quote and its input for an
	// exact-output quote.
	Amount *big.Int
	Match  bool
}

// CheckQuote prices q on the router against the same directional reserves.
func (r *Reader) CheckQuote(ctx context.Context, q amm.SwapQuote, exactOut bool) (RouterCheck, error) {
	if exactOut {
		in, err := r.RouterAmountIn(ctx, q.AmountOut, q.ReserveIn, q.ReserveOut)
		if err != nil {
			return RouterCheck{}, fmt.Errorf("getAmountIn: %w", err)
		}
		return RouterCheck{Amount: in, Match: in.Cmp(q.AmountIn) == 0}, nil
	}
	out, err := r.RouterAmountOut(ctx, q.AmountIn, q.ReserveIn, q.ReserveOut)
	if err != nil {
		return RouterCheck{}, fmt.Errorf("getAmountOut: %w", err)
	}
	return RouterCheck{Amount: out, Match: out.Cmp(q.AmountOut) == 0}, nil
}

func (r *Reader) routerPure(ctx context.Context, method string, amount, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	parsed, err := RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.router, parsed, method, amount, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Allowance returns the ERC20 allowance owner granted spender.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, token, parsed, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// TokenBalance returns the ERC20 balance of owner.
func (r *Reader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// SimulateRemoveLiquidity static-calls removeLiquidity as from and returns the token
// amounts the removal would pay out.
func (r *Reader) SimulateRemoveLiquidity(ctx context.Context, from common.Address, call RemoveLiquidityCall) (*big.Int, *big.Int, error) {
	parsed, err := RouterABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse router abi: %w", err)
	}
	values, err := callMethodFrom(ctx, r.caller, from, r.router, parsed, "removeLiquidity", call.args()...)
	if err != nil {
		return nil, nil, err
	}
	v, err := asBigInts(values, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("removeLiquidity: %w", err)
	}
	return v[0], v[1], nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
