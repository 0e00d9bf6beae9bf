package txn

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"directionalLiquidity/internal/amm"
	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/market"
	"directionalLiquidity/internal/model"
)

// ErrInsufficientAllowance is returned when an approval did not take effect.
var ErrInsufficientAllowance = errors.New("insufficient allowance after approval")

// ErrInsufficientBalance is returned before any call is made when the owner holds less
// of a token than the flow spends.
var ErrInsufficientBalance = errors.New("insufficient token balance")

// Call is one contract call of a flow.
type Call struct {
	Description string         `json:"description"`
	To          common.Address `json:"to"`
	Data        hexutil.Bytes  `json:"data"`
	TxHash      *common.Hash   `json:"tx_hash,omitempty"`
}

// Outcome reports the calls a flow made, or would make in a dry run.
type Outcome struct {
	DryRun bool   `json:"dry_run"`
	Calls  []Call `json:"calls"`
	// Set by RemoveLiquidity from the pre-flight simulation.
	Amount0 *big.Int `json:"amount0,omitempty"`
	Amount1 *big.Int `json:"amount1,omitempty"`
	// Set by Swap.
	Quote *amm.SwapQuote `json:"-"`
}

// Flows runs the approval and router call sequences for one owner. With a nil
// Submitter every flow is a dry run.
type Flows struct {
	Reader    *market.Reader
	Submitter *Submitter
	Owner     common.Address
	// Deadline overrides the per-operation default when positive.
	Deadline time.Duration
	Now      func() time.Time
	Logger   *zap.Logger

	submitting atomic.Bool
}

// AddParams describes a deposit. Tokens may be given in any order.
type AddParams struct {
	TokenA       common.Address
	TokenB       common.Address
	AmountALong  *big.Int
	AmountAShort *big.Int
	AmountBLong  *big.Int
	AmountBShort *big.Int
	// MinimumBps derives per-leg minimums from the deposited amounts. Zero sends zero
	// minimums and leaves protection to the router.
	MinimumBps uint64
}

// RemoveParams describes a withdrawal against a known position.
type RemoveParams struct {
	Token0 common.Address
	Token1 common.Address
	// LP balances in (longX, shortX, longY, shortY) order.
	Balances    [4]*big.Int
	Request     model.WithdrawalRequest
	SlippageBps uint64
}

// SwapParams describes an exact-input swap.
type SwapParams struct {
	TokenIn     common.Address
	TokenOut    common.Address
	AmountIn    *big.Int
	Long        bool
	SlippageBps uint64
}

// AddLiquidity approves both tokens to the router where needed and deposits.
func (f *Flows) AddLiquidity(ctx context.Context, p AddParams) (Outcome, error) {
	if !f.submitting.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer f.submitting.Store(false)

	token0, token1, err := model.SortAddresses(p.TokenA, p.TokenB)
	if err != nil {
		return Outcome{}, err
	}
	a0L, a0S, a1L, a1S := orZero(p.AmountALong), orZero(p.AmountAShort), orZero(p.AmountBLong), orZero(p.AmountBShort)
	if token0 != p.TokenA {
		a0L, a0S, a1L, a1S = a1L, a1S, a0L, a0S
	}
	total0 := new(big.Int).Add(a0L, a0S)
	total1 := new(big.Int).Add(a1L, a1S)
	if total0.Sign() == 0 && total1.Sign() == 0 {
		return Outcome{}, amm.ErrInvalidAmount
	}

	out := Outcome{DryRun: f.dryRun()}
	router := f.Reader.Router()
	legs := []struct {
		token common.Address
		total *big.Int
	}{{token0, total0}, {token1, total1}}
	for _, leg := range legs {
		if leg.total.Sign() == 0 {
			continue
		}
		if err := f.checkBalance(ctx, leg.token, leg.total); err != nil {
			return out, err
		}
	}
	for _, leg := range legs {
		if leg.total.Sign() == 0 {
			continue
		}
		if err := f.ensureAllowance(ctx, &out, leg.token, router, leg.total); err != nil {
			return out, err
		}
	}

	minimum := func(v *big.Int) *big.Int {
		if p.MinimumBps == 0 {
			return new(big.Int)
		}
		return amount.MinWithSlippage(v, p.MinimumBps)
	}
	data, err := market.AddLiquidityCall{
		Token0:       token0,
		Token1:       token1,
		Amount0Long:  a0L,
		Amount0Short: a0S,
		Amount1Long:  a1L,
		Amount1Short: a1S,
		LongXMin:     minimum(a0L),
		ShortXMin:    minimum(a0S),
		LongYMin:     minimum(a1L),
		ShortYMin:    minimum(a1S),
		To:           f.Owner,
		Deadline:     f.deadline(amount.LiquidityDeadline),
	}.Pack()
	if err != nil {
		return out, fmt.Errorf("pack addLiquidity: %w", err)
	}
	err = f.exec(ctx, &out, "addLiquidity", router, data)
	return out, err
}

// RemoveLiquidity resolves the withdrawal, approves the router for the pool's LP
// tokens, simulates the removal to bound slippage, then removes.
func (f *Flows) RemoveLiquidity(ctx context.Context, p RemoveParams) (Outcome, error) {
	if !f.submitting.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer f.submitting.Store(false)

	withdraw, err := amm.ResolveAll(p.Request, p.Balances)
	if err != nil {
		return Outcome{}, err
	}
	if !model.LessAddress(p.Token0, p.Token1) {
		return Outcome{}, fmt.Errorf("token0 %s must sort before token1 %s", p.Token0.Hex(), p.Token1.Hex())
	}

	out := Outcome{DryRun: f.dryRun()}
	poolID, err := f.Reader.GetPairID(ctx, p.Token0, p.Token1)
	if err != nil {
		return out, fmt.Errorf("get pair id: %w", err)
	}
	approve, err := market.PackLPApprove(f.Reader.Router(), poolID, f.at(amount.LPApprovalTTL))
	if err != nil {
		return out, err
	}
	if err := f.exec(ctx, &out, fmt.Sprintf("approve LP pool %s", poolID), f.Reader.Market(), approve); err != nil {
		return out, err
	}

	call := market.RemoveLiquidityCall{
		Token0:   p.Token0,
		Token1:   p.Token1,
		LongX:    withdraw[0],
		ShortX:   withdraw[1],
		LongY:    withdraw[2],
		ShortY:   withdraw[3],
		To:       f.Owner,
		Deadline: f.deadline(amount.LiquidityDeadline),
	}
	amount0, amount1, err := f.Reader.SimulateRemoveLiquidity(ctx, f.Owner, call)
	switch {
	case err == nil:
		out.Amount0, out.Amount1 = amount0, amount1
		call.Amount0Min = amount.MinWithSlippage(amount0, p.SlippageBps)
		call.Amount1Min = amount.MinWithSlippage(amount1, p.SlippageBps)
	case out.DryRun:
		f.logger().Warn("removal simulation failed", zap.Error(err))
	default:
		return out, fmt.Errorf("simulate removeLiquidity: %w", err)
	}

	data, err := call.Pack()
	if err != nil {
		return out, fmt.Errorf("pack removeLiquidity: %w", err)
	}
	err = f.exec(ctx, &out, "removeLiquidity", f.Reader.Router(), data)
	return out, err
}

// Swap quotes against current reserves, approves the input token if needed and swaps
// with a minimum output derived from the slippage tolerance.
func (f *Flows) Swap(ctx context.Context, p SwapParams) (Outcome, error) {
	if !f.submitting.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer f.submitting.Store(false)

	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return Outcome{}, amm.ErrInvalidAmount
	}
	reserves, err := f.Reader.GetReserves(ctx, p.TokenIn, p.TokenOut)
	if err != nil {
		return Outcome{}, fmt.Errorf("get reserves: %w", err)
	}
	token0In := model.LessAddress(p.TokenIn, p.TokenOut)
	quote, err := amm.Quote(p.AmountIn, reserves, token0In, p.Long, p.SlippageBps)
	if err != nil {
		return Outcome{}, err
	}

	// The router prices the swap on chain; a lower answer than ours bounds the minimum.
	check, err := f.Reader.CheckQuote(ctx, quote, false)
	switch {
	case err != nil:
		f.logger().Warn("router quote check failed", zap.Error(err))
	case !check.Match:
		f.logger().Warn("router quote differs",
			zap.String("local_out", quote.AmountOut.String()),
			zap.String("router_out", check.Amount.String()),
		)
		if check.Amount.Cmp(quote.AmountOut) < 0 {
			quote.MinimumOut = amount.MinWithSlippage(check.Amount, p.SlippageBps)
		}
	}

	out := Outcome{DryRun: f.dryRun(), Quote: &quote}
	if err := f.checkBalance(ctx, p.TokenIn, p.AmountIn); err != nil {
		return out, err
	}
	router := f.Reader.Router()
	if err := f.ensureAllowance(ctx, &out, p.TokenIn, router, p.AmountIn); err != nil {
		return out, err
	}

	data, err := market.SwapCall{
		Path:         []common.Address{p.TokenIn, p.TokenOut},
		AmountIn:     p.AmountIn,
		AmountOutMin: quote.MinimumOut,
		Long:         p.Long,
		To:           f.Owner,
		Deadline:     f.deadline(amount.SwapDeadline),
	}.Pack()
	if err != nil {
		return out, fmt.Errorf("pack swap: %w", err)
	}
	err = f.exec(ctx, &out, "swap", router, data)
	return out, err
}

// checkBalance fails when the owner holds less than need of token. A dry run tolerates
// an unreadable balance.
func (f *Flows) checkBalance(ctx context.Context, token common.Address, need *big.Int) error {
	balance, err := f.Reader.TokenBalance(ctx, token, f.Owner)
	if err != nil {
		if f.dryRun() {
			f.logger().Warn("token balance unavailable", zap.String("token", token.Hex()), zap.Error(err))
			return nil
		}
		return fmt.Errorf("balance %s: %w", token.Hex(), err)
	}
	if balance.Cmp(need) < 0 {
		return fmt.Errorf("%w: token %s has %s, needs %s", ErrInsufficientBalance, token.Hex(), balance, need)
	}
	return nil
}

// ensureAllowance approves MaxUint256 when the current allowance is short, then checks
// that the approval landed.
func (f *Flows) ensureAllowance(ctx context.Context, out *Outcome, token, spender common.Address, need *big.Int) error {
	current, err := f.Reader.Allowance(ctx, token, f.Owner, spender)
	if err != nil {
		return fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}
	if current.Cmp(need) >= 0 {
		return nil
	}

	data, err := market.PackApprove(spender, amount.MaxUint256)
	if err != nil {
		return err
	}
	if err := f.exec(ctx, out, "approve "+token.Hex(), token, data); err != nil {
		return err
	}
	if out.DryRun {
		return nil
	}

	current, err = f.Reader.Allowance(ctx, token, f.Owner, spender)
	if err != nil {
		return fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}
	if current.Cmp(need) < 0 {
		return fmt.Errorf("%w: token %s has %s, needs %s", ErrInsufficientAllowance, token.Hex(), current, need)
	}
	return nil
}

func (f *Flows) exec(ctx context.Context, out *Outcome, description string, to common.Address, data []byte) error {
	call := Call{Description: description, To: to, Data: data}
	if f.dryRun() {
		out.Calls = append(out.Calls, call)
		return nil
	}
	receipt, err := f.Submitter.Send(ctx, to, data, nil)
	if receipt != nil {
		hash := receipt.TxHash
		call.TxHash = &hash
	}
	out.Calls = append(out.Calls, call)
	if err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	f.logger().Info("call confirmed", zap.String("call", description), zap.String("tx", receipt.TxHash.Hex()), zap.Bool("success", receipt.Status == types.ReceiptStatusSuccessful))
	return nil
}

func (f *Flows) dryRun() bool {
	return f.Submitter == nil
}

func (f *Flows) deadline(def time.Duration) *big.Int {
	if f.Deadline > 0 {
		def = f.Deadline
	}
	return f.at(def)
}

func (f *Flows) at(ttl time.Duration) *big.Int {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return amount.Deadline(now(), ttl)
}

func (f *Flows) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
