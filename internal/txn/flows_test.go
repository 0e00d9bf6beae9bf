package txn

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directionalLiquidity/internal/amm"
	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/chain"
	"directionalLiquidity/internal/chain/chaintest"
	"directionalLiquidity/internal/market"
	"directionalLiquidity/internal/model"
)

var (
	marketAddr = common.HexToAddress("0x1b4C769a1E14C9dbB158da0b9E3e5A53826AA9F5")
	routerAddr = common.HexToAddress("0x91205B2C56bc078B5777Fc96919A6CA4f7BDc3C7")
	tokenLow   = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	tokenHigh  = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	fixedNow   = time.Unix(1_700_000_000, 0)
)

type harness struct {
	fake      *chaintest.Fake
	client    *chain.Client
	signer    *KeySigner
	flows     *Flows
	simFrom   common.Address
	allowance map[common.Address]*big.Int
	balance   map[common.Address]*big.Int
	routerOut *big.Int
}

func newHarness(t *testing.T, dryRun bool) *harness {
	t.Helper()
	h := &harness{
		fake:      chaintest.New(57054),
		allowance: map[common.Address]*big.Int{},
		balance:   map[common.Address]*big.Int{},
	}

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	h.signer, err = NewKeySigner(hexutil.Encode(crypto.FromECDSA(key)), big.NewInt(57054))
	require.NoError(t, err)

	marketABI, err := market.MarketABI()
	require.NoError(t, err)
	h.fake.Handle(marketAddr, chaintest.Contract(marketABI, map[string]chaintest.Method{
		"getPairId": func(common.Address, []interface{}) ([]interface{}, error) {
			return []interface{}{big.NewInt(42)}, nil
		},
		"getReserves": func(common.Address, []interface{}) ([]interface{}, error) {
			return []interface{}{big.NewInt(1000), big.NewInt(500), big.NewInt(2000), big.NewInt(700)}, nil
		},
	}))

	routerABI, err := market.RouterABI()
	require.NoError(t, err)
	h.fake.Handle(routerAddr, chaintest.Contract(routerABI, map[string]chaintest.Method{
		"removeLiquidity": func(from common.Address, _ []interface{}) ([]interface{}, error) {
			h.simFrom = from
			return []interface{}{big.NewInt(1000), big.NewInt(2000)}, nil
		},
		"getAmountOut": func(common.Address, []interface{}) ([]interface{}, error) {
			if h.routerOut == nil {
				return nil, errors.New("execution reverted")
			}
			return []interface{}{h.routerOut}, nil
		},
	}))

	erc20ABI, err := market.ERC20ABI()
	require.NoError(t, err)
	for _, token := range []common.Address{tokenLow, tokenHigh} {
		token := token
		h.fake.Handle(token, chaintest.Contract(erc20ABI, map[string]chaintest.Method{
			"allowance": func(common.Address, []interface{}) ([]interface{}, error) {
				// An approve sent to the token grants an unlimited allowance.
				for _, tx := range h.fake.Sent() {
					if *tx.To() == token {
						return []interface{}{amount.MaxUint256}, nil
					}
				}
				if v, ok := h.allowance[token]; ok {
					return []interface{}{v}, nil
				}
				return []interface{}{new(big.Int)}, nil
			},
			"balanceOf": func(common.Address, []interface{}) ([]interface{}, error) {
				if v, ok := h.balance[token]; ok {
					return []interface{}{v}, nil
				}
				return []interface{}{amount.MaxUint256}, nil
			},
		}))
	}

	rpcClient, err := h.fake.Dial()
	require.NoError(t, err)
	h.client = chain.NewClientFromRPC(rpcClient)
	t.Cleanup(h.client.Close)

	h.flows = &Flows{
		Reader: market.NewReader(h.client, marketAddr, routerAddr),
		Owner:  h.signer.Address(),
		Now:    func() time.Time { return fixedNow },
	}
	if !dryRun {
		h.flows.Submitter = NewSubmitter(h.client, h.signer, nil)
	}
	return h
}

func unpackCall(t *testing.T, data []byte) (string, []interface{}) {
	t.Helper()
	routerABI, err := market.RouterABI()
	require.NoError(t, err)
	method, err := routerABI.MethodById(data[:4])
	require.NoError(t, err)
	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return method.Name, args
}

func TestAddLiquiditySortsAndApproves(t *testing.T) {
	h := newHarness(t, false)
	h.allowance[tokenLow] = big.NewInt(1_000_000)

	out, err := h.flows.AddLiquidity(context.Background(), AddParams{
		TokenA:       tokenHigh,
		TokenB:       tokenLow,
		AmountALong:  big.NewInt(30),
		AmountAShort: big.NewInt(70),
		AmountBLong:  big.NewInt(400),
		AmountBShort: big.NewInt(600),
	})
	require.NoError(t, err)
	require.Len(t, out.Calls, 2)
	assert.Equal(t, tokenHigh, out.Calls[0].To)
	assert.Equal(t, routerAddr, out.Calls[1].To)
	require.NotNil(t, out.Calls[1].TxHash)

	sent := h.fake.Sent()
	require.Len(t, sent, 2)
	name, args := unpackCall(t, sent[1].Data())
	require.Equal(t, "addLiquidity", name)
	assert.Equal(t, tokenLow, args[0])
	assert.Equal(t, tokenHigh, args[1])
	assert.Equal(t, "400", args[2].(*big.Int).String())
	assert.Equal(t, "600", args[3].(*big.Int).String())
	assert.Equal(t, "30", args[4].(*big.Int).String())
	assert.Equal(t, "70", args[5].(*big.Int).String())
	assert.Equal(t, "0", args[6].(*big.Int).String())
	assert.Equal(t, h.signer.Address(), args[10])
	assert.Equal(t, fixedNow.Add(time.Hour).Unix(), args[11].(*big.Int).Int64())
}

func TestAddLiquidityRejectsEmptyDeposit(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.flows.AddLiquidity(context.Background(), AddParams{TokenA: tokenLow, TokenB: tokenHigh})
	assert.ErrorIs(t, err, amm.ErrInvalidAmount)

	_, err = h.flows.AddLiquidity(context.Background(), AddParams{TokenA: tokenLow, TokenB: tokenLow, AmountALong: big.NewInt(1)})
	assert.ErrorIs(t, err, model.ErrSameToken)
	assert.Empty(t, h.fake.Sent())
}

func TestRemoveLiquidity(t *testing.T) {
	h := newHarness(t, false)
	lp := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	out, err := h.flows.RemoveLiquidity(context.Background(), RemoveParams{
		Token0:   tokenLow,
		Token1:   tokenHigh,
		Balances: [4]*big.Int{lp, lp, lp, lp},
		Request: model.WithdrawalRequest{
			Long0: model.WithdrawalAmount{UsePercentage: true, Percentage: 50},
		},
		SlippageBps: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "1000", out.Amount0.String())
	assert.Equal(t, "2000", out.Amount1.String())
	assert.Equal(t, h.signer.Address(), h.simFrom)

	sent := h.fake.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, marketAddr, *sent[0].To())
	marketABI, err := market.MarketABI()
	require.NoError(t, err)
	approve, err := marketABI.MethodById(sent[0].Data()[:4])
	require.NoError(t, err)
	approveArgs, err := approve.Inputs.Unpack(sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, routerAddr, approveArgs[0])
	assert.Equal(t, int64(42), approveArgs[1].(*big.Int).Int64())
	assert.Equal(t, fixedNow.Add(2*time.Hour).Unix(), approveArgs[2].(*big.Int).Int64())

	name, args := unpackCall(t, sent[1].Data())
	require.Equal(t, "removeLiquidity", name)
	assert.Equal(t, "500000000000000000", args[2].(*big.Int).String())
	assert.Equal(t, "0", args[3].(*big.Int).String())
	assert.Equal(t, "995", args[6].(*big.Int).String())
	assert.Equal(t, "1990", args[7].(*big.Int).String())
}

func TestRemoveLiquidityNothingToWithdraw(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.flows.RemoveLiquidity(context.Background(), RemoveParams{
		Token0:   tokenLow,
		Token1:   tokenHigh,
		Balances: [4]*big.Int{big.NewInt(1), nil, nil, nil},
	})
	assert.ErrorIs(t, err, amm.ErrNothingToWithdraw)
	assert.Zero(t, h.fake.Calls("eth_call"))
	assert.Empty(t, h.fake.Sent())
}

func TestSwapDryRun(t *testing.T) {
	h := newHarness(t, true)
	h.allowance[tokenLow] = big.NewInt(50)

	out, err := h.flows.Swap(context.Background(), SwapParams{
		TokenIn:     tokenLow,
		TokenOut:    tokenHigh,
		AmountIn:    big.NewInt(100),
		Long:        true,
		SlippageBps: 50,
	})
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	require.NotNil(t, out.Quote)
	assert.Equal(t, "181", out.Quote.AmountOut.String())
	assert.Empty(t, h.fake.Sent())

	require.Len(t, out.Calls, 2)
	assert.Equal(t, tokenLow, out.Calls[0].To)
	name, args := unpackCall(t, out.Calls[1].Data)
	require.Equal(t, "swap", name)
	assert.Equal(t, []common.Address{tokenLow, tokenHigh}, args[0])
	assert.Equal(t, "180", args[2].(*big.Int).String())
	assert.Equal(t, true, args[3])
	assert.Equal(t, fixedNow.Add(20*time.Minute).Unix(), args[5].(*big.Int).Int64())
}

func TestAddLiquidityInsufficientBalance(t *testing.T) {
	h := newHarness(t, false)
	h.balance[tokenHigh] = big.NewInt(99)

	_, err := h.flows.AddLiquidity(context.Background(), AddParams{
		TokenA:       tokenHigh,
		TokenB:       tokenLow,
		AmountALong:  big.NewInt(30),
		AmountAShort: big.NewInt(70),
		AmountBLong:  big.NewInt(400),
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "Insufficient token balance", DescribeError(err))
	assert.Empty(t, h.fake.Sent())
}

func TestSwapInsufficientBalanceDryRun(t *testing.T) {
	h := newHarness(t, true)
	h.balance[tokenLow] = big.NewInt(10)

	out, err := h.flows.Swap(context.Background(), SwapParams{
		TokenIn:     tokenLow,
		TokenOut:    tokenHigh,
		AmountIn:    big.NewInt(100),
		Long:        true,
		SlippageBps: 50,
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, out.Calls)
}

func TestSwapUsesLowerRouterQuote(t *testing.T) {
	h := newHarness(t, true)
	h.routerOut = big.NewInt(170)

	out, err := h.flows.Swap(context.Background(), SwapParams{
		TokenIn:     tokenLow,
		TokenOut:    tokenHigh,
		AmountIn:    big.NewInt(100),
		Long:        true,
		SlippageBps: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "181", out.Quote.AmountOut.String())
	assert.Equal(t, "169", out.Quote.MinimumOut.String())

	name, args := unpackCall(t, out.Calls[len(out.Calls)-1].Data)
	require.Equal(t, "swap", name)
	assert.Equal(t, "169", args[2].(*big.Int).String())
}

func TestFlowsRejectConcurrentSubmission(t *testing.T) {
	h := newHarness(t, true)
	h.flows.submitting.Store(true)

	_, err := h.flows.Swap(context.Background(), SwapParams{TokenIn: tokenLow, TokenOut: tokenHigh, AmountIn: big.NewInt(1)})
	assert.ErrorIs(t, err, ErrBusy)

	h.flows.submitting.Store(false)
	_, err = h.flows.Swap(context.Background(), SwapParams{TokenIn: tokenLow, TokenOut: tokenHigh, AmountIn: big.NewInt(1), Long: true})
	require.NoError(t, err)
	assert.False(t, h.flows.submitting.Load())
}

func TestSubmitterReverted(t *testing.T) {
	h := newHarness(t, false)
	h.fake.FailReceipts = true

	data, err := market.PackApprove(routerAddr, big.NewInt(1))
	require.NoError(t, err)
	receipt, err := h.flows.Submitter.Send(context.Background(), tokenLow, data, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReverted))
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)

	sent := h.fake.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(210_000+42_000), sent[0].Gas())
	assert.Equal(t, uint64(0), sent[0].Nonce())
}
