package position

import (
	"context"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"directionalLiquidity/internal/chain"
	"directionalLiquidity/internal/chain/chaintest"
	"directionalLiquidity/internal/market"
	"directionalLiquidity/internal/metrics"
	"directionalLiquidity/internal/model"
)

var (
	marketAddr = common.HexToAddress("0x1b4C769a1E14C9dbB158da0b9E3e5A53826AA9F5")
	routerAddr = common.HexToAddress("0x91205B2C56bc078B5777Fc96919A6CA4f7BDc3C7")
	tokenA     = common.HexToAddress("0x000000000000000000000000000000000000a000")
	tokenB     = common.HexToAddress("0x000000000000000000000000000000000000b000")
	tokenC     = common.HexToAddress("0x000000000000000000000000000000000000c000")
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stranger   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type fixture struct {
	fake     *chaintest.Fake
	client   *chain.Client
	balances map[int64][4]int64
	logIndex uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fake: chaintest.New(57054),
		balances: map[int64][4]int64{
			7: {1, 2, 3, 4},
		},
	}
	f.fake.Head = 1000

	marketABI, err := market.MarketABI()
	require.NoError(t, err)
	f.fake.Handle(marketAddr, chaintest.Contract(marketABI, map[string]chaintest.Method{
		"balanceOf": func(_ common.Address, args []interface{}) ([]interface{}, error) {
			if args[0].(common.Address) != owner {
				return []interface{}{new(big.Int), new(big.Int), new(big.Int), new(big.Int)}, nil
			}
			b := f.balances[args[1].(*big.Int).Int64()]
			return []interface{}{big.NewInt(b[0]), big.NewInt(b[1]), big.NewInt(b[2]), big.NewInt(b[3])}, nil
		},
		"getPairId": func(_ common.Address, args []interface{}) ([]interface{}, error) {
			if args[1].(common.Address) == tokenC {
				return []interface{}{big.NewInt(10)}, nil
			}
			return []interface{}{big.NewInt(7)}, nil
		},
	}))

	routerABI, err := market.RouterABI()
	require.NoError(t, err)
	f.fake.Handle(routerAddr, chaintest.Contract(routerABI, map[string]chaintest.Method{
		"quoteReserve": func(_ common.Address, args []interface{}) ([]interface{}, error) {
			out := make([]interface{}, 4)
			for i := range out {
				out[i] = new(big.Int).Mul(args[2+i].(*big.Int), big.NewInt(10))
			}
			return out, nil
		},
	}))

	erc20ABI, err := market.ERC20ABI()
	require.NoError(t, err)
	f.fake.Handle(tokenA, chaintest.Contract(erc20ABI, map[string]chaintest.Method{
		"decimals": func(common.Address, []interface{}) ([]interface{}, error) { return []interface{}{uint8(6)}, nil },
		"symbol":   func(common.Address, []interface{}) ([]interface{}, error) { return []interface{}{"AAA"}, nil },
		"name":     func(common.Address, []interface{}) ([]interface{}, error) { return []interface{}{"Token A"}, nil },
	}))

	rpcClient, err := f.fake.Dial()
	require.NoError(t, err)
	f.client = chain.NewClientFromRPC(rpcClient)
	t.Cleanup(f.client.Close)
	return f
}

func (f *fixture) mint(t *testing.T, block uint64, to common.Address, pairID int64) {
	t.Helper()
	marketABI, err := market.MarketABI()
	require.NoError(t, err)
	event := marketABI.Events["Mint"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1))
	require.NoError(t, err)
	f.logIndex++
	f.fake.AddLogs(types.Log{
		Address:     marketAddr,
		Topics:      []common.Hash{event.ID, market.AddressTopic(to), market.AddressTopic(to), market.UintTopic(big.NewInt(pairID))},
		Data:        data,
		BlockNumber: block,
		Index:       f.logIndex,
	})
}

func (f *fixture) create(t *testing.T, block uint64, token0, token1 common.Address, pairID int64) {
	t.Helper()
	topic, err := market.CreateTopic()
	require.NoError(t, err)
	f.logIndex++
	f.fake.AddLogs(types.Log{
		Address:     marketAddr,
		Topics:      []common.Hash{topic, market.AddressTopic(token0), market.AddressTopic(token1), market.UintTopic(big.NewInt(pairID))},
		BlockNumber: block,
		Index:       f.logIndex,
	})
}

func testConfig() Config {
	return Config{
		Market:    marketAddr,
		Router:    routerAddr,
		ChainID:   57054,
		ChunkSize: 100,
	}
}

func TestDiscover(t *testing.T) {
	f := newFixture(t)
	// Create emitted with the tokens unsorted.
	f.create(t, 50, tokenB, tokenA, 7)
	f.create(t, 60, tokenA, tokenB, 8)
	f.mint(t, 100, owner, 7)
	f.mint(t, 150, stranger, 9)
	f.mint(t, 200, owner, 7)
	f.mint(t, 300, owner, 8)

	reg := prometheus.NewRegistry()
	scanner := NewScanner(testConfig(), f.client, nil, metrics.NewMetrics(reg), zap.NewNop())

	res, err := scanner.Discover(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), res.Block)
	require.Len(t, res.Positions, 1)

	pos := res.Positions[0]
	assert.Equal(t, int64(7), pos.PairID.Int64())
	assert.True(t, pos.Verified)
	assert.Equal(t, tokenA, pos.Token0.Address)
	assert.Equal(t, "AAA", pos.Token0.Symbol)
	assert.Equal(t, uint8(6), pos.Token0.Decimals)
	assert.Equal(t, tokenB, pos.Token1.Address)
	assert.Equal(t, "TKN1", pos.Token1.Symbol)
	assert.Equal(t, uint8(18), pos.Token1.Decimals)
	assert.Equal(t, "AAA/TKN1", pos.PairName())
	assert.Equal(t, "10", pos.Amount0Long.String())
	assert.Equal(t, "40", pos.Amount1Short.String())
	assert.Equal(t, "10", pos.Liquidity().String())

	expected := `
# HELP dexcalc_positions Non-empty positions found by the last discovery per owner.
# TYPE dexcalc_positions gauge
dexcalc_positions{owner="` + owner.Hex() + `"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "dexcalc_positions"))
}

func TestDiscoverMismatchedPairIsUnverified(t *testing.T) {
	f := newFixture(t)
	f.balances[10] = [4]int64{5, 0, 0, 0}
	f.balances[11] = [4]int64{5, 0, 0, 0}
	// getPairId(tokenA, tokenC) answers 10, so pair 11 fails verification.
	f.create(t, 10, tokenA, tokenC, 11)
	f.mint(t, 20, owner, 11)

	scanner := NewScanner(testConfig(), f.client, nil, nil, nil)
	res, err := scanner.Discover(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, res.Positions, 1)
	assert.False(t, res.Positions[0].Verified)
}

func TestDiscoverSkipsPairWithoutCreate(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 100, owner, 7)

	scanner := NewScanner(testConfig(), f.client, nil, nil, nil)
	res, err := scanner.Discover(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, res.Positions)
}

func TestRefreshScansOnlyNewBlocks(t *testing.T) {
	f := newFixture(t)
	f.create(t, 50, tokenA, tokenB, 7)
	f.mint(t, 100, owner, 7)

	store := NewFileCursorStore(filepath.Join(t.TempDir(), "cursor.json"))
	scanner := NewScanner(testConfig(), f.client, store, nil, nil)
	ctx := context.Background()

	first, err := scanner.Refresh(ctx, owner)
	require.NoError(t, err)
	require.Len(t, first.Positions, 1)

	cursor, ok, err := store.Load(ctx, owner.Hex())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), cursor.LastBlock)
	assert.True(t, cursor.HasPair("7"))

	f.balances[10] = [4]int64{0, 9, 0, 0}
	f.create(t, 1050, tokenC, tokenA, 10)
	f.mint(t, 1100, owner, 10)
	f.fake.Head = 1200

	before := f.fake.Calls("eth_getLogs")
	second, err := scanner.Refresh(ctx, owner)
	require.NoError(t, err)
	require.Len(t, second.Positions, 2)
	assert.Equal(t, int64(7), second.Positions[0].PairID.Int64())
	assert.Equal(t, int64(10), second.Positions[1].PairID.Int64())
	assert.True(t, second.Positions[1].Verified)
	assert.Equal(t, tokenA, second.Positions[1].Token0.Address)

	// Two Mint windows after the cursor, thirteen Create windows over 0..1200.
	assert.Equal(t, 2+13, f.fake.Calls("eth_getLogs")-before)

	cursor, _, err = store.Load(ctx, owner.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), cursor.LastBlock)
	assert.Len(t, cursor.Pairs, 2)
}

func TestRefreshRetriesPairWithoutCreate(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 100, owner, 7)

	store := NewFileCursorStore(filepath.Join(t.TempDir(), "cursor.json"))
	scanner := NewScanner(testConfig(), f.client, store, nil, nil)
	ctx := context.Background()

	first, err := scanner.Refresh(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, first.Positions)

	cursor, ok, err := store.Load(ctx, owner.Hex())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), cursor.LastBlock)
	assert.Equal(t, []string{"7"}, cursor.Pending)
	assert.False(t, cursor.HasPair("7"))

	// The Create log becomes visible only after the cursor moved past the Mint.
	f.create(t, 50, tokenA, tokenB, 7)
	f.fake.Head = 1100

	second, err := scanner.Refresh(ctx, owner)
	require.NoError(t, err)
	require.Len(t, second.Positions, 1)
	assert.Equal(t, int64(7), second.Positions[0].PairID.Int64())

	cursor, _, err = store.Load(ctx, owner.Hex())
	require.NoError(t, err)
	assert.Empty(t, cursor.Pending)
	assert.True(t, cursor.HasPair("7"))
	assert.Equal(t, uint64(1100), cursor.LastBlock)
}

func TestDiscoverKeepsKnownPairs(t *testing.T) {
	f := newFixture(t)
	store := NewFileCursorStore(filepath.Join(t.TempDir(), "cursor.json"))
	ctx := context.Background()

	// Pair 7 was found earlier; its Mint and Create logs are no longer in the window.
	require.NoError(t, store.Save(ctx, model.ScanCursor{
		Owner:     owner.Hex(),
		LastBlock: 500,
		Pairs:     []model.PairRef{{PairID: "7", Token0: tokenA.Hex(), Token1: tokenB.Hex()}},
	}))

	scanner := NewScanner(testConfig(), f.client, store, nil, nil)
	res, err := scanner.Discover(ctx, owner)
	require.NoError(t, err)
	require.Len(t, res.Positions, 1)
	assert.Equal(t, int64(7), res.Positions[0].PairID.Int64())

	cursor, _, err := store.Load(ctx, owner.Hex())
	require.NoError(t, err)
	assert.True(t, cursor.HasPair("7"))
	assert.Equal(t, uint64(1000), cursor.LastBlock)
}
