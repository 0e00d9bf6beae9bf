package chain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"directionalLiquidity/internal/chain/chaintest"
	"directionalLiquidity/internal/metrics"
)

func newTestClient(t *testing.T, fake *chaintest.Fake, opts ...Option) *Client {
	t.Helper()
	rpcClient, err := fake.Dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := NewClientFromRPC(rpcClient, opts...)
	t.Cleanup(c.Close)
	return c
}

func TestGetChainIDCached(t *testing.T) {
	fake := chaintest.New(57054)
	c := newTestClient(t, fake)

	for i := 0; i < 3; i++ {
		id, err := c.GetChainID(context.Background())
		if err != nil {
			t.Fatalf("chain id: %v", err)
		}
		if id.Uint64() != 57054 {
			t.Fatalf("unexpected chain id: %s", id)
		}
	}
	if got := fake.Calls("eth_chainId"); got != 1 {
		t.Fatalf("expected 1 eth_chainId call, got %d", got)
	}
}

func TestFilterLogsByRangeAndTopic(t *testing.T) {
	fake := chaintest.New(1)
	market := common.HexToAddress("0x01")
	other := common.HexToAddress("0x02")
	topic := common.HexToHash("0xaa")

	fake.AddLogs(
		types.Log{Address: market, BlockNumber: 5, Topics: []common.Hash{topic}},
		types.Log{Address: market, BlockNumber: 50, Topics: []common.Hash{topic}},
		types.Log{Address: other, BlockNumber: 6, Topics: []common.Hash{topic}},
		types.Log{Address: market, BlockNumber: 7, Topics: []common.Hash{common.HexToHash("0xbb")}},
	)
	c := newTestClient(t, fake)

	logs, err := c.FilterLogs(context.Background(), 0, 10, market, [][]common.Hash{{topic}})
	if err != nil {
		t.Fatalf("filter logs: %v", err)
	}
	if len(logs) != 1 || logs[0].BlockNumber != 5 {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestCallContractRecordsMetrics(t *testing.T) {
	fake := chaintest.New(1)
	target := common.HexToAddress("0x03")
	fake.Handle(target, func(_ common.Address, data []byte) ([]byte, error) {
		return append([]byte{0x01}, data...), nil
	})

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	c := newTestClient(t, fake, WithMetrics(m), WithRateLimit(100, 1))

	out, err := c.CallContract(context.Background(), ethereum.CallMsg{To: &target, Data: []byte{0x02}}, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(out) != 2 || out[0] != 0x01 || out[1] != 0x02 {
		t.Fatalf("unexpected output: %x", out)
	}

	missing := common.HexToAddress("0x04")
	if _, err := c.CallContract(context.Background(), ethereum.CallMsg{To: &missing}, nil); err == nil {
		t.Fatal("expected error for unknown contract")
	}

	expected := `
# HELP dexcalc_rpc_requests_total JSON-RPC requests by method and outcome.
# TYPE dexcalc_rpc_requests_total counter
dexcalc_rpc_requests_total{method="eth_call",outcome="error"} 1
dexcalc_rpc_requests_total{method="eth_call",outcome="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "dexcalc_rpc_requests_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	fake := chaintest.New(1)
	c := newTestClient(t, fake, WithRateLimit(0.001, 1))

	if _, err := c.LatestBlockNumber(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.LatestBlockNumber(ctx); err == nil {
		t.Fatal("expected limiter wait to fail on cancelled context")
	}
}

func TestPendingReceiptIsNotAnError(t *testing.T) {
	fake := chaintest.New(1)
	reg := prometheus.NewRegistry()
	c := newTestClient(t, fake, WithMetrics(metrics.NewMetrics(reg)))

	_, err := c.TransactionReceipt(context.Background(), common.HexToHash("0x01"))
	if !errors.Is(err, ethereum.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	expected := `
# HELP dexcalc_rpc_requests_total JSON-RPC requests by method and outcome.
# TYPE dexcalc_rpc_requests_total counter
dexcalc_rpc_requests_total{method="eth_getTransactionReceipt",outcome="not_found"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "dexcalc_rpc_requests_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}
