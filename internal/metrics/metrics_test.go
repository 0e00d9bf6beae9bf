package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRPC("eth_call", time.Now(), nil)
	m.ObserveRPC("eth_call", time.Now(), errors.New("boom"))
	m.ObserveRPC("eth_getTransactionReceipt", time.Now(), ethereum.NotFound)
	m.ObserveRPC("eth_getTransactionReceipt", time.Now(), fmt.Errorf("receipt: %w", ethereum.NotFound))
	m.QuoteDone(nil)
	m.QuoteSuperseded()
	m.QuoteSuperseded()
	m.SetPositions("0xabc", 3)
	m.QuoteTimer().ObserveDuration()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("eth_call", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("eth_call", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("eth_getTransactionReceipt", "not_found")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("eth_getTransactionReceipt", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.quotesSuperseded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.positions.WithLabelValues("0xabc")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveRPC("eth_call", time.Now(), nil)
	m.QuoteDone(nil)
	m.QuoteSuperseded()
	m.SetPositions("x", 1)
	m.QuoteTimer().ObserveDuration()
}
