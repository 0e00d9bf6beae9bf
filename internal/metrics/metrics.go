package metrics

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dexcalc"

// Metrics groups the collectors shared by the chain client, quoter, and scanner.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rpcRequests      *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	quotes           *prometheus.CounterVec
	quoteDuration    prometheus.Histogram
	quotesSuperseded prometheus.Counter
	positions        *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method and outcome.",
		}, []string{"method", "outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "JSON-RPC request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Completed quotes by outcome.",
		}, []string{"outcome"}),
		quoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_seconds",
			Help:      "Time from debounce expiry to a published quote.",
			Buckets:   prometheus.DefBuckets,
		}),
		quotesSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_superseded_total",
			Help:      "Quote tasks cancelled by newer input.",
		}),
		positions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "positions",
			Help:      "Non-empty positions found by the last discovery per owner.",
		}, []string{"owner"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.rpcRequests,
			m.rpcDuration,
			m.quotes,
			m.quoteDuration,
			m.quotesSuperseded,
			m.positions,
		)
	}
	return m
}

// ObserveRPC records one request that started at start.
func (m *Metrics) ObserveRPC(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, outcome(err)).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// QuoteTimer starts timing a quote; call ObserveDuration when it is published.
func (m *Metrics) QuoteTimer() *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(m.quoteDuration)
}

func (m *Metrics) QuoteDone(err error) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) QuoteSuperseded() {
	if m == nil {
		return
	}
	m.quotesSuperseded.Inc()
}

func (m *Metrics) SetPositions(owner string, n int) {
	if m == nil {
		return
	}
	m.positions.WithLabelValues(owner).Set(float64(n))
}

// outcome labels a request. NotFound is an answer, not a failure: receipts of pending
// transactions are polled until they appear.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ethereum.NotFound):
		return "not_found"
	default:
		return "error"
	}
}
