// Package quoter recomputes swap quotes as input changes, waiting for the input to
// settle and abandoning work that newer input has made stale.
package quoter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"directionalLiquidity/internal/amm"
	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/metrics"
	"directionalLiquidity/internal/model"
)

// DefaultDelay is how long input must stay unchanged before a quote is fetched.
const DefaultDelay = 300 * time.Millisecond

// ReserveSource returns pool reserves in token0/token1 order. *market.Reader satisfies it.
type ReserveSource interface {
	GetReserves(ctx context.Context, tokenA, tokenB common.Address) (model.PoolReserves, error)
}

// Request is one state of the swap form.
type Request struct {
	TokenIn     model.Token
	TokenOut    model.Token
	AmountIn    string
	Long        bool
	SlippageBps uint64
}

// Result is a published quote. Err is set when the quote could not be computed; callers
// show an empty quote in that case.
type Result struct {
	Seq     uint64
	Request Request
	Quote   amm.SwapQuote
	Err     error
}

// Quoter debounces quote requests. Only the latest submission can publish.
type Quoter struct {
	delay   time.Duration
	source  ReserveSource
	metrics *metrics.Metrics
	logger  *zap.Logger

	results chan Result

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// New builds a Quoter. delay <= 0 uses DefaultDelay.
func New(source ReserveSource, delay time.Duration, m *metrics.Metrics, logger *zap.Logger) *Quoter {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Quoter{
		delay:   delay,
		source:  source,
		metrics: m,
		logger:  logger,
		results: make(chan Result, 1),
	}
}

// Results delivers published quotes. When the consumer falls behind, an unread result
// is replaced by the newer one.
func (q *Quoter) Results() <-chan Result {
	return q.results
}

// Submit supersedes any pending or in-flight quote and schedules req. It returns the
// sequence number the result will carry.
func (q *Quoter) Submit(ctx context.Context, req Request) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, fmt.Errorf("quoter closed")
	}
	if q.cancel != nil {
		q.cancel()
	}
	q.seq++
	seq := q.seq
	taskCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	q.wg.Add(1)
	go q.run(taskCtx, seq, req)
	return seq, nil
}

// Close cancels outstanding work and closes Results.
func (q *Quoter) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()

	q.wg.Wait()
	close(q.results)
}

func (q *Quoter) run(ctx context.Context, seq uint64, req Request) {
	defer q.wg.Done()

	timer := time.NewTimer(q.delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		q.superseded(seq)
		return
	case <-timer.C:
	}

	observe := q.metrics.QuoteTimer()
	quote, err := q.compute(ctx, req)
	if ctx.Err() != nil {
		q.superseded(seq)
		return
	}
	if err != nil {
		q.logger.Debug("quote failed", zap.Uint64("seq", seq), zap.Error(err))
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || seq != q.seq {
		q.metrics.QuoteSuperseded()
		return
	}
	observe.ObserveDuration()
	q.metrics.QuoteDone(err)

	res := Result{Seq: seq, Request: req, Quote: quote, Err: err}
	select {
	case q.results <- res:
	default:
		select {
		case <-q.results:
		default:
		}
		q.results <- res
	}
}

func (q *Quoter) superseded(seq uint64) {
	q.mu.Lock()
	stale := seq != q.seq
	q.mu.Unlock()
	if stale {
		q.metrics.QuoteSuperseded()
	}
}

func (q *Quoter) compute(ctx context.Context, req Request) (amm.SwapQuote, error) {
	in, err := amount.Parse(req.AmountIn, req.TokenIn.Decimals)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	if in.Sign() == 0 {
		return amm.SwapQuote{}, amm.ErrInvalidAmount
	}
	if req.TokenIn.Address == req.TokenOut.Address {
		return amm.SwapQuote{}, model.ErrSameToken
	}
	reserves, err := q.source.GetReserves(ctx, req.TokenIn.Address, req.TokenOut.Address)
	if err != nil {
		return amm.SwapQuote{}, fmt.Errorf("get reserves: %w", err)
	}
	token0In := model.LessAddress(req.TokenIn.Address, req.TokenOut.Address)
	return amm.Quote(in, reserves, token0In, req.Long, req.SlippageBps)
}
