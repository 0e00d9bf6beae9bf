package position

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/market"
	"directionalLiquidity/internal/metrics"
	"directionalLiquidity/internal/model"
)

// Backend is the chain surface discovery needs. *chain.Client satisfies it.
type Backend interface {
	market.Caller
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topics [][]common.Hash) ([]types.Log, error)
}

// Config holds discovery settings.
type Config struct {
	Market       common.Address
	Router       common.Address
	ChainID      uint64
	Lookback     uint64
	ChunkSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Scanner finds an owner's directional LP positions from Mint logs and current balances.
type Scanner struct {
	cfg     Config
	backend Backend
	reader  *market.Reader
	tokens  *market.TokenMetaCache
	cursors CursorStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewScanner builds a Scanner. cursors and m may be nil.
func NewScanner(cfg Config, backend Backend, cursors CursorStore, m *metrics.Metrics, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = 5_000_000
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 50_000
	}
	return &Scanner{
		cfg:     cfg,
		backend: backend,
		reader:  market.NewReader(backend, cfg.Market, cfg.Router),
		tokens:  market.NewTokenMetaCache(),
		cursors: cursors,
		metrics: m,
		logger:  logger,
	}
}

// Result is one completed scan.
type Result struct {
	Owner     common.Address
	Block     uint64
	Positions []model.LiquidityPosition
}

// Discover scans the full lookback window for owner, ignoring the saved block. Pairs
// already known to the cursor are kept so they survive their Create log leaving the window.
func (s *Scanner) Discover(ctx context.Context, owner common.Address) (Result, error) {
	cursor, _, err := s.loadCursor(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	return s.scan(ctx, owner, cursor, false)
}

// Refresh continues from the saved cursor, scanning only blocks after it, then re-reads
// balances of every pair the owner has ever minted. Without a cursor it falls back to a
// full discovery.
func (s *Scanner) Refresh(ctx context.Context, owner common.Address) (Result, error) {
	cursor, ok, err := s.loadCursor(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	return s.scan(ctx, owner, cursor, ok)
}

func (s *Scanner) loadCursor(ctx context.Context, owner common.Address) (model.ScanCursor, bool, error) {
	empty := model.ScanCursor{Owner: owner.Hex()}
	if s.cursors == nil {
		return empty, false, nil
	}
	cursor, ok, err := s.cursors.Load(ctx, owner.Hex())
	if err != nil {
		return empty, false, fmt.Errorf("load cursor: %w", err)
	}
	if !ok {
		return empty, false, nil
	}
	return cursor, true, nil
}

func (s *Scanner) scan(ctx context.Context, owner common.Address, cursor model.ScanCursor, resume bool) (Result, error) {
	if s.backend == nil {
		return Result{}, fmt.Errorf("chain client is nil")
	}

	latest, err := s.backend.LatestBlockNumber(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("get latest block: %w", err)
	}
	windowStart := StartBlock(latest, s.cfg.Lookback)
	from := windowStart
	if resume && cursor.LastBlock >= from {
		from = cursor.LastBlock + 1
		s.logger.Info("resume from cursor", zap.String("owner", owner.Hex()), zap.Uint64("last_block", cursor.LastBlock), zap.Uint64("from", from))
	}

	candidates := make([]*big.Int, 0, len(cursor.Pending))
	for _, key := range cursor.Pending {
		if pairID, ok := new(big.Int).SetString(key, 10); ok {
			candidates = append(candidates, pairID)
		}
	}
	if from <= latest {
		minted, err := s.mintedPairs(ctx, owner, from, latest)
		if err != nil {
			return Result{}, err
		}
		candidates = append(candidates, minted...)
	}

	pending := make([]string, 0)
	seen := make(map[string]struct{}, len(candidates))
	for _, pairID := range candidates {
		key := pairID.String()
		if _, ok := seen[key]; ok || cursor.HasPair(key) {
			continue
		}
		seen[key] = struct{}{}
		ref, err := s.lookupPair(ctx, pairID, windowStart, latest)
		if err != nil {
			s.logger.Warn("pair lookup failed, retrying on next scan", zap.String("pair_id", key), zap.Error(err))
			pending = append(pending, key)
			continue
		}
		cursor.Pairs = append(cursor.Pairs, ref)
	}
	cursor.Pending = pending
	pairs := cursor.Pairs

	positions := make([]model.LiquidityPosition, 0, len(pairs))
	for _, ref := range pairs {
		pos, err := s.buildPosition(ctx, owner, ref)
		if err != nil {
			s.logger.Warn("position skipped", zap.String("pair_id", ref.PairID), zap.Error(err))
			continue
		}
		if pos.IsEmpty() {
			continue
		}
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].PairID.Cmp(positions[j].PairID) < 0
	})

	if s.cursors != nil {
		cursor.Owner = owner.Hex()
		cursor.LastBlock = latest
		cursor.UpdatedAt = ""
		if err := s.cursors.Save(ctx, cursor); err != nil {
			return Result{}, fmt.Errorf("save cursor: %w", err)
		}
	}
	s.metrics.SetPositions(owner.Hex(), len(positions))
	s.logger.Info("positions discovered", zap.String("owner", owner.Hex()), zap.Int("pairs", len(pairs)), zap.Int("positions", len(positions)), zap.Uint64("block", latest))

	return Result{Owner: owner, Block: latest, Positions: positions}, nil
}

// mintedPairs returns the distinct pair IDs of Mint logs whose recipient is owner.
func (s *Scanner) mintedPairs(ctx context.Context, owner common.Address, from, to uint64) ([]*big.Int, error) {
	topic, err := market.MintTopic()
	if err != nil {
		return nil, err
	}
	logs, err := s.fetchLogs(ctx, from, to, [][]common.Hash{{topic}, nil, {market.AddressTopic(owner)}})
	if err != nil {
		return nil, fmt.Errorf("mint logs: %w", err)
	}

	seen := make(map[string]struct{})
	out := make([]*big.Int, 0)
	for _, log := range logs {
		mint, err := market.DecodeMint(log)
		if err != nil {
			s.logger.Debug("mint decode failed", zap.String("tx", log.TxHash.Hex()), zap.Error(err))
			continue
		}
		key := mint.PairID.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, mint.PairID)
	}
	return out, nil
}

// lookupPair finds the tokens of pairID from its Create log and returns them sorted.
func (s *Scanner) lookupPair(ctx context.Context, pairID *big.Int, from, to uint64) (model.PairRef, error) {
	topic, err := market.CreateTopic()
	if err != nil {
		return model.PairRef{}, err
	}
	logs, err := s.fetchLogs(ctx, from, to, [][]common.Hash{{topic}, nil, nil, {market.UintTopic(pairID)}})
	if err != nil {
		return model.PairRef{}, fmt.Errorf("create logs: %w", err)
	}
	for _, log := range logs {
		create, err := market.DecodeCreate(log)
		if err != nil || create.PairID.Cmp(pairID) != 0 {
			continue
		}
		token0, token1, err := model.SortAddresses(create.Token0, create.Token1)
		if err != nil {
			return model.PairRef{}, err
		}
		return model.PairRef{PairID: pairID.String(), Token0: token0.Hex(), Token1: token1.Hex()}, nil
	}
	return model.PairRef{}, fmt.Errorf("no create event for pair %s", pairID)
}

func (s *Scanner) buildPosition(ctx context.Context, owner common.Address, ref model.PairRef) (model.LiquidityPosition, error) {
	pairID, ok := new(big.Int).SetString(ref.PairID, 10)
	if !ok {
		return model.LiquidityPosition{}, fmt.Errorf("invalid pair id %q", ref.PairID)
	}
	token0 := common.HexToAddress(ref.Token0)
	token1 := common.HexToAddress(ref.Token1)

	balances, err := s.reader.BalanceOf(ctx, owner, pairID)
	if err != nil {
		return model.LiquidityPosition{}, fmt.Errorf("balance: %w", err)
	}
	pos := model.LiquidityPosition{
		Owner:  owner.Hex(),
		PairID: pairID,
		LongX:  balances[0],
		ShortX: balances[1],
		LongY:  balances[2],
		ShortY: balances[3],
	}
	if pos.IsEmpty() {
		return pos, nil
	}

	if onChain, err := s.reader.GetPairID(ctx, token0, token1); err != nil {
		s.logger.Warn("pair id verification failed", zap.String("pair_id", ref.PairID), zap.Error(err))
	} else if onChain.Cmp(pairID) != 0 {
		s.logger.Warn("pair id mismatch", zap.String("pair_id", ref.PairID), zap.String("computed", onChain.String()))
	} else {
		pos.Verified = true
	}

	pos.Token0, pos.Token1 = s.pairTokens(ctx, token0, token1)

	amounts, err := s.reader.QuoteReserve(ctx, token0, token1, balances)
	if err != nil {
		s.logger.Warn("quote reserve failed", zap.String("pair_id", ref.PairID), zap.Error(err))
		for i := range amounts {
			amounts[i] = new(big.Int)
		}
	}
	pos.Amount0Long, pos.Amount0Short, pos.Amount1Long, pos.Amount1Short = amounts[0], amounts[1], amounts[2], amounts[3]
	return pos, nil
}

// pairTokens fetches both tokens' metadata concurrently, falling back to placeholders.
func (s *Scanner) pairTokens(ctx context.Context, token0, token1 common.Address) (model.Token, model.Token) {
	addrs := [2]common.Address{token0, token1}
	var out [2]model.Token
	g, gctx := errgroup.WithContext(ctx)
	for i := range addrs {
		i := i
		g.Go(func() error {
			meta, err := s.tokens.Lookup(gctx, s.backend, addrs[i], s.logger)
			if err != nil {
				s.logger.Warn("token metadata failed", zap.String("token", addrs[i].Hex()), zap.Error(err))
				meta = model.Token{
					Address:  addrs[i],
					Symbol:   fmt.Sprintf("TKN%d", i),
					Decimals: amount.LPDecimals,
				}
			}
			if meta.Symbol == "" {
				meta.Symbol = fmt.Sprintf("TKN%d", i)
			}
			meta.ChainID = s.cfg.ChainID
			out[i] = meta
			return nil
		})
	}
	_ = g.Wait()
	return out[0], out[1]
}

func (s *Scanner) fetchLogs(ctx context.Context, from, to uint64, topics [][]common.Hash) ([]types.Log, error) {
	ranges, err := SplitRange(from, to, s.cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]types.Log, 0)
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var logs []types.Log
		err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(attempt int, err error) {
			s.logger.Warn("filter logs failed", zap.Error(err), zap.Int("attempt", attempt), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}, func(ctx context.Context) error {
			var err error
			logs, err = s.backend.FilterLogs(ctx, blockRange.From, blockRange.To, s.cfg.Market, topics)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, log := range logs {
			id := logID(log)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, log)
		}
	}
	return out, nil
}

func logID(log types.Log) string {
	return strings.Join([]string{
		fmt.Sprint(log.BlockNumber),
		log.TxHash.Hex(),
		fmt.Sprint(log.Index),
	}, ":")
}
