package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"directionalLiquidity/internal/chain"
	"directionalLiquidity/internal/config"
	"directionalLiquidity/internal/metrics"
)

func main() {
	root := &cobra.Command{
		Use:          "dexcalc",
		Short:        "Directional liquidity quotes, allocations and positions",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(
		newSplitCmd(),
		newRatioCmd(),
		newQuoteCmd(),
		newPositionsCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newSwapCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// chainFlags registers the settings every command that talks to the chain accepts.
func chainFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "JSON-RPC URL")
	flags.Uint64("chain-id", config.SonicBlazeTestnet, "chain id")
	flags.String("market", "", "market contract address (overrides the built-in deployment)")
	flags.String("router", "", "router contract address (overrides the built-in deployment)")
	flags.Uint64("slippage-bps", 50, "slippage tolerance in basis points")
	flags.Float64("rpc-rate", 20, "RPC requests per second, 0 disables limiting")
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

// session is the shared state of one command run against the chain.
type session struct {
	ctx        context.Context
	logger     *zap.Logger
	metrics    *metrics.Metrics
	client     *chain.Client
	deployment config.Deployment
	closers    []func()
}

func openSession(cfg config.Config) (*session, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	dep, err := config.ResolveDeployment(cfg)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &session{ctx: ctx, logger: logger, deployment: dep}
	s.closers = append(s.closers, stop, func() { _ = logger.Sync() })

	reg := prometheus.NewRegistry()
	s.metrics = metrics.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		s.serveMetrics(cfg.MetricsAddr, reg)
	}

	opts := []chain.Option{chain.WithMetrics(s.metrics)}
	if cfg.RPCRate > 0 {
		opts = append(opts, chain.WithRateLimit(cfg.RPCRate, 1))
	}
	client, err := chain.NewClient(ctx, cfg.RPCURL, opts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	s.client = client
	s.closers = append(s.closers, client.Close)

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if chainID.Uint64() != dep.ChainID {
		s.Close()
		return nil, fmt.Errorf("rpc serves %s, configured for %s", config.ChainName(chainID.Uint64()), config.ChainName(dep.ChainID))
	}

	logger.Debug("session open",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain", config.ChainName(dep.ChainID)),
		zap.String("market", dep.Market.Hex()),
		zap.String("router", dep.Router.Hex()),
	)
	return s, nil
}

func (s *session) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	s.closers = append(s.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	s.logger.Info("metrics listening", zap.String("addr", addr))
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
