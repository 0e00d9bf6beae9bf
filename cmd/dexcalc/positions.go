package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"directionalLiquidity/internal/config"
	"directionalLiquidity/internal/model"
	"directionalLiquidity/internal/position"
	"directionalLiquidity/internal/storage"
	"directionalLiquidity/internal/storage/postgres"
)

func newPositionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Discover directional LP positions of one or more owners",
		RunE:  runPositions,
	}
	chainFlags(cmd.Flags())
	cmd.Flags().StringSlice("owner", nil, "owner addresses (comma-separated)")
	cmd.Flags().Uint64("lookback", 5_000_000, "blocks to scan back from the head")
	cmd.Flags().Uint64("chunk-size", 50_000, "blocks per eth_getLogs request")
	cmd.Flags().String("cursor-file", "", "resume scans from this cursor file")
	cmd.Flags().Bool("full", false, "ignore saved cursors and rescan the whole window")
	cmd.Flags().String("out", "", "append snapshots to this JSONL file instead of stdout")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshots and cursors")
	return cmd
}

func runPositions(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPositions(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	full, _ := cmd.Flags().GetBool("full")

	owners, err := config.ParseAddresses(cfg.Owners)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		return fmt.Errorf("owner is required")
	}

	s, err := openSession(cfg.Config)
	if err != nil {
		return err
	}
	defer s.Close()

	var sinks storage.Multi
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	} else {
		sinks = append(sinks, storage.NewJsonlWriter(os.Stdout))
	}

	var cursors position.CursorStore
	if cfg.CursorFile != "" {
		cursors = position.NewFileCursorStore(cfg.CursorFile)
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(s.ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(s.ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		sinks = append(sinks, store)
		if cursors == nil {
			cursors = &position.DBCursorStore{Store: store}
		}
	}

	scanner := position.NewScanner(position.Config{
		Market:       s.deployment.Market,
		Router:       s.deployment.Router,
		ChainID:      s.deployment.ChainID,
		Lookback:     cfg.Lookback,
		ChunkSize:    cfg.ChunkSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, s.client, cursors, s.metrics, s.logger)

	s.logger.Info("positions start",
		zap.Int("owners", len(owners)),
		zap.Uint64("lookback", cfg.Lookback),
		zap.Uint64("chunk_size", cfg.ChunkSize),
		zap.Bool("full", full),
		zap.Bool("cursor", cursors != nil),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	for _, owner := range owners {
		var res position.Result
		if full {
			res, err = scanner.Discover(s.ctx, owner)
		} else {
			res, err = scanner.Refresh(s.ctx, owner)
		}
		if err != nil {
			return fmt.Errorf("scan %s: %w", owner.Hex(), err)
		}

		observed := time.Now().UTC().Format(time.RFC3339)
		records := make([]model.PositionRecord, 0, len(res.Positions))
		for _, pos := range res.Positions {
			rec := pos.Record()
			rec.ObservedAt = observed
			rec.BlockNumber = res.Block
			records = append(records, rec)
		}
		if err := sinks.PutPositions(s.ctx, records); err != nil {
			return fmt.Errorf("store positions: %w", err)
		}
	}

	s.logger.Info("positions done", zap.Int("owners", len(owners)))
	return nil
}
