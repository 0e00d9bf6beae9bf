package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"directionalLiquidity/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS position_snapshots (
	chain_id       BIGINT      NOT NULL,
	owner          TEXT        NOT NULL,
	pair_id        NUMERIC(78) NOT NULL,
	token0         TEXT        NOT NULL,
	token1         TEXT        NOT NULL,
	symbol0        TEXT        NOT NULL,
	symbol1        TEXT        NOT NULL,
	long_x         NUMERIC(78) NOT NULL,
	short_x        NUMERIC(78) NOT NULL,
	long_y         NUMERIC(78) NOT NULL,
	short_y        NUMERIC(78) NOT NULL,
	amount0_long   NUMERIC(78) NOT NULL,
	amount0_short  NUMERIC(78) NOT NULL,
	amount1_long   NUMERIC(78) NOT NULL,
	amount1_short  NUMERIC(78) NOT NULL,
	verified       BOOLEAN     NOT NULL,
	block_number   BIGINT      NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, owner, pair_id)
);
CREATE TABLE IF NOT EXISTS scan_cursors (
	owner       TEXT        PRIMARY KEY,
	last_block  BIGINT      NOT NULL,
	pairs       JSONB       NOT NULL DEFAULT '[]',
	pending     JSONB       NOT NULL DEFAULT '[]',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
ALTER TABLE scan_cursors ADD COLUMN IF NOT EXISTS pending JSONB NOT NULL DEFAULT '[]';
`

// Store provides Postgres persistence for position snapshots and scan cursors.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// PutPositions inserts or updates the latest snapshot of each position.
func (s *Store) PutPositions(ctx context.Context, records []model.PositionRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO position_snapshots (
				chain_id, owner, pair_id, token0, token1, symbol0, symbol1,
				long_x, short_x, long_y, short_y,
				amount0_long, amount0_short, amount1_long, amount1_short,
				verified, block_number, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
			ON CONFLICT (chain_id, owner, pair_id)
			DO UPDATE SET
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				symbol0 = EXCLUDED.symbol0,
				symbol1 = EXCLUDED.symbol1,
				long_x = EXCLUDED.long_x,
				short_x = EXCLUDED.short_x,
				long_y = EXCLUDED.long_y,
				short_y = EXCLUDED.short_y,
				amount0_long = EXCLUDED.amount0_long,
				amount0_short = EXCLUDED.amount0_short,
				amount1_long = EXCLUDED.amount1_long,
				amount1_short = EXCLUDED.amount1_short,
				verified = EXCLUDED.verified,
				block_number = GREATEST(position_snapshots.block_number, EXCLUDED.block_number),
				updated_at = now()
		`,
			int64(rec.Token0.ChainID),
			strings.ToLower(rec.Owner),
			rec.PairID,
			rec.Token0.Key(),
			rec.Token1.Key(),
			rec.Token0.Symbol,
			rec.Token1.Symbol,
			rec.LongX,
			rec.ShortX,
			rec.LongY,
			rec.ShortY,
			rec.Amount0Long,
			rec.Amount0Short,
			rec.Amount1Long,
			rec.Amount1Short,
			rec.Verified,
			int64(rec.BlockNumber),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadCursor returns the scan cursor of owner.
func (s *Store) LoadCursor(ctx context.Context, owner string) (model.ScanCursor, bool, error) {
	if owner == "" {
		return model.ScanCursor{}, false, fmt.Errorf("cursor owner required")
	}
	var (
		lastBlock int64
		pairs     []byte
		pending   []byte
	)
	row := s.pool.QueryRow(ctx, `SELECT last_block, pairs, pending FROM scan_cursors WHERE owner=$1`, strings.ToLower(owner))
	if err := row.Scan(&lastBlock, &pairs, &pending); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ScanCursor{}, false, nil
		}
		return model.ScanCursor{}, false, err
	}

	cursor := model.ScanCursor{Owner: owner, LastBlock: uint64(lastBlock)}
	if len(pairs) > 0 {
		if err := json.Unmarshal(pairs, &cursor.Pairs); err != nil {
			return model.ScanCursor{}, false, fmt.Errorf("parse cursor pairs: %w", err)
		}
	}
	if len(pending) > 0 {
		if err := json.Unmarshal(pending, &cursor.Pending); err != nil {
			return model.ScanCursor{}, false, fmt.Errorf("parse cursor pending: %w", err)
		}
	}
	return cursor, true, nil
}

// SaveCursor upserts the scan cursor of its owner.
func (s *Store) SaveCursor(ctx context.Context, cursor model.ScanCursor) error {
	if cursor.Owner == "" {
		return fmt.Errorf("cursor owner required")
	}
	pairs := cursor.Pairs
	if pairs == nil {
		pairs = []model.PairRef{}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("marshal cursor pairs: %w", err)
	}
	pending := cursor.Pending
	if pending == nil {
		pending = []string{}
	}
	pendingData, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal cursor pending: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scan_cursors (owner, last_block, pairs, pending, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (owner) DO UPDATE
		SET last_block = EXCLUDED.last_block, pairs = EXCLUDED.pairs, pending = EXCLUDED.pending, updated_at = now()
	`, strings.ToLower(cursor.Owner), int64(cursor.LastBlock), data, pendingData)
	return err
}
