package storage

import (
	"context"

	"directionalLiquidity/internal/model"
)

// PositionSink receives position snapshots from discovery.
type PositionSink interface {
	PutPositions(ctx context.Context, records []model.PositionRecord) error
}

// Multi fans a batch out to every sink in order and stops at the first error.
type Multi []PositionSink

func (m Multi) PutPositions(ctx context.Context, records []model.PositionRecord) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutPositions(ctx, records); err != nil {
			return err
		}
	}
	return nil
}
