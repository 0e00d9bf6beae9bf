package position

import (
	"context"

	"directionalLiquidity/internal/model"
	"directionalLiquidity/internal/storage/postgres"
)

// DBCursorStore stores cursors in the scan_cursors table.
type DBCursorStore struct {
	Store *postgres.Store
}

func (s *DBCursorStore) Load(ctx context.Context, owner string) (model.ScanCursor, bool, error) {
	if s == nil || s.Store == nil {
		return model.ScanCursor{}, false, nil
	}
	return s.Store.LoadCursor(ctx, owner)
}

func (s *DBCursorStore) Save(ctx context.Context, cursor model.ScanCursor) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveCursor(ctx, cursor)
}
