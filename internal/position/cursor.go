package position

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"directionalLiquidity/internal/model"
)

// CursorStore persists per-owner scan cursors.
type CursorStore interface {
	Load(ctx context.Context, owner string) (model.ScanCursor, bool, error)
	Save(ctx context.Context, cursor model.ScanCursor) error
}

// FileCursorStore keeps every owner's cursor in one JSON file, replaced atomically.
type FileCursorStore struct {
	Path string

	mu sync.Mutex
}

func NewFileCursorStore(path string) *FileCursorStore {
	return &FileCursorStore{Path: path}
}

func (s *FileCursorStore) Load(ctx context.Context, owner string) (model.ScanCursor, bool, error) {
	if s == nil || s.Path == "" {
		return model.ScanCursor{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return model.ScanCursor{}, false, err
	}
	cursor, ok := all[ownerKey(owner)]
	return cursor, ok, nil
}

func (s *FileCursorStore) Save(ctx context.Context, cursor model.ScanCursor) error {
	if s == nil || s.Path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	if cursor.UpdatedAt == "" {
		cursor.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	all[ownerKey(cursor.Owner)] = cursor

	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cursor dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cursor tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename cursor: %w", err)
	}
	return nil
}

func (s *FileCursorStore) readAll() (map[string]model.ScanCursor, error) {
	all := make(map[string]model.ScanCursor)
	stat, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil
		}
		return nil, fmt.Errorf("stat cursor: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("cursor path is a directory")
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read cursor: %w", err)
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}
	return all, nil
}

func ownerKey(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}
