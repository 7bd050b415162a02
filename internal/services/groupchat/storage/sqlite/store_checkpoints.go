package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetCheckpoint returns the saved feed position for name, or 0.
func (s *Store) GetCheckpoint(ctx context.Context, name string) (uint64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var position int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT position FROM projection_checkpoints WHERE name = ?`, name,
	).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get checkpoint: %w", err)
	}
	return uint64(position), nil
}

// SaveCheckpoint upserts the feed position for name.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, position uint64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("checkpoint name is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO projection_checkpoints (name, position, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET position = excluded.position, updated_at = excluded.updated_at`,
		name, int64(position), toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
