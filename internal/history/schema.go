package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// runsLayout is stored in SQLite's user_version header field. A fresh file
// reports 0.
const runsLayout = 1

// ErrSchemaMismatch is returned when the history file uses another runs layout.
var ErrSchemaMismatch = errors.New("history schema mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var layout int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&layout); err != nil {
		return fmt.Errorf("read history layout: %w", err)
	}
	switch layout {
	case runsLayout:
		return nil
	case 0:
		return s.createRuns(ctx)
	default:
		return fmt.Errorf("%w: %s has layout %d, this build writes %d; remove the file to start a new history",
			ErrSchemaMismatch, s.path, layout, runsLayout)
	}
}

// createRuns applies schema.sql and stamps the layout in one transaction, so a
// crash leaves either an empty file or a complete one.
func (s *Store) createRuns(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history setup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", runsLayout)); err != nil {
		return fmt.Errorf("stamp history layout: %w", err)
	}
	return tx.Commit()
}
