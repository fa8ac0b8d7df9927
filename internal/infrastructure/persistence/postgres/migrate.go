package postgres

import (
	"context"
	"io/fs"
	"sort"

	"github.com/turtacn/itemsvc/pkg/errors"
	"github.com/turtacn/itemsvc/pkg/logger"
)

// ApplyMigrations executes every *.sql file in fsys in lexical order, each inside its own
// transaction. Scripts are expected to be idempotent (CREATE ... IF NOT EXISTS, ON CONFLICT).
// It returns the number of scripts applied.
func (db *DBConnection) ApplyMigrations(ctx context.Context, fsys fs.FS) (int, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return 0, errors.ErrInternalFault("failed to list migrations").WithCause(err)
	}
	sort.Strings(names)

	for i, name := range names {
		script, err := fs.ReadFile(fsys, name)
		if err != nil {
			return i, errors.ErrInternalFault("failed to read migration " + name).WithCause(err)
		}

		tx, err := db.pool.Begin(ctx)
		if err != nil {
			return i, classifyStoreError(err)
		}
		if _, err := tx.Exec(ctx, string(script)); err != nil {
			_ = tx.Rollback(ctx)
			db.logger.Error(ctx, "Migration failed", err, logger.Fields{"migration": name})
			return i, classifyStoreError(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return i, classifyStoreError(err)
		}
		db.logger.Info(ctx, "Migration applied", logger.Fields{"migration": name})
	}
	return len(names), nil
}
