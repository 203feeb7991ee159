package sqlite

import (
	"context"
	"database/sql"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	_ "modernc.org/sqlite"

	"github.com/luno/stageflow/adapters/sqlstore"
)

// Open creates a new SQLite database connection configured for use by the sqlstore adapters and creates the
// stageflow tables if they don't exist yet.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database", j.MKV{"path": path})
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to set pragma", j.MKV{"pragma": pragma})
		}
	}

	// A single connection serialises writers, which keeps compare-and-swap updates from failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	err = sqlstore.InitSchema(ctx, db, sqlstore.DialectSQLite)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// NewStores opens the database at path and returns the blueprint and run stores backed by it.
func NewStores(ctx context.Context, path string) (*sqlstore.BlueprintStore, *sqlstore.RunStore, *sql.DB, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, nil, nil, err
	}

	return sqlstore.NewBlueprintStore(db), sqlstore.NewRunStore(db), db, nil
}
