package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/luno/jettison/errors"
)

// OpenMySQL connects to the MySQL database described by dsn and creates the stageflow tables if they don't exist
// yet. The connection always reports matched rather than changed rows so that CompareAndSwap can tell a stale
// revision apart from an update that happens to write identical values.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}

	cfg.ParseTime = true
	cfg.ClientFoundRows = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "mysql connector")
	}

	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(time.Minute * 3)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}

	err = InitSchema(ctx, db, DialectMySQL)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
