package sqlstore

import (
	"context"
	"database/sql"

	"github.com/luno/jettison/errors"
)

type Dialect int

const (
	DialectSQLite Dialect = 1
	DialectMySQL  Dialect = 2
)

var sqliteSchema = []string{
	`create table if not exists stageflow_blueprints (
    id         text not null primary key,
    name       text not null,
    definition blob not null
)`,
	`create table if not exists stageflow_runs (
    id               text not null primary key,
    blueprint_id     text not null,
    current_stage_id text not null,
    revision         integer not null,
    log              blob not null
)`,
	`create index if not exists idx_stageflow_runs_blueprint_id on stageflow_runs (blueprint_id, id)`,
}

var mysqlSchema = []string{
	`create table if not exists stageflow_blueprints (
    id         varchar(255) not null,
    name       varchar(255) not null,
    definition longblob not null,

    primary key (id)
)`,
	`create table if not exists stageflow_runs (
    id               varchar(255) not null,
    blueprint_id     varchar(255) not null,
    current_stage_id varchar(255) not null,
    revision         bigint not null,
    log              longblob not null,

    primary key (id),
    index by_blueprint_id (blueprint_id, id)
)`,
}

// InitSchema creates the tables used by BlueprintStore and RunStore if they don't exist. Statements are executed
// one at a time as MySQL connections don't accept multiple statements by default.
func InitSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	var schema []string
	switch d {
	case DialectSQLite:
		schema = sqliteSchema
	case DialectMySQL:
		schema = mysqlSchema
	default:
		return errors.New("unknown sql dialect")
	}

	for _, stmt := range schema {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return errors.Wrap(err, "init schema")
		}
	}

	return nil
}
