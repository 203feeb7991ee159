package main

import (
	"context"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/luno/stageflow"
	"github.com/luno/stageflow/adapters/memstore"
	stageflowredis "github.com/luno/stageflow/adapters/redis"
	"github.com/luno/stageflow/adapters/sqlite"
	"github.com/luno/stageflow/adapters/sqlstore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStores connects to the configured backend. The returned closer releases the underlying connection.
func openStores(ctx context.Context, cfg *Config) (stageflow.BlueprintStore, stageflow.RunStore, io.Closer, error) {
	switch cfg.Store.Backend {
	case backendSQLite:
		db, err := sqlite.Open(ctx, cfg.Store.SQLite.Path)
		if err != nil {
			return nil, nil, nil, err
		}

		return sqlstore.NewBlueprintStore(db), sqlstore.NewRunStore(db), db, nil

	case backendMySQL:
		db, err := sqlstore.OpenMySQL(ctx, cfg.Store.MySQL.DSN)
		if err != nil {
			return nil, nil, nil, err
		}

		return sqlstore.NewBlueprintStore(db), sqlstore.NewRunStore(db), db, nil

	case backendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})

		err := client.Ping(ctx).Err()
		if err != nil {
			client.Close()
			return nil, nil, nil, err
		}

		return stageflowredis.NewBlueprintStore(client), stageflowredis.NewRunStore(client), client, nil

	default:
		return memstore.NewBlueprintStore(), memstore.NewRunStore(), nopCloser{}, nil
	}
}
