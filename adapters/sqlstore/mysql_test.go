package sqlstore_test

import (
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	mysqlcontainer "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/luno/stageflow"
	"github.com/luno/stageflow/adapters/adaptertest"
	"github.com/luno/stageflow/adapters/sqlstore"
)

func TestMySQLStores(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := t.Context()

	mysqlInstance, err := mysqlcontainer.Run(ctx, "mysql:8.0.36", mysqlcontainer.WithDatabase("stageflow"))
	testcontainers.CleanupContainer(t, mysqlInstance)
	require.NoError(t, err)

	dsn, err := mysqlInstance.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sqlstore.OpenMySQL(ctx, dsn)
	jtest.RequireNil(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	truncate := func() {
		_, err := db.ExecContext(ctx, "truncate table stageflow_blueprints")
		jtest.RequireNil(t, err)

		_, err = db.ExecContext(ctx, "truncate table stageflow_runs")
		jtest.RequireNil(t, err)
	}

	t.Run("BlueprintStore", func(t *testing.T) {
		adaptertest.RunBlueprintStoreTest(t, func() stageflow.BlueprintStore {
			truncate()
			return sqlstore.NewBlueprintStore(db)
		})
	})

	t.Run("RunStore", func(t *testing.T) {
		adaptertest.RunRunStoreTest(t, func() stageflow.RunStore {
			truncate()
			return sqlstore.NewRunStore(db)
		})
	})
}
