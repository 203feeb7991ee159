package redis_test

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/luno/stageflow"
	"github.com/luno/stageflow/adapters/adaptertest"
	stageflowredis "github.com/luno/stageflow/adapters/redis"
)

func TestRedisStores(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := t.Context()

	redisInstance, err := rediscontainer.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, redisInstance)
	require.NoError(t, err)

	host, err := redisInstance.Host(ctx)
	require.NoError(t, err)

	port, err := redisInstance.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
	t.Cleanup(func() {
		client.Close()
	})

	t.Run("BlueprintStore", func(t *testing.T) {
		adaptertest.RunBlueprintStoreTest(t, func() stageflow.BlueprintStore {
			require.NoError(t, client.FlushDB(ctx).Err())
			return stageflowredis.NewBlueprintStore(client)
		})
	})

	t.Run("RunStore", func(t *testing.T) {
		adaptertest.RunRunStoreTest(t, func() stageflow.RunStore {
			require.NoError(t, client.FlushDB(ctx).Err())
			return stageflowredis.NewRunStore(client)
		})
	})
}
