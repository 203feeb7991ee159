package memstore_test

import (
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/luno/stageflow"
	"github.com/luno/stageflow/adapters/adaptertest"
	"github.com/luno/stageflow/adapters/memstore"
)

func TestBlueprintStore(t *testing.T) {
	adaptertest.RunBlueprintStoreTest(t, func() stageflow.BlueprintStore {
		return memstore.NewBlueprintStore()
	})
}

func TestRunStore(t *testing.T) {
	adaptertest.RunRunStoreTest(t, func() stageflow.RunStore {
		return memstore.NewRunStore()
	})
}

func TestSnapshots(t *testing.T) {
	ctx := t.Context()
	store := memstore.NewRunStore()

	r := &stageflow.Run{ID: "run-1", BlueprintID: "leave", CurrentStageID: "draft", Log: []stageflow.StepLog{}}
	err := store.Store(ctx, r)
	jtest.RequireNil(t, err)

	next := r.Clone()
	next.CurrentStageID = "review"
	next.Log = append(next.Log, stageflow.StepLog{StepID: "submit"})

	err = store.CompareAndSwap(ctx, next, 1)
	jtest.Require(t, stageflow.ErrRevisionMismatch, err)

	err = store.CompareAndSwap(ctx, next, 0)
	jtest.RequireNil(t, err)

	snapshots := store.Snapshots("run-1")
	require.Len(t, snapshots, 2)
	require.Equal(t, "draft", snapshots[0].CurrentStageID)
	require.Equal(t, "review", snapshots[1].CurrentStageID)
	require.Empty(t, store.Snapshots("unknown"))
}

func TestStoreRejectsInvalidRecords(t *testing.T) {
	ctx := t.Context()

	err := memstore.NewRunStore().Store(ctx, &stageflow.Run{})
	jtest.Require(t, stageflow.ErrInvalidRunRecord, err)

	err = memstore.NewBlueprintStore().Store(ctx, nil)
	jtest.Require(t, stageflow.ErrInvalidBlueprint, err)
}
