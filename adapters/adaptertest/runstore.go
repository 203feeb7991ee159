package adaptertest

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/luno/stageflow"
)

// RunRunStoreTest runs the behaviour every stageflow.RunStore implementation must provide. factory is called once
// per test and must return an empty store.
func RunRunStoreTest(t *testing.T, factory func() stageflow.RunStore) {
	tests := []func(t *testing.T, store stageflow.RunStore){
		testRunLookupNotFound,
		testRunStoreAndLookup,
		testRunCompareAndSwap,
		testRunCompareAndSwapMismatch,
		testRunCompareAndSwapNotFound,
		testRunConcurrentCompareAndSwap,
		testRunList,
	}

	for _, test := range tests {
		storeForTesting := factory()
		test(t, storeForTesting)
	}
}

func testRunLookupNotFound(t *testing.T, store stageflow.RunStore) {
	t.Run("Run lookup not found", func(t *testing.T) {
		_, err := store.Lookup(context.Background(), "missing")
		jtest.Require(t, stageflow.ErrRunNotFound, err)
	})
}

func testRunStoreAndLookup(t *testing.T, store stageflow.RunStore) {
	t.Run("Run store and lookup", func(t *testing.T) {
		ctx := context.Background()
		r := newRun("run-1", "leave", "draft")

		err := store.Store(ctx, r)
		jtest.RequireNil(t, err)

		actual, err := store.Lookup(ctx, "run-1")
		jtest.RequireNil(t, err)
		requireRunEqual(t, r, actual)
		require.Equal(t, 0, actual.Revision())

		actual.CurrentStageID = "mutated"

		again, err := store.Lookup(ctx, "run-1")
		jtest.RequireNil(t, err)
		require.Equal(t, "draft", again.CurrentStageID)
	})
}

func testRunCompareAndSwap(t *testing.T, store stageflow.RunStore) {
	t.Run("Run compare and swap", func(t *testing.T) {
		ctx := context.Background()
		r := newRun("run-1", "leave", "draft")

		err := store.Store(ctx, r)
		jtest.RequireNil(t, err)

		next := advanced(r, "review", "submit", time.Date(2024, 3, 1, 9, 30, 15, 123456789, time.UTC))
		err = store.CompareAndSwap(ctx, next, 0)
		jtest.RequireNil(t, err)

		actual, err := store.Lookup(ctx, "run-1")
		jtest.RequireNil(t, err)
		requireRunEqual(t, next, actual)
		require.Equal(t, 1, actual.Revision())

		final := advanced(actual, "approved", "approve", time.Date(2024, 3, 1, 9, 45, 0, 0, time.UTC))
		err = store.CompareAndSwap(ctx, final, 1)
		jtest.RequireNil(t, err)

		actual, err = store.Lookup(ctx, "run-1")
		jtest.RequireNil(t, err)
		requireRunEqual(t, final, actual)
	})
}

func testRunCompareAndSwapMismatch(t *testing.T, store stageflow.RunStore) {
	t.Run("Run compare and swap revision mismatch", func(t *testing.T) {
		ctx := context.Background()
		r := newRun("run-1", "leave", "draft")

		err := store.Store(ctx, r)
		jtest.RequireNil(t, err)

		next := advanced(r, "review", "submit", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
		err = store.CompareAndSwap(ctx, next, 1)
		jtest.Require(t, stageflow.ErrRevisionMismatch, err)

		actual, err := store.Lookup(ctx, "run-1")
		jtest.RequireNil(t, err)
		requireRunEqual(t, r, actual)
	})
}

func testRunCompareAndSwapNotFound(t *testing.T, store stageflow.RunStore) {
	t.Run("Run compare and swap not found", func(t *testing.T) {
		ctx := context.Background()

		next := advanced(newRun("run-1", "leave", "draft"), "review", "submit", time.Now().UTC())
		err := store.CompareAndSwap(ctx, next, 0)
		jtest.Require(t, stageflow.ErrRunNotFound, err)

		_, err = store.Lookup(ctx, "run-1")
		jtest.Require(t, stageflow.ErrRunNotFound, err)
	})
}

func testRunConcurrentCompareAndSwap(t *testing.T, store stageflow.RunStore) {
	t.Run("Run concurrent compare and swap has a single winner", func(t *testing.T) {
		ctx := context.Background()
		r := newRun("run-1", "leave", "draft")

		err := store.Store(ctx, r)
		jtest.RequireNil(t, err)

		const writers = 10
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				next := advanced(r, "stage-"+strconv.Itoa(i), "step-"+strconv.Itoa(i), time.Now().UTC())
				errs <- store.CompareAndSwap(ctx, next, 0)
			}(i)
		}

		wg.Wait()
		close(errs)

		var won int
		for err := range errs {
			if err == nil {
				won++
				continue
			}

			require.True(t, errors.Is(err, stageflow.ErrRevisionMismatch), err.Error())
		}
		require.Equal(t, 1, won)

		actual, err := store.Lookup(ctx, "run-1")
		jtest.RequireNil(t, err)
		require.Equal(t, 1, actual.Revision())
		require.Equal(t, "stage-"+actual.Log[0].StepID[len("step-"):], actual.CurrentStageID)
	})
}

func testRunList(t *testing.T, store stageflow.RunStore) {
	t.Run("Run list", func(t *testing.T) {
		ctx := context.Background()

		list, err := store.List(ctx, "", 0, 10)
		jtest.RequireNil(t, err)
		require.Empty(t, list)

		runs := []*stageflow.Run{
			newRun("r3", "leave", "draft"),
			newRun("r1", "leave", "draft"),
			newRun("r2", "expense", "draft"),
			newRun("r5", "leave", "review"),
			newRun("r4", "expense", "draft"),
		}
		for _, r := range runs {
			err := store.Store(ctx, r)
			jtest.RequireNil(t, err)
		}

		list, err = store.List(ctx, "", 0, 10)
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"r1", "r2", "r3", "r4", "r5"}, runIDs(list))

		list, err = store.List(ctx, "leave", 0, 10)
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"r1", "r3", "r5"}, runIDs(list))

		list, err = store.List(ctx, "leave", 1, 1)
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"r3"}, runIDs(list))

		list, err = store.List(ctx, "expense", 2, 10)
		jtest.RequireNil(t, err)
		require.Empty(t, list)

		list, err = store.List(ctx, "unknown", 0, 10)
		jtest.RequireNil(t, err)
		require.Empty(t, list)
	})
}

func newRun(id, blueprintID, stageID string) *stageflow.Run {
	return &stageflow.Run{
		ID:             id,
		BlueprintID:    blueprintID,
		CurrentStageID: stageID,
		Log:            []stageflow.StepLog{},
	}
}

func advanced(r *stageflow.Run, stageID, stepID string, at time.Time) *stageflow.Run {
	next := r.Clone()
	next.CurrentStageID = stageID
	next.Log = append(next.Log, stageflow.StepLog{StepID: stepID, Timestamp: at})
	return next
}

func requireRunEqual(t *testing.T, expected, actual *stageflow.Run) {
	t.Helper()

	require.Equal(t, expected.ID, actual.ID)
	require.Equal(t, expected.BlueprintID, actual.BlueprintID)
	require.Equal(t, expected.CurrentStageID, actual.CurrentStageID)
	require.Len(t, actual.Log, len(expected.Log))

	for i := range expected.Log {
		require.Equal(t, expected.Log[i].StepID, actual.Log[i].StepID)
		require.True(t, expected.Log[i].Timestamp.Equal(actual.Log[i].Timestamp),
			"expected %v, got %v", expected.Log[i].Timestamp, actual.Log[i].Timestamp)
	}
}

func runIDs(list []stageflow.Run) []string {
	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID)
	}

	return ids
}
