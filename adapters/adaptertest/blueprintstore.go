package adaptertest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/luno/stageflow"
)

// RunBlueprintStoreTest runs the behaviour every stageflow.BlueprintStore implementation must provide. factory is
// called once per test and must return an empty store.
func RunBlueprintStoreTest(t *testing.T, factory func() stageflow.BlueprintStore) {
	tests := []func(t *testing.T, store stageflow.BlueprintStore){
		testBlueprintLookupNotFound,
		testBlueprintStoreAndLookup,
		testBlueprintOverwrite,
		testBlueprintCopies,
		testBlueprintList,
		testBlueprintConcurrentOverwrite,
	}

	for _, test := range tests {
		storeForTesting := factory()
		test(t, storeForTesting)
	}
}

func testBlueprintLookupNotFound(t *testing.T, store stageflow.BlueprintStore) {
	t.Run("Blueprint lookup not found", func(t *testing.T) {
		_, err := store.Lookup(context.Background(), "missing")
		jtest.Require(t, stageflow.ErrBlueprintNotFound, err)
	})
}

func testBlueprintStoreAndLookup(t *testing.T, store stageflow.BlueprintStore) {
	t.Run("Blueprint store and lookup", func(t *testing.T) {
		ctx := context.Background()
		b := leaveRequest("leave")

		err := store.Store(ctx, b)
		jtest.RequireNil(t, err)

		actual, err := store.Lookup(ctx, "leave")
		jtest.RequireNil(t, err)
		require.Equal(t, b, actual)

		withoutSteps := &stageflow.Blueprint{
			ID:   "single",
			Name: "Single stage",
			Stages: []stageflow.Stage{
				{ID: "only", Name: "Only", IsInitial: true, IsFinal: true, Enabled: true},
			},
		}

		err = store.Store(ctx, withoutSteps)
		jtest.RequireNil(t, err)

		actual, err = store.Lookup(ctx, "single")
		jtest.RequireNil(t, err)
		require.Equal(t, withoutSteps, actual)
		require.Empty(t, actual.Steps)
	})
}

func testBlueprintOverwrite(t *testing.T, store stageflow.BlueprintStore) {
	t.Run("Blueprint overwrite", func(t *testing.T) {
		ctx := context.Background()

		err := store.Store(ctx, leaveRequest("leave"))
		jtest.RequireNil(t, err)

		replacement := leaveRequest("leave")
		replacement.Name = "Leave request v2"
		replacement.Stages = append(replacement.Stages, stageflow.Stage{ID: "archived", Name: "Archived", Enabled: true})

		err = store.Store(ctx, replacement)
		jtest.RequireNil(t, err)

		actual, err := store.Lookup(ctx, "leave")
		jtest.RequireNil(t, err)
		require.Equal(t, replacement, actual)

		list, err := store.List(ctx, 0, 10)
		jtest.RequireNil(t, err)
		require.Len(t, list, 1)
	})
}

func testBlueprintCopies(t *testing.T, store stageflow.BlueprintStore) {
	t.Run("Blueprint lookups are independent copies", func(t *testing.T) {
		ctx := context.Background()

		b := leaveRequest("leave")
		err := store.Store(ctx, b)
		jtest.RequireNil(t, err)

		// Mutating the caller's blueprint after the write must not leak into the store.
		b.Stages[0].Name = "Mutated"
		b.Steps[0].FromStages[0] = "mutated"

		first, err := store.Lookup(ctx, "leave")
		jtest.RequireNil(t, err)
		require.Equal(t, "Draft", first.Stages[0].Name)
		require.Equal(t, "draft", first.Steps[0].FromStages[0])

		first.Steps[0].ToStage = "mutated"

		second, err := store.Lookup(ctx, "leave")
		jtest.RequireNil(t, err)
		require.Equal(t, "review", second.Steps[0].ToStage)
	})
}

func testBlueprintList(t *testing.T, store stageflow.BlueprintStore) {
	t.Run("Blueprint list", func(t *testing.T) {
		ctx := context.Background()

		list, err := store.List(ctx, 0, 10)
		jtest.RequireNil(t, err)
		require.Empty(t, list)

		for _, id := range []string{"c", "a", "e", "b", "d"} {
			err := store.Store(ctx, leaveRequest(id))
			jtest.RequireNil(t, err)
		}

		list, err = store.List(ctx, 0, 10)
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"a", "b", "c", "d", "e"}, blueprintIDs(list))

		list, err = store.List(ctx, 1, 2)
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"b", "c"}, blueprintIDs(list))

		list, err = store.List(ctx, 4, 10)
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"e"}, blueprintIDs(list))

		list, err = store.List(ctx, 5, 10)
		jtest.RequireNil(t, err)
		require.Empty(t, list)
	})
}

func testBlueprintConcurrentOverwrite(t *testing.T, store stageflow.BlueprintStore) {
	t.Run("Blueprint concurrent overwrite is never partial", func(t *testing.T) {
		ctx := context.Background()

		err := store.Store(ctx, leaveRequest("leave"))
		jtest.RequireNil(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				b := leaveRequest("leave")
				b.Name = fmt.Sprintf("version %d", i)
				for j := range b.Stages {
					b.Stages[j].Description = b.Name
				}

				errs <- store.Store(ctx, b)
			}(i)
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			jtest.RequireNil(t, err)
		}

		actual, err := store.Lookup(ctx, "leave")
		jtest.RequireNil(t, err)

		// Every field must come from the same write.
		for _, s := range actual.Stages {
			require.Equal(t, actual.Name, s.Description)
		}
	})
}

func leaveRequest(id string) *stageflow.Blueprint {
	return &stageflow.Blueprint{
		ID:   id,
		Name: "Leave request",
		Stages: []stageflow.Stage{
			{ID: "draft", Name: "Draft", IsInitial: true, Enabled: true},
			{ID: "review", Name: "Review", Enabled: true, Description: "Waiting on a manager"},
			{ID: "approved", Name: "Approved", IsFinal: true, Enabled: true},
			{ID: "rejected", Name: "Rejected", IsFinal: true, Enabled: false},
		},
		Steps: []stageflow.Step{
			{ID: "submit", Name: "Submit", Enabled: true, FromStages: []string{"draft"}, ToStage: "review"},
			{ID: "approve", Name: "Approve", Enabled: true, FromStages: []string{"review"}, ToStage: "approved"},
			{ID: "reject", Name: "Reject", Enabled: true, FromStages: []string{"draft", "review"}, ToStage: "rejected"},
		},
	}
}

func blueprintIDs(list []stageflow.Blueprint) []string {
	var ids []string
	for _, b := range list {
		ids = append(ids, b.ID)
	}

	return ids
}
