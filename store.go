package stageflow

import "context"

// BlueprintStore implementations should all be tested with adaptertest.RunBlueprintStoreTest. Writes must be atomic
// per blueprint ID so that a concurrent Lookup observes either the previous or the new blueprint in full.
type BlueprintStore interface {
	// Lookup returns ErrBlueprintNotFound when no blueprint is stored under id.
	Lookup(ctx context.Context, id string) (*Blueprint, error)

	// Store creates or replaces the blueprint with the same ID. The last write wins.
	Store(ctx context.Context, b *Blueprint) error

	// List returns up to limit blueprints ordered by ID, skipping the first offset blueprints.
	List(ctx context.Context, offset int64, limit int) ([]Blueprint, error)
}

// RunStore implementations should all be tested with adaptertest.RunRunStoreTest. CompareAndSwap is the only
// concurrency primitive the engine relies upon and must be atomic per run ID.
type RunStore interface {
	// Lookup returns ErrRunNotFound when no run is stored under id.
	Lookup(ctx context.Context, id string) (*Run, error)

	// Store creates or replaces the run unconditionally.
	Store(ctx context.Context, r *Run) error

	// CompareAndSwap replaces the stored run only if its Revision is equal to expectedRevision. ErrRevisionMismatch
	// is returned when it is not and ErrRunNotFound when there is no run stored under r.ID.
	CompareAndSwap(ctx context.Context, r *Run, expectedRevision int) error

	// List returns up to limit runs ordered by ID, skipping the first offset runs. An empty blueprintID lists runs of
	// all blueprints.
	List(ctx context.Context, blueprintID string, offset int64, limit int) ([]Run, error)
}
