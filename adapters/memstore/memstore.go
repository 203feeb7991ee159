package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/luno/stageflow"
)

const defaultListLimit = 25

// NewBlueprintStore returns an empty in-memory blueprint store. Nothing is persisted across restarts.
func NewBlueprintStore() *BlueprintStore {
	return &BlueprintStore{
		store: make(map[string]*stageflow.Blueprint),
	}
}

var _ stageflow.BlueprintStore = (*BlueprintStore)(nil)

type BlueprintStore struct {
	mu    sync.RWMutex
	store map[string]*stageflow.Blueprint
}

func (s *BlueprintStore) Lookup(ctx context.Context, id string) (*stageflow.Blueprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.store[id]
	if !ok {
		return nil, errors.Wrap(stageflow.ErrBlueprintNotFound, fmt.Sprintf("blueprint '%s'", id), j.MKV{"blueprint_id": id})
	}

	// Return a copy so modifications don't affect the store.
	return b.Clone(), nil
}

func (s *BlueprintStore) Store(ctx context.Context, b *stageflow.Blueprint) error {
	if b == nil {
		return errors.Wrap(stageflow.ErrInvalidBlueprint, "")
	}

	// The copy is taken before acquiring the lock so a reader can only ever see a complete blueprint.
	c := b.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[c.ID] = c
	return nil
}

func (s *BlueprintStore) List(ctx context.Context, offset int64, limit int) ([]stageflow.Blueprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.store))
	for id := range s.store {
		ids = append(ids, id)
	}

	var list []stageflow.Blueprint
	for _, id := range page(ids, offset, limit) {
		list = append(list, *s.store[id].Clone())
	}

	return list, nil
}

// NewRunStore returns an empty in-memory run store. Nothing is persisted across restarts.
func NewRunStore() *RunStore {
	return &RunStore{
		store:     make(map[string]*stageflow.Run),
		snapshots: make(map[string][]*stageflow.Run),
	}
}

var _ stageflow.RunStore = (*RunStore)(nil)

type RunStore struct {
	mu    sync.RWMutex
	store map[string]*stageflow.Run

	// snapshots holds every version of each run that has been written, in write order.
	snapshots map[string][]*stageflow.Run
}

func (s *RunStore) Lookup(ctx context.Context, id string) (*stageflow.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.store[id]
	if !ok {
		return nil, errors.Wrap(stageflow.ErrRunNotFound, fmt.Sprintf("run '%s'", id), j.MKV{"run_id": id})
	}

	return r.Clone(), nil
}

func (s *RunStore) Store(ctx context.Context, r *stageflow.Run) error {
	if r == nil || r.ID == "" {
		return errors.Wrap(stageflow.ErrInvalidRunRecord, "")
	}

	c := r.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(c)
	return nil
}

func (s *RunStore) CompareAndSwap(ctx context.Context, r *stageflow.Run, expectedRevision int) error {
	if r == nil || r.ID == "" {
		return errors.Wrap(stageflow.ErrInvalidRunRecord, "")
	}

	c := r.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.store[c.ID]
	if !ok {
		return errors.Wrap(stageflow.ErrRunNotFound, fmt.Sprintf("run '%s'", c.ID), j.MKV{"run_id": c.ID})
	}

	if current.Revision() != expectedRevision {
		return errors.Wrap(stageflow.ErrRevisionMismatch, "", j.MKV{
			"run_id":            c.ID,
			"revision":          current.Revision(),
			"expected_revision": expectedRevision,
		})
	}

	s.put(c)
	return nil
}

func (s *RunStore) put(r *stageflow.Run) {
	s.store[r.ID] = r
	s.snapshots[r.ID] = append(s.snapshots[r.ID], r.Clone())
}

func (s *RunStore) List(ctx context.Context, blueprintID string, offset int64, limit int) ([]stageflow.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, r := range s.store {
		if blueprintID != "" && r.BlueprintID != blueprintID {
			continue
		}

		ids = append(ids, id)
	}

	var list []stageflow.Run
	for _, id := range page(ids, offset, limit) {
		list = append(list, *s.store[id].Clone())
	}

	return list, nil
}

// Snapshots returns every version of the run that has been written to the store, oldest first.
func (s *RunStore) Snapshots(runID string) []*stageflow.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshots []*stageflow.Run
	for _, r := range s.snapshots[runID] {
		snapshots = append(snapshots, r.Clone())
	}

	return snapshots
}

func page(ids []string, offset int64, limit int) []string {
	if limit <= 0 {
		limit = defaultListLimit
	}

	sort.Strings(ids)

	if offset < 0 || offset >= int64(len(ids)) {
		return nil
	}

	ids = ids[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}

	return ids
}
