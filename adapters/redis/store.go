package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/redis/go-redis/v9"

	"github.com/luno/stageflow"
)

const (
	defaultListLimit = 25

	blueprintKeyPrefix = "stageflow:blueprint:"
	blueprintIndexKey  = "stageflow:blueprints"
	runKeyPrefix       = "stageflow:run:"
	runIndexKey        = "stageflow:runs"
	runIndexKeyPrefix  = "stageflow:runs:"
)

// BlueprintStore keeps each blueprint as a single JSON value so that readers observe either the previous or the new
// definition, never a mix. A sorted set with equal scores indexes the ids in lexicographic order for listing.
type BlueprintStore struct {
	client redis.UniversalClient
}

func NewBlueprintStore(client redis.UniversalClient) *BlueprintStore {
	return &BlueprintStore{
		client: client,
	}
}

var _ stageflow.BlueprintStore = (*BlueprintStore)(nil)

func (s *BlueprintStore) Lookup(ctx context.Context, id string) (*stageflow.Blueprint, error) {
	data, err := s.client.Get(ctx, blueprintKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(stageflow.ErrBlueprintNotFound, fmt.Sprintf("blueprint '%s'", id), j.MKV{"blueprint_id": id})
	} else if err != nil {
		return nil, err
	}

	var b stageflow.Blueprint
	err = stageflow.Unmarshal(data, &b)
	if err != nil {
		return nil, errors.Wrap(err, "decode blueprint", j.MKV{"blueprint_id": id})
	}

	return &b, nil
}

func (s *BlueprintStore) Store(ctx context.Context, b *stageflow.Blueprint) error {
	if b == nil {
		return errors.Wrap(stageflow.ErrInvalidBlueprint, "")
	}

	data, err := stageflow.Marshal(b)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, blueprintKeyPrefix+b.ID, data, 0)
		p.ZAdd(ctx, blueprintIndexKey, redis.Z{Member: b.ID})
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "store blueprint", j.MKV{"blueprint_id": b.ID})
	}

	return nil
}

func (s *BlueprintStore) List(ctx context.Context, offset int64, limit int) ([]stageflow.Blueprint, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	ids, err := s.client.ZRange(ctx, blueprintIndexKey, offset, offset+int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	var res []stageflow.Blueprint
	for _, id := range ids {
		b, err := s.Lookup(ctx, id)
		if errors.Is(err, stageflow.ErrBlueprintNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}

		res = append(res, *b)
	}

	return res, nil
}

var (
	storeRunScript = redis.NewScript(`
		local run_key = KEYS[1]
		local global_list_key = KEYS[2]
		local list_key = KEYS[3]

		local run_id = ARGV[1]
		local revision = ARGV[2]
		local data = ARGV[3]

		redis.call('HSET', run_key, 'revision', revision, 'data', data)
		redis.call('ZADD', global_list_key, 0, run_id)
		redis.call('ZADD', list_key, 0, run_id)

		return 1
	`)

	// Returns -1 when the run doesn't exist, 0 when its revision differs from the expected one and 1 once swapped.
	compareAndSwapScript = redis.NewScript(`
		local run_key = KEYS[1]

		local expected = ARGV[1]
		local revision = ARGV[2]
		local data = ARGV[3]

		local current = redis.call('HGET', run_key, 'revision')
		if not current then
			return -1
		end

		if tonumber(current) ~= tonumber(expected) then
			return 0
		end

		redis.call('HSET', run_key, 'revision', revision, 'data', data)

		return 1
	`)
)

// RunStore keeps each run in a hash holding its revision next to the encoded run. Writes that depend on the
// revision are performed by a Lua script so the check and the write are atomic.
type RunStore struct {
	client redis.UniversalClient
}

func NewRunStore(client redis.UniversalClient) *RunStore {
	return &RunStore{
		client: client,
	}
}

var _ stageflow.RunStore = (*RunStore)(nil)

func (s *RunStore) Lookup(ctx context.Context, id string) (*stageflow.Run, error) {
	data, err := s.client.HGet(ctx, runKeyPrefix+id, "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(stageflow.ErrRunNotFound, fmt.Sprintf("run '%s'", id), j.MKV{"run_id": id})
	} else if err != nil {
		return nil, err
	}

	var r stageflow.Run
	err = stageflow.Unmarshal(data, &r)
	if err != nil {
		return nil, errors.Wrap(err, "decode run", j.MKV{"run_id": id})
	}

	if r.Log == nil {
		r.Log = []stageflow.StepLog{}
	}

	return &r, nil
}

func (s *RunStore) Store(ctx context.Context, r *stageflow.Run) error {
	if r == nil || r.ID == "" {
		return errors.Wrap(stageflow.ErrInvalidRunRecord, "")
	}

	data, err := stageflow.Marshal(r)
	if err != nil {
		return err
	}

	err = storeRunScript.Run(ctx, s.client,
		[]string{runKeyPrefix + r.ID, runIndexKey, runIndexKeyPrefix + r.BlueprintID},
		r.ID, strconv.Itoa(r.Revision()), string(data)).Err()
	if err != nil {
		return errors.Wrap(err, "store run", j.MKV{"run_id": r.ID})
	}

	return nil
}

func (s *RunStore) CompareAndSwap(ctx context.Context, r *stageflow.Run, expectedRevision int) error {
	if r == nil || r.ID == "" {
		return errors.Wrap(stageflow.ErrInvalidRunRecord, "")
	}

	data, err := stageflow.Marshal(r)
	if err != nil {
		return err
	}

	res, err := compareAndSwapScript.Run(ctx, s.client,
		[]string{runKeyPrefix + r.ID},
		strconv.Itoa(expectedRevision), strconv.Itoa(r.Revision()), string(data)).Int()
	if err != nil {
		return errors.Wrap(err, "compare and swap run", j.MKV{"run_id": r.ID})
	}

	switch res {
	case -1:
		return errors.Wrap(stageflow.ErrRunNotFound, fmt.Sprintf("run '%s'", r.ID), j.MKV{"run_id": r.ID})
	case 0:
		return errors.Wrap(stageflow.ErrRevisionMismatch, "", j.MKV{
			"run_id":            r.ID,
			"expected_revision": expectedRevision,
		})
	default:
		return nil
	}
}

func (s *RunStore) List(ctx context.Context, blueprintID string, offset int64, limit int) ([]stageflow.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	listKey := runIndexKey
	if blueprintID != "" {
		listKey = runIndexKeyPrefix + blueprintID
	}

	ids, err := s.client.ZRange(ctx, listKey, offset, offset+int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	var res []stageflow.Run
	for _, id := range ids {
		r, err := s.Lookup(ctx, id)
		if errors.Is(err, stageflow.ErrRunNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}

		res = append(res, *r)
	}

	return res, nil
}
