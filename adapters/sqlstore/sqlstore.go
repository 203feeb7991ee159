package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/luno/stageflow"
)

const defaultListLimit = 25

// BlueprintStore persists blueprints as a single encoded definition per row so that a write replaces a blueprint
// atomically. It relies only on statements shared by SQLite and MySQL.
type BlueprintStore struct {
	db *sql.DB
}

func NewBlueprintStore(db *sql.DB) *BlueprintStore {
	return &BlueprintStore{db: db}
}

var _ stageflow.BlueprintStore = (*BlueprintStore)(nil)

func (s *BlueprintStore) Lookup(ctx context.Context, id string) (*stageflow.Blueprint, error) {
	b, err := blueprintScan(s.db.QueryRowContext(ctx, "select definition from "+blueprintTable+" where id=?", id))
	if errors.Is(err, stageflow.ErrBlueprintNotFound) {
		return nil, errors.Wrap(err, fmt.Sprintf("blueprint '%s'", id), j.MKV{"blueprint_id": id})
	} else if err != nil {
		return nil, err
	}

	return b, nil
}

func (s *BlueprintStore) Store(ctx context.Context, b *stageflow.Blueprint) error {
	if b == nil {
		return errors.Wrap(stageflow.ErrInvalidBlueprint, "")
	}

	definition, err := stageflow.Marshal(b)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "replace into "+blueprintTable+" (id, name, definition) values (?, ?, ?)",
		b.ID,
		b.Name,
		definition,
	)
	if err != nil {
		return errors.Wrap(err, "failed to store blueprint", j.MKV{"blueprint_id": b.ID})
	}

	return nil
}

func (s *BlueprintStore) List(ctx context.Context, offset int64, limit int) ([]stageflow.Blueprint, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, "select definition from "+blueprintTable+" order by id limit ? offset ?", limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list blueprints")
	}
	defer rows.Close()

	var res []stageflow.Blueprint
	for rows.Next() {
		b, err := blueprintScan(rows)
		if err != nil {
			return nil, err
		}

		res = append(res, *b)
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows error")
	}

	return res, nil
}

// RunStore persists runs with their log encoded in a single column. The revision column mirrors the length of the
// log and is what CompareAndSwap conditions its update on.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

var _ stageflow.RunStore = (*RunStore)(nil)

func (s *RunStore) Lookup(ctx context.Context, id string) (*stageflow.Run, error) {
	r, err := runScan(s.db.QueryRowContext(ctx, runSelectPrefix+"where id=?", id))
	if errors.Is(err, stageflow.ErrRunNotFound) {
		return nil, errors.Wrap(err, fmt.Sprintf("run '%s'", id), j.MKV{"run_id": id})
	} else if err != nil {
		return nil, err
	}

	return r, nil
}

func (s *RunStore) Store(ctx context.Context, r *stageflow.Run) error {
	if r == nil || r.ID == "" {
		return errors.Wrap(stageflow.ErrInvalidRunRecord, "")
	}

	log, err := encodeLog(r)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "replace into "+runTable+
		" (id, blueprint_id, current_stage_id, revision, log) values (?, ?, ?, ?, ?)",
		r.ID,
		r.BlueprintID,
		r.CurrentStageID,
		r.Revision(),
		log,
	)
	if err != nil {
		return errors.Wrap(err, "failed to store run", j.MKV{"run_id": r.ID})
	}

	return nil
}

func (s *RunStore) CompareAndSwap(ctx context.Context, r *stageflow.Run, expectedRevision int) error {
	if r == nil || r.ID == "" {
		return errors.Wrap(stageflow.ErrInvalidRunRecord, "")
	}

	log, err := encodeLog(r)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "update "+runTable+
		" set current_stage_id=?, revision=?, log=? where id=? and revision=?",
		r.CurrentStageID,
		r.Revision(),
		log,
		r.ID,
		expectedRevision,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update run", j.MKV{"run_id": r.ID})
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n > 0 {
		return nil
	}

	var revision int
	err = s.db.QueryRowContext(ctx, "select revision from "+runTable+" where id=?", r.ID).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(stageflow.ErrRunNotFound, fmt.Sprintf("run '%s'", r.ID), j.MKV{"run_id": r.ID})
	} else if err != nil {
		return err
	}

	return errors.Wrap(stageflow.ErrRevisionMismatch, "", j.MKV{
		"run_id":            r.ID,
		"revision":          revision,
		"expected_revision": expectedRevision,
	})
}

func (s *RunStore) List(ctx context.Context, blueprintID string, offset int64, limit int) ([]stageflow.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := runSelectPrefix
	var args []any
	if blueprintID != "" {
		query += "where blueprint_id=? "
		args = append(args, blueprintID)
	}

	query += "order by id limit ? offset ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var res []stageflow.Run
	for rows.Next() {
		r, err := runScan(rows)
		if err != nil {
			return nil, err
		}

		res = append(res, *r)
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows error")
	}

	return res, nil
}
