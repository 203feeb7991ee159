package sqlstore

import (
	"database/sql"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/luno/stageflow"
)

const (
	blueprintTable = "stageflow_blueprints"
	runTable       = "stageflow_runs"

	runSelectPrefix = "select id, blueprint_id, current_stage_id, log from " + runTable + " "
)

type scannable interface {
	Scan(dest ...any) error
}

func blueprintScan(row scannable) (*stageflow.Blueprint, error) {
	var definition []byte
	err := row.Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(stageflow.ErrBlueprintNotFound, "")
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to scan blueprint")
	}

	var b stageflow.Blueprint
	err = stageflow.Unmarshal(definition, &b)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode blueprint")
	}

	return &b, nil
}

func runScan(row scannable) (*stageflow.Run, error) {
	var (
		r   stageflow.Run
		log []byte
	)

	err := row.Scan(&r.ID, &r.BlueprintID, &r.CurrentStageID, &log)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(stageflow.ErrRunNotFound, "")
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to scan run")
	}

	err = stageflow.Unmarshal(log, &r.Log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode run log", j.MKV{"run_id": r.ID})
	}

	if r.Log == nil {
		r.Log = []stageflow.StepLog{}
	}

	return &r, nil
}

func encodeLog(r *stageflow.Run) ([]byte, error) {
	log := r.Log
	if log == nil {
		log = []stageflow.StepLog{}
	}

	return stageflow.Marshal(&log)
}
