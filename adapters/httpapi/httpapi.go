package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/luno/jettison/errors"

	"github.com/luno/stageflow"
)

// MaxBodyBytes bounds the size of request bodies.
const MaxBodyBytes = 1 << 20

// Engine is the subset of *stageflow.Engine served over HTTP.
type Engine interface {
	RegisterBlueprint(ctx context.Context, b *stageflow.Blueprint) (string, error)
	GetBlueprint(ctx context.Context, id string) (*stageflow.Blueprint, error)
	ListBlueprints(ctx context.Context, offset int64, limit int) ([]stageflow.Blueprint, error)
	StartRun(ctx context.Context, blueprintID string) (*stageflow.Run, error)
	ExecuteStep(ctx context.Context, runID, stepID string) (*stageflow.Run, error)
	GetRun(ctx context.Context, id string) (*stageflow.Run, error)
	ListRuns(ctx context.Context, blueprintID string, offset int64, limit int) ([]stageflow.Run, error)
	AvailableSteps(ctx context.Context, runID string) ([]stageflow.Step, error)
}

var _ Engine = (*stageflow.Engine)(nil)

// NewHandler returns the routes of the process API. Errors that don't map to a client error are written to logger.
func NewHandler(e Engine, logger stageflow.Logger) http.Handler {
	a := &api{engine: e, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process-blueprints", a.registerBlueprint)
	mux.HandleFunc("GET /api/process-blueprints", a.listBlueprints)
	mux.HandleFunc("GET /api/process-blueprints/{id}", a.getBlueprint)
	mux.HandleFunc("GET /api/process-blueprints/{id}/diagram", a.blueprintDiagram)
	mux.HandleFunc("POST /api/process-blueprints/{id}/runs", a.startRun)
	mux.HandleFunc("GET /api/process-runs", a.listRuns)
	mux.HandleFunc("GET /api/process-runs/{id}", a.getRun)
	mux.HandleFunc("POST /api/process-runs/{id}/steps", a.executeStep)
	mux.HandleFunc("GET /api/process-runs/{id}/steps", a.availableSteps)

	return mux
}

type api struct {
	engine Engine
	logger stageflow.Logger
}

type RegisterResponse struct {
	ID string `json:"id"`
}

type ListBlueprintsResponse struct {
	Items []stageflow.Blueprint `json:"items"`
}

type ListRunsResponse struct {
	Items []stageflow.Run `json:"items"`
}

type ExecuteStepRequest struct {
	StepID string `json:"step_id"`
}

type AvailableStepsResponse struct {
	Items []stageflow.Step `json:"items"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *api) registerBlueprint(w http.ResponseWriter, r *http.Request) {
	var b stageflow.Blueprint
	if !a.readJSON(w, r, &b) {
		return
	}

	id, err := a.engine.RegisterBlueprint(r.Context(), &b)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusCreated, RegisterResponse{ID: id})
}

func (a *api) listBlueprints(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := page(w, r)
	if !ok {
		return
	}

	list, err := a.engine.ListBlueprints(r.Context(), offset, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if list == nil {
		list = []stageflow.Blueprint{}
	}

	a.writeJSON(w, r, http.StatusOK, ListBlueprintsResponse{Items: list})
}

func (a *api) getBlueprint(w http.ResponseWriter, r *http.Request) {
	b, err := a.engine.GetBlueprint(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, b)
}

func (a *api) blueprintDiagram(w http.ResponseWriter, r *http.Request) {
	b, err := a.engine.GetBlueprint(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	direction := stageflow.MermaidDirection(r.URL.Query().Get("direction"))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	err = stageflow.MermaidDiagram(w, b, direction)
	if err != nil {
		a.logger.Error(r.Context(), errors.Wrap(err, "render diagram"))
	}
}

func (a *api) startRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.engine.StartRun(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusCreated, run)
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := page(w, r)
	if !ok {
		return
	}

	list, err := a.engine.ListRuns(r.Context(), r.URL.Query().Get("blueprint_id"), offset, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if list == nil {
		list = []stageflow.Run{}
	}

	a.writeJSON(w, r, http.StatusOK, ListRunsResponse{Items: list})
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.engine.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, run)
}

func (a *api) executeStep(w http.ResponseWriter, r *http.Request) {
	var req ExecuteStepRequest
	if !a.readJSON(w, r, &req) {
		return
	}

	run, err := a.engine.ExecuteStep(r.Context(), r.PathValue("id"), req.StepID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, run)
}

func (a *api) availableSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := a.engine.AvailableSteps(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, AvailableStepsResponse{Items: steps})
}

func (a *api) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "body too large"})
		return false
	} else if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "cannot read body"})
		return false
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "cannot unmarshal body"})
		return false
	}

	return true
}

func (a *api) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	err := writeJSON(w, status, v)
	if err != nil {
		a.logger.Error(r.Context(), errors.Wrap(err, "write response"))
	}
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(r.Context(), err)
		writeJSON(w, status, ErrorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to json marshal response", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

func page(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	var (
		offset int64
		limit  int
		err    error
	)

	q := r.URL.Query()
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.ParseInt(v, 10, 64)
		if err != nil || offset < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
			return 0, 0, false
		}
	}

	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return 0, 0, false
		}
	}

	return offset, limit, true
}
