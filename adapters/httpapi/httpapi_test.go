package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/luno/stageflow"
	"github.com/luno/stageflow/adapters/httpapi"
	"github.com/luno/stageflow/adapters/memstore"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, meta stageflow.MKV) {}

func (nopLogger) Error(ctx context.Context, err error) {}

const leaveRequest = `{
	"id": "leave",
	"name": "Leave request",
	"stages": [
		{"id": "draft", "name": "Draft", "is_initial": true, "enabled": true},
		{"id": "approved", "name": "Approved", "enabled": true},
		{"id": "done", "name": "Done", "is_final": true, "enabled": true}
	],
	"steps": [
		{"id": "approve", "name": "Approve", "enabled": true, "from_stages": ["draft"], "to_stage": "approved"},
		{"id": "close", "name": "Close", "enabled": true, "from_stages": ["approved"], "to_stage": "done"}
	]
}`

func newServer(t *testing.T) *httptest.Server {
	e := stageflow.New(memstore.NewBlueprintStore(), memstore.NewRunStore(), stageflow.WithLogger(nopLogger{}))
	srv := httptest.NewServer(httpapi.NewHandler(e, nopLogger{}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, b
}

func TestProcessLifecycle(t *testing.T) {
	srv := newServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/api/process-blueprints", leaveRequest)
	require.Equal(t, http.StatusCreated, status)

	var registered httpapi.RegisterResponse
	require.NoError(t, json.Unmarshal(body, &registered))
	require.Equal(t, "leave", registered.ID)

	status, body = do(t, http.MethodPost, srv.URL+"/api/process-blueprints/leave/runs", "")
	require.Equal(t, http.StatusCreated, status)

	var run stageflow.Run
	require.NoError(t, json.Unmarshal(body, &run))
	require.Equal(t, "draft", run.CurrentStageID)
	require.Empty(t, run.Log)

	status, body = do(t, http.MethodGet, srv.URL+"/api/process-runs/"+run.ID+"/steps", "")
	require.Equal(t, http.StatusOK, status)

	var available httpapi.AvailableStepsResponse
	require.NoError(t, json.Unmarshal(body, &available))
	require.Len(t, available.Items, 1)
	require.Equal(t, "approve", available.Items[0].ID)

	status, _ = do(t, http.MethodPost, srv.URL+"/api/process-runs/"+run.ID+"/steps", `{"step_id": "close"}`)
	require.Equal(t, http.StatusBadRequest, status)

	for _, step := range []string{"approve", "close"} {
		status, body = do(t, http.MethodPost, srv.URL+"/api/process-runs/"+run.ID+"/steps", `{"step_id": "`+step+`"}`)
		require.Equal(t, http.StatusOK, status, string(body))
	}

	status, body = do(t, http.MethodGet, srv.URL+"/api/process-runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &run))
	require.Equal(t, "done", run.CurrentStageID)
	require.Len(t, run.Log, 2)

	status, body = do(t, http.MethodPost, srv.URL+"/api/process-runs/"+run.ID+"/steps", `{"step_id": "close"}`)
	require.Equal(t, http.StatusBadRequest, status)

	var errResp httpapi.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Contains(t, errResp.Error, stageflow.ErrTerminalState.Error())

	status, body = do(t, http.MethodGet, srv.URL+"/api/process-runs?blueprint_id=leave", "")
	require.Equal(t, http.StatusOK, status)

	var runs httpapi.ListRunsResponse
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Len(t, runs.Items, 1)
}

func TestRegisterValidationFailure(t *testing.T) {
	srv := newServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/api/process-blueprints", `{"id": "empty", "name": "Empty"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, string(body), stageflow.ErrNoStages.Error())

	status, _ = do(t, http.MethodPost, srv.URL+"/api/process-blueprints", `{"id": `)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestNotFound(t *testing.T) {
	srv := newServer(t)

	status, _ := do(t, http.MethodGet, srv.URL+"/api/process-blueprints/missing", "")
	require.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/api/process-blueprints/missing/runs", "")
	require.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodGet, srv.URL+"/api/process-runs/missing", "")
	require.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/api/process-runs/missing/steps", `{"step_id": "approve"}`)
	require.Equal(t, http.StatusNotFound, status)
}

func TestListBlueprints(t *testing.T) {
	srv := newServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/api/process-blueprints", "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"items": []}`, string(body))

	status, _ = do(t, http.MethodPost, srv.URL+"/api/process-blueprints", leaveRequest)
	require.Equal(t, http.StatusCreated, status)

	status, body = do(t, http.MethodGet, srv.URL+"/api/process-blueprints?limit=10", "")
	require.Equal(t, http.StatusOK, status)

	var list httpapi.ListBlueprintsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 1)
	require.Equal(t, "Leave request", list.Items[0].Name)

	status, _ = do(t, http.MethodGet, srv.URL+"/api/process-blueprints?offset=-1", "")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestDiagram(t *testing.T) {
	srv := newServer(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/api/process-blueprints", leaveRequest)
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, http.MethodGet, srv.URL+"/api/process-blueprints/leave/diagram?direction=TB", "")
	require.Equal(t, http.StatusOK, status)

	expected := "stateDiagram-v2\n" +
		"\tdirection TB\n" +
		"\t[*]-->draft\n" +
		"\tdraft-->approved: Approve\n" +
		"\tapproved-->done: Close\n" +
		"\tdone-->[*]\n"
	require.Equal(t, expected, string(body))
}

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "validation", err: errors.Wrap(stageflow.ErrDuplicateStepID, ""), expected: http.StatusBadRequest},
		{name: "blueprint not found", err: stageflow.ErrBlueprintNotFound, expected: http.StatusNotFound},
		{name: "run not found", err: stageflow.ErrRunNotFound, expected: http.StatusNotFound},
		{name: "illegal transition", err: stageflow.ErrIllegalTransition, expected: http.StatusBadRequest},
		{name: "no initial stage", err: stageflow.ErrNoInitialStage, expected: http.StatusBadRequest},
		{name: "concurrent update", err: stageflow.ErrConcurrentUpdate, expected: http.StatusConflict},
		{name: "unknown", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, httpapi.StatusCode(tc.err))
		})
	}
}

func TestRejectionsNameTheEntity(t *testing.T) {
	srv := newServer(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/api/process-blueprints", leaveRequest)
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, http.MethodPost, srv.URL+"/api/process-blueprints/leave/runs", "")
	require.Equal(t, http.StatusCreated, status)

	var run stageflow.Run
	require.NoError(t, json.Unmarshal(body, &run))

	testCases := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Unknown step",
			method:         http.MethodPost,
			path:           "/api/process-runs/" + run.ID + "/steps",
			body:           `{"step_id": "nope"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "step 'nope'",
		},
		{
			name:           "Step from the wrong stage",
			method:         http.MethodPost,
			path:           "/api/process-runs/" + run.ID + "/steps",
			body:           `{"step_id": "close"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "step 'Close' from stage 'Draft'",
		},
		{
			name:           "Unknown run",
			method:         http.MethodGet,
			path:           "/api/process-runs/missing-run",
			expectedStatus: http.StatusNotFound,
			expectedError:  "run 'missing-run'",
		},
		{
			name:           "Unknown blueprint",
			method:         http.MethodPost,
			path:           "/api/process-blueprints/missing-blueprint/runs",
			expectedStatus: http.StatusNotFound,
			expectedError:  "blueprint 'missing-blueprint'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, tc.method, srv.URL+tc.path, tc.body)
			require.Equal(t, tc.expectedStatus, status)

			var errResp httpapi.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			require.Contains(t, errResp.Error, tc.expectedError)
		})
	}
}

func TestRegisterBodyTooLarge(t *testing.T) {
	e := stageflow.New(memstore.NewBlueprintStore(), memstore.NewRunStore(), stageflow.WithLogger(nopLogger{}))
	h := httpapi.NewHandler(e, nopLogger{})

	large := `{"id": "leave", "name": "` + strings.Repeat("x", httpapi.MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/process-blueprints", strings.NewReader(large))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	_, err := e.GetBlueprint(t.Context(), "leave")
	jtest.Require(t, stageflow.ErrBlueprintNotFound, err)
}
