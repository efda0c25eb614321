package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/piwi3910/RoomPlan/internal/cache"
	"github.com/piwi3910/RoomPlan/internal/engine"
	"github.com/piwi3910/RoomPlan/internal/mip"
	"github.com/piwi3910/RoomPlan/internal/mip/branch"
	"github.com/piwi3910/RoomPlan/internal/model"
)

func testInstance() model.Instance {
	inst := model.NewInstance("pair", 10, 10)
	inst.Rooms = []model.RoomSpec{model.NewRoom("A", 5, 5), model.NewRoom("B", 5, 5)}
	return inst
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	solver := engine.NewSolver(branch.New(), engine.WithLogger(logger))
	return New(solver, append([]Option{WithLogger(logger)}, opts...)...)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestValidate(t *testing.T) {
	s := newTestServer(t)

	inst := testInstance()
	inst.Rules = []string{"room A is left of room B"}
	rec := do(t, s, http.MethodPost, "/v1/validate", inst)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ValidateResponse](t, rec)
	assert.True(t, resp.Valid)
	assert.Equal(t, 2, resp.Rooms)
	assert.Equal(t, 50.0, resp.Budget.MinRoomArea)
	assert.True(t, resp.Budget.Fits)
}

func TestValidate_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"bad json", "{", ""},
		{"empty body", "", ""},
		{"unknown field", `{"name":"x","boundary":{"width":1,"height":1},"rooms":[],"colour":"red"}`, ""},
		{"bad rule", func() model.Instance {
			inst := testInstance()
			inst.Rules = []string{"room A floats"}
			return inst
		}(), "rules"},
		{"invalid boundary", func() model.Instance {
			inst := testInstance()
			inst.Boundary.Width = -1
			return inst
		}(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/validate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[errorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			if tt.field != "" {
				assert.Equal(t, tt.field, resp.Field)
			}
		})
	}
}

func TestSolve(t *testing.T) {
	s := newTestServer(t)
	limit := model.Duration(10 * time.Second)

	rec := do(t, s, http.MethodPost, "/v1/solve", SolveRequest{
		Instance:  testInstance(),
		Objective: model.ObjectivePerimeter,
		TimeLimit: &limit,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SolveResponse](t, rec)
	assert.False(t, resp.Cached)
	require.True(t, resp.Result.IsSolved())
	assert.True(t, resp.Result.CertifiedOptimal)
	assert.Equal(t, model.ObjectivePerimeter, resp.Result.Objective)
	assert.InDelta(t, 40, resp.Result.Layout.TotalPerimeter(), 1e-6)
	assert.Empty(t, resp.Result.Layout.OverlappingPairs())
}

func TestSolve_UsesDefaults(t *testing.T) {
	cfg := model.DefaultAppConfig().Solver
	cfg.Objective = model.ObjectiveUnusedArea
	s := newTestServer(t, WithDefaults(cfg))

	rec := do(t, s, http.MethodPost, "/v1/solve", SolveRequest{Instance: testInstance()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SolveResponse](t, rec)
	assert.Equal(t, model.ObjectiveUnusedArea, resp.Result.Objective)
	require.True(t, resp.Result.IsSolved())
	assert.InDelta(t, 0, resp.Result.Layout.UnusedArea(), 1e-6)
}

func TestSolve_Infeasible(t *testing.T) {
	inst := model.NewInstance("crowded", 10, 10)
	for _, id := range []string{"A", "B", "C"} {
		r := model.NewRoom(id, 0, 0)
		r.TargetArea = 40
		inst.Rooms = append(inst.Rooms, r)
	}
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/solve", SolveRequest{Instance: inst, Objective: model.ObjectiveUnusedArea})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SolveResponse](t, rec)
	assert.Equal(t, model.StatusInfeasible, resp.Result.Status)
	assert.Nil(t, resp.Result.Layout)
}

func TestSolve_BadRequests(t *testing.T) {
	s := newTestServer(t)
	zero := model.Duration(0)
	negGap := -0.5

	tests := []struct {
		name  string
		req   SolveRequest
		field string
	}{
		{"unknown objective", SolveRequest{Instance: testInstance(), Objective: "shortest-hallway"}, "objective"},
		{"zero time limit", SolveRequest{Instance: testInstance(), TimeLimit: &zero}, "time_limit"},
		{"negative gap", SolveRequest{Instance: testInstance(), GapTolerance: &negGap}, "gap_tolerance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/solve", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.field, decode[errorResponse](t, rec).Field)
		})
	}
}

func TestSolve_OracleUnavailable(t *testing.T) {
	env, err := mip.Open(branch.DriverName)
	require.NoError(t, err)
	require.NoError(t, env.Close())

	s := New(engine.NewSolver(env), WithLogger(zaptest.NewLogger(t)))
	rec := do(t, s, http.MethodPost, "/v1/solve", SolveRequest{Instance: testInstance()})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "unavailable")
}

func TestSolve_RequestCancelled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(SolveRequest{Instance: testInstance()}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/v1/solve", &buf).WithContext(ctx)
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Contains(t, decode[errorResponse](t, rec).Error, "context canceled")
}

func TestSolve_Cached(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = rc.Close() })
	s := newTestServer(t, WithResults(cache.NewResults(rc, time.Hour)))

	req := SolveRequest{Instance: testInstance(), Objective: model.ObjectivePerimeter}
	first := decode[SolveResponse](t, do(t, s, http.MethodPost, "/v1/solve", req))
	assert.False(t, first.Cached)
	require.True(t, first.Result.CertifiedOptimal)

	req.Instance.Name = "renamed"
	second := decode[SolveResponse](t, do(t, s, http.MethodPost, "/v1/solve", req))
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result.Layout, second.Result.Layout)
	assert.Len(t, mr.Keys(), 1)
}

func TestTemplates(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	templates := decode[[]model.InstanceTemplate](t, rec)
	assert.Len(t, templates, len(model.BuiltinTemplates()))

	rec = do(t, newTestServer(t, WithTemplates(nil)), http.MethodGet, "/v1/templates", nil)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestObjectives(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/v1/objectives", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	objectives := decode[[]ObjectiveInfo](t, rec)
	require.Len(t, objectives, len(model.Objectives()))
	for _, o := range objectives {
		assert.Equal(t, o.Kind.Title(), o.Title)
		assert.Equal(t, o.Kind == model.ObjectiveAdjacency, o.Maximize)
	}
}

func TestRouting(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/nope", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/v1/solve", nil).Code)
}
