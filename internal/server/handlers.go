package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/piwi3910/RoomPlan/internal/cache"
	"github.com/piwi3910/RoomPlan/internal/dsl"
	"github.com/piwi3910/RoomPlan/internal/model"
)

// SolveRequest is the body of POST /v1/solve. Zero fields fall back to the
// server defaults.
type SolveRequest struct {
	Instance     model.Instance      `json:"instance"`
	Objective    model.ObjectiveKind `json:"objective,omitempty"`
	TimeLimit    *model.Duration     `json:"time_limit,omitempty"`
	GapTolerance *float64            `json:"gap_tolerance,omitempty"`
}

// SolveResponse wraps a result with its provenance.
type SolveResponse struct {
	Result model.LayoutResult `json:"result"`
	Cached bool               `json:"cached"`
}

// ValidateResponse reports the area budget of a valid instance.
type ValidateResponse struct {
	Valid  bool             `json:"valid"`
	Rooms  int              `json:"rooms"`
	Budget model.AreaBudget `json:"budget"`
}

// ObjectiveInfo describes one objective kind.
type ObjectiveInfo struct {
	Kind     model.ObjectiveKind `json:"kind"`
	Title    string              `json:"title"`
	Maximize bool                `json:"maximize"`
}

type errorResponse struct {
	Error string `json:"error"`
	Room  string `json:"room,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var invalid *model.InvalidInstanceError
	switch {
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
		resp.Room, resp.Field = invalid.Room, invalid.Field
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case model.IsOracleUnavailable(err):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, resp)
}

var errBadRequest = errors.New("bad request")

// decodeBody reads one JSON value, rejecting unknown fields and trailing
// data.
func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// prepare compiles pending rules and validates the instance.
func prepare(inst model.Instance) (model.Instance, error) {
	inst, err := dsl.Compile(inst)
	if err != nil {
		return model.Instance{}, err
	}
	if err := inst.Validate(); err != nil {
		return model.Instance{}, err
	}
	return inst, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var inst model.Instance
	if err := decodeBody(r, &inst); err != nil {
		s.writeError(w, err)
		return
	}
	inst, err := prepare(inst)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:  true,
		Rooms:  len(inst.Rooms),
		Budget: model.CalculateAreaBudget(inst),
	})
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	inst, err := prepare(req.Instance)
	if err != nil {
		s.writeError(w, err)
		return
	}

	kind := req.Objective
	if kind == "" {
		kind = s.defaults.Objective
	}
	if !kind.Valid() {
		s.writeError(w, &model.InvalidInstanceError{Field: "objective", Reason: fmt.Sprintf("unknown objective %q", kind)})
		return
	}
	timeLimit := s.defaults.TimeLimit.Std()
	if req.TimeLimit != nil {
		timeLimit = req.TimeLimit.Std()
	}
	gap := s.defaults.GapTolerance
	if req.GapTolerance != nil {
		gap = *req.GapTolerance
	}

	key := cache.Key(inst, kind, timeLimit, gap, s.defaults)
	res, hit, err := s.results.Solve(r.Context(), key, func(ctx context.Context) (model.LayoutResult, error) {
		return s.solver.SolveInstance(ctx, inst, kind, timeLimit, gap)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SolveResponse{Result: res, Cached: hit})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.templates
	if templates == nil {
		templates = []model.InstanceTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	kinds := model.Objectives()
	out := make([]ObjectiveInfo, len(kinds))
	for i, k := range kinds {
		out[i] = ObjectiveInfo{Kind: k, Title: k.Title(), Maximize: k.Maximize()}
	}
	writeJSON(w, http.StatusOK, out)
}
