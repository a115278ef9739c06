package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	commandhandlers "flowbuilder/application/commands/handlers"
	"flowbuilder/application/queries"
	querybus "flowbuilder/application/queries/bus"
	queryhandlers "flowbuilder/application/queries/handlers"
	"flowbuilder/application/session"
	"flowbuilder/domain/config"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/validators"
	"flowbuilder/infrastructure/persistence/memory"
	pkgerrors "flowbuilder/pkg/errors"
	"flowbuilder/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	handler http.Handler
	repo    *memory.FlowRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics("flowbuilder_test")
	registry := session.NewRegistry(config.DefaultDomainConfig(), validators.NewConnectionValidator())
	repo := memory.NewFlowRepository(logger)

	commandBus := bus.NewCommandBus(bus.MetricsMiddleware(metrics))
	require.NoError(t, commandhandlers.RegisterAll(commandBus, commandhandlers.Dependencies{
		Registry:   registry,
		Repository: repo,
		Gauge:      metrics,
		Logger:     logger,
	}))

	queryBus := querybus.NewQueryBus()
	require.NoError(t, queryhandlers.NewFlowQueryHandler(registry).Register(queryBus))

	router := NewRouter(commandBus, queryBus, pkgerrors.NewErrorHandler(logger, false), logger, Options{
		EnableCORS:     true,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
	})
	return &testServer{handler: router.Setup(), repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *testServer) createFlow(t *testing.T) session.State {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/flows", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var state session.State
	decode(t, rec, &state)
	return state
}

func (s *testServer) addNode(t *testing.T, flow string, x, y float64) entities.NodeSnapshot {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/nodes", map[string]interface{}{"x": x, "y": y})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var node entities.NodeSnapshot
	decode(t, rec, &node)
	return node
}

func TestRouter_HealthReadyMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.createFlow(t)
	rec = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flowbuilder_test_open_flows 1")
	assert.Contains(t, rec.Body.String(), "flowbuilder_test_http_requests_total")
}

func TestRouter_NotReady(t *testing.T) {
	logger := zap.NewNop()
	router := NewRouter(bus.NewCommandBus(), querybus.NewQueryBus(), pkgerrors.NewErrorHandler(logger, false), logger, Options{
		Ready: func() bool { return false },
	})

	rec := httptest.NewRecorder()
	router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_BuildAndSaveFlow(t *testing.T) {
	s := newTestServer(t)
	state := s.createFlow(t)
	flow := state.FlowID.String()
	require.Len(t, state.Nodes, 1)
	seed := state.Nodes[0]

	added := s.addNode(t, flow, 400, 150)
	assert.Equal(t, entities.NodeKindTextMessage, added.Kind)

	rec := s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/edges", map[string]string{
		"source": seed.ID.String(),
		"target": added.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var edge entities.Edge
	decode(t, rec, &edge)
	assert.Equal(t, seed.ID, edge.Source)
	assert.Equal(t, added.ID, edge.Target)

	rec = s.do(t, http.MethodGet, "/api/v1/flows/"+flow+"/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var check queries.CheckFlowResult
	decode(t, rec, &check)
	assert.True(t, check.Saveable)

	rec = s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved commands.SaveFlowResult
	decode(t, rec, &saved)
	assert.Equal(t, "Flow saved successfully!", saved.Message)
	assert.Equal(t, 2, saved.NodeCount)
	assert.Equal(t, 1, saved.EdgeCount)
	assert.Equal(t, 1, s.repo.Len())

	rec = s.do(t, http.MethodGet, "/api/v1/flows/"+flow, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &state)
	require.NotNil(t, state.Notice)
	assert.Equal(t, session.NoticeSuccess, state.Notice.Kind)
}

func TestRouter_Rejections(t *testing.T) {
	s := newTestServer(t)
	state := s.createFlow(t)
	flow := state.FlowID.String()
	seed := state.Nodes[0]
	s.addNode(t, flow, 400, 150)

	tests := []struct {
		name    string
		method  string
		path    string
		body    interface{}
		status  int
		reason  pkgerrors.Reason
		message string
	}{
		{
			name:    "self loop",
			method:  http.MethodPost,
			path:    "/api/v1/flows/" + flow + "/edges",
			body:    map[string]string{"source": seed.ID.String(), "target": seed.ID.String()},
			status:  http.StatusUnprocessableEntity,
			reason:  pkgerrors.ReasonSelfLoop,
			message: "Error: Cannot connect a node to itself.",
		},
		{
			name:    "save with two open targets",
			method:  http.MethodPost,
			path:    "/api/v1/flows/" + flow + "/save",
			status:  http.StatusUnprocessableEntity,
			reason:  pkgerrors.ReasonMultipleOpenTargets,
			message: "Error: Cannot save Flow. More than one node has an empty target handle.",
		},
		{
			name:    "unknown node",
			method:  http.MethodPut,
			path:    "/api/v1/flows/" + flow + "/nodes/nope/label",
			body:    map[string]string{"label": "hi"},
			status:  http.StatusNotFound,
			reason:  pkgerrors.ReasonNotFound,
			message: "Error: node not found.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body pkgerrors.ErrorResponse
			decode(t, rec, &body)
			assert.True(t, body.Error)
			assert.Equal(t, string(tt.reason), body.Type)
			assert.Equal(t, tt.message, body.Message)
		})
	}

	// Rejections also show up as the flow's notice
	rec := s.do(t, http.MethodGet, "/api/v1/flows/"+flow, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &state)
	require.NotNil(t, state.Notice)
	assert.Equal(t, session.NoticeError, state.Notice.Kind)
	assert.Len(t, state.Edges, 0)
	assert.Len(t, state.Nodes, 2)

	rec = s.do(t, http.MethodDelete, "/api/v1/flows/"+flow+"/notice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_NodeEditing(t *testing.T) {
	s := newTestServer(t)
	state := s.createFlow(t)
	flow := state.FlowID.String()
	seed := state.Nodes[0]
	node := s.addNode(t, flow, 10, 20)

	rec := s.do(t, http.MethodPut, "/api/v1/flows/"+flow+"/nodes/"+node.ID.String()+"/label", map[string]string{"label": ""})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var relabeled entities.NodeSnapshot
	decode(t, rec, &relabeled)
	assert.Equal(t, "", relabeled.Label)

	rec = s.do(t, http.MethodPut, "/api/v1/flows/"+flow+"/nodes/"+node.ID.String()+"/position", map[string]float64{"x": 5, "y": 6})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved entities.NodeSnapshot
	decode(t, rec, &moved)
	assert.Equal(t, 5.0, moved.Position.X)

	rec = s.do(t, http.MethodPut, "/api/v1/flows/"+flow+"/selection", map[string]string{"nodeId": node.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &state)
	require.NotNil(t, state.SelectedNodeID)
	assert.Equal(t, node.ID, *state.SelectedNodeID)

	rec = s.do(t, http.MethodGet, "/api/v1/flows/"+flow+"/nodes/"+node.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/edges", map[string]string{"source": seed.ID.String(), "target": node.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	var edge entities.Edge
	decode(t, rec, &edge)

	rec = s.do(t, http.MethodDelete, "/api/v1/flows/"+flow+"/nodes/"+node.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var deleted commands.DeleteNodeResult
	decode(t, rec, &deleted)
	assert.Equal(t, []string{edge.ID.String()}, deleted.RemovedEdgeIDs)

	rec = s.do(t, http.MethodGet, "/api/v1/flows/"+flow, nil)
	decode(t, rec, &state)
	assert.Nil(t, state.SelectedNodeID)
	assert.Empty(t, state.Edges)
}

func TestRouter_RemoveEdge(t *testing.T) {
	s := newTestServer(t)
	state := s.createFlow(t)
	flow := state.FlowID.String()
	node := s.addNode(t, flow, 10, 20)

	rec := s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/edges", map[string]string{"source": state.Nodes[0].ID.String(), "target": node.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	var edge entities.Edge
	decode(t, rec, &edge)

	rec = s.do(t, http.MethodDelete, "/api/v1/flows/"+flow+"/edges/"+edge.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/flows/"+flow+"/edges/"+edge.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_FlowLifecycle(t *testing.T) {
	s := newTestServer(t)
	state := s.createFlow(t)
	flow := state.FlowID.String()

	rec := s.do(t, http.MethodGet, "/api/v1/flows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed queries.ListFlowsResult
	decode(t, rec, &listed)
	assert.Equal(t, []string{flow}, listed.FlowIDs)

	rec = s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/flows/"+flow, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/flows/"+flow, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/load", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &state)
	assert.Equal(t, flow, state.FlowID.String())
	assert.Len(t, state.Nodes, 1)
}

func TestRouter_PurgeFlow(t *testing.T) {
	s := newTestServer(t)
	flow := s.createFlow(t).FlowID.String()

	rec := s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, s.repo.Len())

	rec = s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/load", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/flows/"+flow+"?purge=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/flows/"+flow+"?purge=true", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.repo.Len())

	rec = s.do(t, http.MethodPost, "/api/v1/flows/"+flow+"/load", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_BadRequests(t *testing.T) {
	s := newTestServer(t)
	flow := s.createFlow(t).FlowID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed json", http.MethodPost, "/api/v1/flows/" + flow + "/nodes", "{", http.StatusBadRequest},
		{"unknown kind", http.MethodPost, "/api/v1/flows/" + flow + "/nodes", `{"kind":"image"}`, http.StatusBadRequest},
		{"missing label", http.MethodPut, "/api/v1/flows/" + flow + "/nodes/1/label", `{}`, http.StatusBadRequest},
		{"missing coordinates", http.MethodPut, "/api/v1/flows/" + flow + "/nodes/1/position", `{"x":1}`, http.StatusBadRequest},
		{"missing target", http.MethodPost, "/api/v1/flows/" + flow + "/edges", `{"source":"1"}`, http.StatusBadRequest},
		{"unknown flow", http.MethodGet, "/api/v1/flows/missing", "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/v2/flows", "", http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/v1/flows/" + flow, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
