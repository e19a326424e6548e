package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigia/sentinela/agentrt"
	"github.com/vigia/sentinela/ai"
	"github.com/vigia/sentinela/coordinator"
	"github.com/vigia/sentinela/core"
	"github.com/vigia/sentinela/federation"
	"github.com/vigia/sentinela/memory"
	"github.com/vigia/sentinela/planner"
	"github.com/vigia/sentinela/resilience"
	"github.com/vigia/sentinela/router"
	"github.com/vigia/sentinela/sources"
	"github.com/vigia/sentinela/streaming"
)

func newTestServer(t *testing.T) *Server {
	cfg := core.NewConfig(core.WithInvestigationTimeout(5 * time.Second))
	reg := sources.NewRegistry(resilience.DefaultBreakerConfig(), nil)
	require.NoError(t, sources.LoadDefaultCatalog(reg))

	client := sources.NewClient("", true)
	retry := resilience.NewRetryPolicy(resilience.DefaultRetryConfig())
	exec := federation.NewExecutor(reg, client, retry, nil)

	pl := planner.NewPlanner(ai.NewLexiconClassifier(), map[core.IntentType]string{
		core.IntentGreeting: "communicator",
	}, nil)

	pool := agentrt.NewPool(2, nil)
	pool.Register("communicator", func() agentrt.Agent { return agentrt.NewCommunicatorAgent() })
	pool.Register("analyst", func() agentrt.Agent { return agentrt.NewAnalystAgent() })
	pool.Register("reporter", func() agentrt.Agent { return agentrt.NewReporterAgent() })
	r := router.NewRouter(router.DefaultTable(), pool, nil)

	store := coordinator.NewInMemoryStore()
	episodic := memory.NewEpisodicStore("", 0, nil)
	co := coordinator.NewCoordinator(store, pl, exec, r, episodic, nil)
	co.SetSemanticStore(memory.NewInProcessSemanticStore())

	srv := NewServer(cfg, pl, r, co, reg, pool, nil)
	srv.SetWorkingContext(memory.NewWorkingContext(memory.DefaultMaxTurns))
	return srv
}

func TestHandleChatMessage_GreetingReturnsNonEmptyMessage(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(chatRequest{Message: "olá", SessionID: "s1"})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["message"])
}

func TestHandleChatMessage_RejectsEmptyMessage(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(chatRequest{Message: "", SessionID: "s1"})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateInvestigation_ReturnsAcceptedWithID(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(investigationRequest{Query: "investigar contratos do Ministério da Saúde"})
	req := httptest.NewRequest(http.MethodPost, "/investigations", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["investigation_id"])
}

func TestHandleGetInvestigation_NotFoundForUnknownID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/investigations/does-not-exist", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetPublicResult_OmitsUserIdentifiers(t *testing.T) {
	s := newTestServer(t)
	q := &core.Query{Text: "olá", UserID: "user-42"}
	inv, runCtx := s.coordinator.Start(context.Background(), q, time.Second)
	s.coordinator.Run(runCtx, inv, q, func(streaming.StreamEvent) bool { return true })

	req := httptest.NewRequest(http.MethodGet, "/investigations/public/results/"+inv.ID, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "user-42")
}

func TestHandleGetInvestigationHistory_ReturnsRecordedPhaseTransitions(t *testing.T) {
	s := newTestServer(t)
	q := &core.Query{Text: "olá", SessionID: "s1"}
	inv, runCtx := s.coordinator.Start(context.Background(), q, time.Second)
	s.coordinator.Run(runCtx, inv, q, func(streaming.StreamEvent) bool { return true })

	req := httptest.NewRequest(http.MethodGet, "/investigations/"+inv.ID+"/history", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		History []map[string]interface{} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.History)
}

func TestHandleChatMessage_AppendsTurnsToWorkingContext(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(chatRequest{Message: "olá", SessionID: "session-turns"})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	turns := s.working.Turns("session-turns")
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
