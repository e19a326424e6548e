// Package httpapi implements the core HTTP surface (§6) on stdlib
// net/http: /chat/message, /chat/stream, /investigations, /agents,
// /sources, /health.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vigia/sentinela/agentrt"
	"github.com/vigia/sentinela/coordinator"
	"github.com/vigia/sentinela/core"
	"github.com/vigia/sentinela/memory"
	"github.com/vigia/sentinela/planner"
	"github.com/vigia/sentinela/router"
	"github.com/vigia/sentinela/sources"
	"github.com/vigia/sentinela/streaming"
	"github.com/vigia/sentinela/telemetry"
)

// Server wires every HTTP handler to its backing component.
type Server struct {
	cfg         *core.Config
	planner     *planner.Planner
	router      *router.Router
	coordinator *coordinator.Coordinator
	registry    *sources.Registry
	pool        *agentrt.Pool
	logger      core.Logger
	tel         *telemetry.Telemetry
	working     *memory.WorkingContext
}

func NewServer(cfg *core.Config, pl *planner.Planner, rt *router.Router, co *coordinator.Coordinator, reg *sources.Registry, pool *agentrt.Pool, logger core.Logger) *Server {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if caw, ok := logger.(core.ComponentAwareLogger); ok {
		logger = caw.WithComponent("httpapi")
	}
	return &Server{cfg: cfg, planner: pl, router: rt, coordinator: co, registry: reg, pool: pool, logger: logger}
}

// SetTelemetry wires per-connection stream-chunk metrics onto every
// Emitter this server creates. Optional: a Server with no telemetry set
// simply skips recording.
func (s *Server) SetTelemetry(tel *telemetry.Telemetry) {
	s.tel = tel
}

// SetWorkingContext wires per-session turn tracking onto the chat
// handlers. Optional: a Server with no working context set simply
// skips appending turns.
func (s *Server) SetWorkingContext(w *memory.WorkingContext) {
	s.working = w
}

// Handler returns the complete mux, wrapped in OpenTelemetry HTTP
// instrumentation per the teacher's own otelhttp middleware usage.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/message", s.handleChatMessage)
	mux.HandleFunc("POST /chat/stream", s.handleChatStream)
	mux.HandleFunc("POST /investigations", s.handleCreateInvestigation)
	mux.HandleFunc("GET /investigations/{id}", s.handleGetInvestigation)
	mux.HandleFunc("GET /investigations/{id}/history", s.handleGetInvestigationHistory)
	mux.HandleFunc("GET /investigations/public/results/{id}", s.handleGetPublicResult)
	mux.HandleFunc("GET /agents", s.handleListAgents)
	mux.HandleFunc("GET /sources", s.handleListSources)
	mux.HandleFunc("GET /health", s.handleHealth)
	return otelhttp.NewHandler(mux, "sentinela")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type chatRequest struct {
	Message   string                 `json:"message"`
	SessionID string                 `json:"session_id"`
	Options   map[string]interface{} `json:"options"`
}

// handleChatMessage is the synchronous chat surface: the chat reply
// always contains a non-empty message, on success or on a graceful
// failure — an empty output is a specification violation.
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	s.appendTurn(req.SessionID, "user", req.Message)

	q := &core.Query{Text: req.Message, SessionID: req.SessionID, Options: req.Options}
	intent := s.planner.ClassifyIntent(r.Context(), q)

	agentCtx := &core.AgentContext{SessionID: req.SessionID, Metadata: map[string]interface{}{}}
	resp, err := s.router.Dispatch(r.Context(), intent, nil, agentCtx)
	if err != nil {
		reply := fallbackMessage(intent.Type)
		s.appendTurn(req.SessionID, "assistant", reply)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": req.SessionID,
			"message":    reply,
			"confidence": 0.0,
		})
		return
	}

	reply := resultText(resp)
	s.appendTurn(req.SessionID, "assistant", reply)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": req.SessionID,
		"agent_id":   resp.AgentName,
		"agent_name": resp.AgentName,
		"message":    reply,
		"confidence": resp.Metadata["confidence"],
		"metadata":   resp.Metadata,
	})
}

// appendTurn records one exchange in the session's working context, if
// one is wired. sessionID must be non-empty: an empty id would merge
// every anonymous caller's turns into a single shared window.
func (s *Server) appendTurn(sessionID, role, text string) {
	if s.working == nil || sessionID == "" {
		return
	}
	s.working.Append(sessionID, memory.Turn{Role: role, Text: text, Timestamp: time.Now()})
}

func resultText(resp *core.AgentResponse) string {
	if s, ok := resp.Result["message"].(string); ok && s != "" {
		return s
	}
	if s, ok := resp.Result["summary"].(string); ok && s != "" {
		return s
	}
	return "Não consegui consultar as fontes agora; tente em instantes."
}

func fallbackMessage(intent core.IntentType) string {
	return "Não consegui consultar as fontes agora; tente em instantes."
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	emitter, err := streaming.NewEmitter(w, s.logger)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.tel != nil {
		emitter.SetTelemetry(s.tel)
	}
	go emitter.Pump()
	defer emitter.Close()

	s.appendTurn(req.SessionID, "user", req.Message)

	q := &core.Query{Text: req.Message, SessionID: req.SessionID, Options: req.Options}
	inv, runCtx := s.coordinator.Start(r.Context(), q, s.cfg.InvestigationTimeout)
	s.coordinator.Run(runCtx, inv, q, emitter.Send)
	s.appendTurn(req.SessionID, "assistant", inv.Summary)
}

type investigationRequest struct {
	Query   string                 `json:"query"`
	Filters map[string]interface{} `json:"filters"`
}

func (s *Server) handleCreateInvestigation(w http.ResponseWriter, r *http.Request) {
	var req investigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	q := &core.Query{Text: req.Query, Options: req.Filters}
	inv, runCtx := s.coordinator.Start(r.Context(), q, s.cfg.InvestigationTimeout)

	go s.coordinator.Run(runCtx, inv, q, func(streaming.StreamEvent) bool { return true })

	writeJSON(w, http.StatusAccepted, map[string]string{"investigation_id": inv.ID})
}

func (s *Server) handleGetInvestigation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	inv, ok := s.coordinator.GetInvestigation(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// handleGetInvestigationHistory returns the episodic trail recorded
// across an investigation's phase transitions.
func (s *Server) handleGetInvestigationHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	records, err := s.coordinator.History(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"investigation_id": id, "history": records})
}

// handleGetPublicResult omits user identifiers from the projection.
func (s *Server) handleGetPublicResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	inv, ok := s.coordinator.GetInvestigation(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                     inv.ID,
		"status":                 inv.Status,
		"progress":               inv.Progress,
		"total_records_analyzed": inv.TotalRecordsAnalyzed,
		"anomalies_found":        inv.AnomaliesFound,
		"summary":                inv.Summary,
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": []map[string]interface{}{
			{"id": "communicator", "capabilities": []string{"greeting", "help_request"}},
			{"id": "analyst", "capabilities": []string{"analyze", "investigate"}},
			{"id": "reporter", "capabilities": []string{"report_request"}},
		},
	})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
