package agentrt

import (
	"context"
	"time"

	"github.com/vigia/sentinela/core"
)

// CommunicatorAgent handles greeting/help_request style dispatches: it
// never touches the Federation Executor and always completes fast. The
// domain logic of any other agent kind (fraud heuristics, statistical
// tests, prompt templating) is an external collaborator whose interface
// is named here but whose content is out of scope.
type CommunicatorAgent struct {
	id string
}

func NewCommunicatorAgent() *CommunicatorAgent {
	return &CommunicatorAgent{id: "communicator"}
}

func (a *CommunicatorAgent) ID() string { return a.id }

func (a *CommunicatorAgent) Process(ctx context.Context, msg *core.AgentMessage, agentCtx *core.AgentContext) (*core.AgentResponse, error) {
	started := time.Now()
	text := greetingReply(msg.Action)
	return &core.AgentResponse{
		AgentName:      a.id,
		Status:         core.AgentStatusCompleted,
		Result:         map[string]interface{}{"message": text},
		Metadata:       map[string]interface{}{"confidence": 0.95},
		ProcessingTime: time.Since(started),
		Timestamp:      time.Now(),
	}, nil
}

func greetingReply(action string) string {
	switch action {
	case string(core.IntentHelpRequest):
		return "Posso investigar contratos, despesas e licitações de órgãos públicos brasileiros. Diga o que deseja apurar."
	default:
		return "Olá! Em que posso ajudar com dados de transparência pública?"
	}
}

func (a *CommunicatorAgent) Reflect(ctx context.Context, resp *core.AgentResponse) QualityScore {
	return QualityScore{Confidence: 1, Acceptable: true}
}

func (a *CommunicatorAgent) Initialize(ctx context.Context) error { return nil }
func (a *CommunicatorAgent) Shutdown(ctx context.Context) error   { return nil }

// ReporterAgent synthesizes a final summary from the analyzing phase's
// accumulated context. The statistical/NLG content of the summary is an
// external collaborator concern; this implementation fills the
// structural contract only.
type ReporterAgent struct {
	id string
}

func NewReporterAgent() *ReporterAgent { return &ReporterAgent{id: "reporter"} }

func (a *ReporterAgent) ID() string { return a.id }

func (a *ReporterAgent) Process(ctx context.Context, msg *core.AgentMessage, agentCtx *core.AgentContext) (*core.AgentResponse, error) {
	started := time.Now()
	records, _ := msg.Payload["total_records_analyzed"].(int)
	anomalies, _ := msg.Payload["anomalies_found"].(int)

	return &core.AgentResponse{
		AgentName: a.id,
		Status:    core.AgentStatusCompleted,
		Result: map[string]interface{}{
			"summary": summarize(records, anomalies),
		},
		Metadata:       map[string]interface{}{"confidence": 0.9},
		ProcessingTime: time.Since(started),
		Timestamp:      time.Now(),
	}, nil
}

func summarize(records, anomalies int) string {
	if records == 0 {
		return "Nenhum registro encontrado para esta investigação."
	}
	if anomalies == 0 {
		return "Foram analisados registros sem indícios de anomalia."
	}
	return "Foram encontradas possíveis anomalias que merecem revisão."
}

func (a *ReporterAgent) Reflect(ctx context.Context, resp *core.AgentResponse) QualityScore {
	return QualityScore{Confidence: 1, Acceptable: true}
}

func (a *ReporterAgent) Initialize(ctx context.Context) error { return nil }
func (a *ReporterAgent) Shutdown(ctx context.Context) error   { return nil }

// AnalystAgent is the stub for pattern/anomaly analysis over federated
// records. Per the spec's §9 design note, "Tier 2/3" agents have binding
// interfaces but unspecified heuristics; this returns a structurally
// valid response with a placeholder confidence so reflection and pool
// mechanics have something real to drive.
type AnalystAgent struct {
	id    string
	calls int
}

func NewAnalystAgent() *AnalystAgent { return &AnalystAgent{id: "analyst"} }

func (a *AnalystAgent) ID() string { return a.id }

func (a *AnalystAgent) Process(ctx context.Context, msg *core.AgentMessage, agentCtx *core.AgentContext) (*core.AgentResponse, error) {
	started := time.Now()
	a.calls++
	confidence := 0.4
	if a.calls > 1 {
		confidence = 0.85
	}
	return &core.AgentResponse{
		AgentName:      a.id,
		Status:         core.AgentStatusCompleted,
		Result:         map[string]interface{}{"anomalies_found": 0},
		Metadata:       map[string]interface{}{"confidence": confidence},
		ProcessingTime: time.Since(started),
		Timestamp:      time.Now(),
	}, nil
}

func (a *AnalystAgent) Reflect(ctx context.Context, resp *core.AgentResponse) QualityScore {
	conf, _ := resp.Metadata["confidence"].(float64)
	return QualityScore{Confidence: conf, Acceptable: conf >= ReflectionThreshold}
}

func (a *AnalystAgent) Initialize(ctx context.Context) error { return nil }
func (a *AnalystAgent) Shutdown(ctx context.Context) error   { return nil }
