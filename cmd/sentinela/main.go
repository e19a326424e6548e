// Command sentinela wires the full investigation orchestrator and
// serves its HTTP surface.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vigia/sentinela/agentrt"
	"github.com/vigia/sentinela/ai"
	"github.com/vigia/sentinela/coordinator"
	"github.com/vigia/sentinela/core"
	"github.com/vigia/sentinela/federation"
	"github.com/vigia/sentinela/httpapi"
	"github.com/vigia/sentinela/memory"
	"github.com/vigia/sentinela/planner"
	"github.com/vigia/sentinela/resilience"
	"github.com/vigia/sentinela/router"
	"github.com/vigia/sentinela/sources"
	"github.com/vigia/sentinela/telemetry"
)

func main() {
	cfg := core.NewConfig()
	logger := core.NewProductionLogger(os.Getenv("GOMIND_DEBUG") == "true")

	registry := sources.NewRegistry(resilience.BreakerConfig{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		Window:           30 * time.Second,
		MinSamples:       5,
		Cooldown:         cfg.CircuitBreakerCooldown,
		MaxCooldown:      5 * time.Minute,
	}, logger)

	catalogPath := os.Getenv("CATALOG_PATH")
	var err error
	if catalogPath != "" {
		err = sources.LoadCatalog(catalogPath, registry)
	} else {
		err = sources.LoadDefaultCatalog(registry)
	}
	if err != nil {
		log.Fatalf("failed to load source catalog: %v", err)
	}

	client := sources.NewClient(cfg.TransparencyAPIKey, cfg.DemoMode())
	retry := resilience.NewRetryPolicy(resilience.DefaultRetryConfig())
	executor := federation.NewExecutor(registry, client, retry, logger)

	classifier := ai.Select(context.Background(), cfg.LLMProvider, logger)
	pl := planner.NewPlanner(classifier, defaultAgentTable(), logger)

	pool := agentrt.NewPool(cfg.AgentPoolMaxPerType, logger)
	pool.Register("communicator", func() agentrt.Agent { return agentrt.NewCommunicatorAgent() })
	pool.Register("analyst", func() agentrt.Agent { return agentrt.NewAnalystAgent() })
	pool.Register("reporter", func() agentrt.Agent { return agentrt.NewReporterAgent() })

	r := router.NewRouter(router.DefaultTable(), pool, logger)

	tel := telemetry.New("sentinela")
	r.SetTelemetry(tel)
	if err := tel.RegisterBreakerGauge(func() map[string]int64 {
		snapshot := registry.Snapshot(context.Background())
		out := make(map[string]int64, len(snapshot))
		for id, state := range snapshot {
			out[id] = int64(state)
		}
		return out
	}); err != nil {
		logger.Warn("failed to register breaker state gauge", map[string]interface{}{"error": err.Error()})
	}

	episodic := memory.NewEpisodicStore(cfg.CacheBackendURL, memory.DefaultRetention, logger)
	semantic := memory.NewInProcessSemanticStore()

	var store coordinator.Store = coordinator.NewInMemoryStore()
	if !cfg.MemoryOnly() {
		store = coordinator.NewRedisMirroredStore(store, cfg.CacheBackendURL, logger)
	}

	co := coordinator.NewCoordinator(store, pl, executor, r, episodic, logger)
	co.SetSemanticStore(semantic)
	co.RecoverStale(context.Background())

	working := memory.NewWorkingContext(memory.DefaultMaxTurns)

	server := httpapi.NewServer(cfg, pl, r, co, registry, pool, logger)
	server.SetTelemetry(tel)
	server.SetWorkingContext(working)

	addr := os.Getenv("PORT")
	if addr == "" {
		addr = "8080"
	}
	httpServer := &http.Server{Addr: ":" + addr, Handler: server.Handler()}

	go func() {
		logger.Info("sentinela listening", map[string]interface{}{"addr": addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool.Shutdown(shutdownCtx)
	httpServer.Shutdown(shutdownCtx)
}

// defaultAgentTable maps each IntentType to the agent id Intent.SuggestedAgentID
// should carry when the planner's classifier returns that intent.
func defaultAgentTable() map[core.IntentType]string {
	return map[core.IntentType]string{
		core.IntentGreeting:      "communicator",
		core.IntentHelpRequest:   "communicator",
		core.IntentInvestigate:   "analyst",
		core.IntentAnalyze:       "analyst",
		core.IntentReportRequest: "reporter",
		core.IntentUnknown:       "communicator",
	}
}
