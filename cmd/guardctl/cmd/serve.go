package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sentineltrace/guardctl/internal/adapter/inbound/approvalapi"
	"github.com/sentineltrace/guardctl/internal/adapter/inbound/chatchannel"
	"github.com/sentineltrace/guardctl/internal/adapter/inbound/metrics"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/celmatch"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/evallog"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/mcpclient"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/policyengine"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/reviewer"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/shield"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/store"
	"github.com/sentineltrace/guardctl/internal/config"
	"github.com/sentineltrace/guardctl/internal/domain/approval"
	"github.com/sentineltrace/guardctl/internal/domain/policy"
	"github.com/sentineltrace/guardctl/internal/domain/review"
	"github.com/sentineltrace/guardctl/internal/observability"
	"github.com/sentineltrace/guardctl/internal/service"
)

// resultCacheSize bounds the CachingEngine's LRU, matching the teacher's
// policy service default.
const resultCacheSize = 10_000

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the approval/metrics HTTP server",
	Long: `Starts guardctl's HTTP surface: the HITL chat channel (a WebSocket),
the approval-resolution API, and a Prometheus /metrics endpoint. A running
agent session dials the chat channel and binds it to the turn whose tool
calls should route through this server's policy store.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.NewTracerProvider(ctx, observability.TracerProviderConfig{
		ServiceName:    "guardctl",
		ServiceVersion: Version,
		PrettyPrint:    cfg.DevMode,
	})
	if err != nil {
		return fmt.Errorf("start tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	configStore, err := store.NewConfigStore(guardrailsJSONPath, guardrailsYAMLPath, cfg.Guardrails, logger)
	if err != nil {
		return fmt.Errorf("open guardrails store: %w", err)
	}

	matcher, err := celmatch.NewEvaluator()
	if err != nil {
		return fmt.Errorf("build match_expression evaluator: %w", err)
	}
	if err := configStore.SetExpressionMatcher(matcher); err != nil {
		return fmt.Errorf("wire match_expression evaluator: %w", err)
	}

	cachingEngine := policyengine.NewCachingEngine(configStore, resultCacheSize)

	var shieldClient *shield.Client
	if cfg.Guardrails.ContentSafetyEndpoint != "" {
		shieldClient = shield.New(cfg.Guardrails.ContentSafetyEndpoint, cfg.Guardrails.ContentSafetyKey)
	}

	var aitlReviewer review.Reviewer
	if anthropicKey := os.Getenv("ANTHROPIC_API_KEY"); anthropicKey != "" {
		aitlReviewer = reviewer.NewAITLReviewer(anthropicKey, cfg.Guardrails.AITLModel, cfg.Guardrails.AITLSpotlighting)
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set: aitl strategy will deny every call it resolves to")
	}

	interceptor := approval.New(cachingEngine, shieldWrapper{shieldClient}, aitlReviewer, policy.ContextInteractive, cfg.Guardrails.AITLModel, logger)

	var evalLog *evallog.Store
	if cfg.EvalLog.Path != "" {
		evalLog, err = evallog.Open(cfg.EvalLog.Path)
		if err != nil {
			return fmt.Errorf("open eval log: %w", err)
		}
		defer func() { _ = evalLog.Close() }()
	}

	var mcp *mcpclient.Manager
	if len(cfg.MCPServers) > 0 {
		mcp = mcpclient.NewManager(cfg.MCPServers)
		defer func() { _ = mcp.Close() }()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	evalService := service.NewEvaluationService(interceptor, evalLog, m, mcp, observability.NewTracer(), logger)

	keys := apiKeySource(cfg.Auth.APIKeys)

	mux := http.NewServeMux()
	mux.Handle("/chat", chatchannel.New(evalService, cfg.DevMode, logger))
	approvalapi.New(evalService, logger).Routes(mux, keys)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("guardctl serve: listening", "addr", cfg.Server.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("guardctl serve: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// shieldWrapper adapts a possibly-nil *shield.Client to review.Shield: a
// nil client reports Configured()==false, matching the interceptor's
// "shield not configured" short-circuit without a separate nil check at
// every call site.
type shieldWrapper struct {
	client *shield.Client
}

func (w shieldWrapper) Configured() bool {
	return w.client != nil && w.client.Configured()
}

func (w shieldWrapper) Check(ctx context.Context, args string) review.ShieldResult {
	if w.client == nil {
		return review.ShieldResult{}
	}
	return w.client.Check(ctx, args)
}

func apiKeySource(keys []config.APIKeyConfig) approvalapi.StaticKeys {
	hashes := make(approvalapi.StaticKeys, len(keys))
	for i, k := range keys {
		hashes[i] = k.KeyHash
	}
	return hashes
}
