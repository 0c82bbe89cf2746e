package service

import (
	"log/slog"

	"github.com/sentineltrace/guardctl/internal/adapter/outbound/evallog"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/mcpclient"
	"github.com/sentineltrace/guardctl/internal/domain/approval"
	"github.com/sentineltrace/guardctl/internal/domain/policy"
	"github.com/sentineltrace/guardctl/internal/domain/review"
	"github.com/sentineltrace/guardctl/internal/observability"
)

// Drivers builds one EvaluationService per background-agent context (spec
// §3.2, §9 "Background-agent contexts replace a class of source-side
// dispatch hacks"): every background driver -- scheduler, bot processor,
// proactive loop, memory formation, the AITL reviewer's own session, the
// realtime voice bridge -- gets its own *approval.Interceptor pinned to a
// distinct policy.Context, while sharing the same policy engine, Prompt
// Shield, AI reviewer, eval log, metrics, and MCP manager as the primary
// interactive instance. Absent a direct policy for a driver's context, the
// compiled document's context_fallbacks map resolves it to "background".
type Drivers struct {
	engine   policy.Engine
	shield   review.Shield
	reviewer review.Reviewer
	model    string
	evalLog  *evallog.Store
	metrics  Metrics
	mcp      *mcpclient.Manager
	tracer   *observability.Tracer
	logger   *slog.Logger
}

// NewDrivers wires the collaborators shared across every background driver.
// evalLog, metrics, mcp, and tracer may be nil/zero to disable the
// corresponding ambient concern, matching NewEvaluationService.
func NewDrivers(engine policy.Engine, shield review.Shield, reviewer review.Reviewer, model string, evalLog *evallog.Store, metrics Metrics, mcp *mcpclient.Manager, tracer *observability.Tracer, logger *slog.Logger) *Drivers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Drivers{
		engine:   engine,
		shield:   shield,
		reviewer: reviewer,
		model:    model,
		evalLog:  evalLog,
		metrics:  metrics,
		mcp:      mcp,
		tracer:   tracer,
		logger:   logger,
	}
}

// For builds the EvaluationService for one background-agent context. Each
// call returns a fresh Interceptor/EvaluationService pair; a caller that
// owns a long-running driver builds it once and keeps it for the driver's
// lifetime, the same way the primary chat-channel instance is built once in
// cmd/guardctl/cmd/serve.go.
func (d *Drivers) For(execContext policy.Context) *EvaluationService {
	interceptor := approval.New(d.engine, d.shield, d.reviewer, execContext, d.model, d.logger.With("driver", string(execContext)))
	return NewEvaluationService(interceptor, d.evalLog, d.metrics, d.mcp, d.tracer, d.logger)
}

// Scheduler, BotProcessor, ProactiveLoop, MemoryFormation, AITLReviewer, and
// Realtime build the EvaluationService for each first-class background
// driver named in policy.BackgroundAgentContexts.
func (d *Drivers) Scheduler() *EvaluationService       { return d.For(policy.ContextScheduler) }
func (d *Drivers) BotProcessor() *EvaluationService    { return d.For(policy.ContextBotProcessor) }
func (d *Drivers) ProactiveLoop() *EvaluationService   { return d.For(policy.ContextProactiveLoop) }
func (d *Drivers) MemoryFormation() *EvaluationService { return d.For(policy.ContextMemoryFormation) }
func (d *Drivers) AITLReviewer() *EvaluationService    { return d.For(policy.ContextAITLReviewer) }
func (d *Drivers) Realtime() *EvaluationService        { return d.For(policy.ContextRealtime) }
