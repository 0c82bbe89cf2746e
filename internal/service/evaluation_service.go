package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sentineltrace/guardctl/internal/adapter/outbound/evallog"
	"github.com/sentineltrace/guardctl/internal/adapter/outbound/mcpclient"
	"github.com/sentineltrace/guardctl/internal/domain/approval"
	"github.com/sentineltrace/guardctl/internal/observability"
)

// Interceptor is the subset of approval.Interceptor the EvaluationService
// drives; satisfied by *approval.Interceptor.
type Interceptor interface {
	BindTurn(b approval.Bindings)
	UnbindTurn()
	ResolveApproval(toolCallID string, approved bool) bool
	ResolveBotReply(text string) bool
	HasPendingApproval() bool
	OnPreToolUse(ctx context.Context, req approval.Request) approval.Decision
}

// Metrics is the subset of metrics.Metrics the EvaluationService records
// against, kept narrow so tests can supply a stub.
type Metrics interface {
	ObserveHITLWait(d time.Duration)
	IncPolicyEvaluation(strategy string)
	IncReviewerTimeout()
	SetApprovalPending(pending bool)
}

// EvaluationService is the single entry point a transport (stdio proxy,
// Claude/Gemini hook, or MCP gateway) calls for every tool invocation. It
// wraps the pure approval.Interceptor with the three ambient concerns the
// domain layer deliberately does not know about: tracing spans, Prometheus
// metrics, and the durable evaluation log.
type EvaluationService struct {
	interceptor Interceptor
	evalLog     *evallog.Store // optional; nil disables durable logging
	metrics     Metrics        // optional; nil disables metrics
	tracer      *observability.Tracer
	mcp         *mcpclient.Manager // optional; nil when no mcp_servers configured
	logger      *slog.Logger
}

// NewEvaluationService wires interceptor with its ambient collaborators.
// evalLog, metrics, mcp, and tracer may each be nil/zero to disable the
// corresponding concern.
func NewEvaluationService(interceptor Interceptor, evalLog *evallog.Store, metrics Metrics, mcp *mcpclient.Manager, tracer *observability.Tracer, logger *slog.Logger) *EvaluationService {
	if tracer == nil {
		tracer = observability.NewTracer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationService{
		interceptor: interceptor,
		evalLog:     evalLog,
		metrics:     metrics,
		mcp:         mcp,
		tracer:      tracer,
		logger:      logger,
	}
}

// Evaluate runs the pre-tool-use hook for req, assigning a ToolCallID when
// the caller didn't supply one, and records the decision to every
// configured ambient collaborator before returning it.
func (s *EvaluationService) Evaluate(ctx context.Context, req approval.Request) approval.Decision {
	if req.ToolCallID == "" {
		req.ToolCallID = uuid.NewString()
	}

	ctx, endResolve := s.tracer.ResolveSpan(ctx, req.ToolName, req.MCPServer)

	waitStart := time.Now()
	decision := s.interceptor.OnPreToolUse(ctx, req)
	waitElapsed := time.Since(waitStart)

	endResolve(nil)

	if s.metrics != nil {
		s.metrics.ObserveHITLWait(waitElapsed)
		s.metrics.IncPolicyEvaluation(strategyLabel(decision))
		if decision.TimedOut {
			s.metrics.IncReviewerTimeout()
		}
	}

	if s.evalLog != nil {
		if err := s.evalLog.RecordApproval(ctx, evallog.ApprovalRecord{
			ToolCallID: req.ToolCallID,
			Permission: string(decision.Permission),
			Reason:     decision.Reason,
			Channel:    string(decision.Channel),
			ResolvedAt: time.Now(),
		}); err != nil {
			s.logger.Warn("evaluation_service: record approval failed", "tool_call_id", req.ToolCallID, "error", err)
		}
	}

	return decision
}

// BindTurn, UnbindTurn, ResolveApproval, ResolveBotReply, and
// HasPendingApproval pass straight through to the underlying interceptor so
// EvaluationService can itself satisfy chatchannel.Resolver and
// approvalapi.Resolver -- transports don't need to know the interceptor is
// wrapped.

func (s *EvaluationService) BindTurn(b approval.Bindings) { s.interceptor.BindTurn(b) }
func (s *EvaluationService) UnbindTurn()                  { s.interceptor.UnbindTurn() }

func (s *EvaluationService) ResolveApproval(toolCallID string, approved bool) bool {
	resolved := s.interceptor.ResolveApproval(toolCallID, approved)
	if resolved && s.metrics != nil {
		s.metrics.SetApprovalPending(s.interceptor.HasPendingApproval())
	}
	return resolved
}

func (s *EvaluationService) ResolveBotReply(text string) bool {
	return s.interceptor.ResolveBotReply(text)
}

func (s *EvaluationService) HasPendingApproval() bool {
	return s.interceptor.HasPendingApproval()
}

// MCP returns the MCP client manager, or nil if guardctl was started
// without any mcp_servers configured.
func (s *EvaluationService) MCP() *mcpclient.Manager {
	return s.mcp
}

// strategyLabel feeds guardctl_policy_evaluations_total{strategy=...}. It
// prefers the resolved policy.Strategy the interceptor carried on the
// decision (allow/deny/filter/aitl/hitl/pitl) and only falls back to the
// coarse Permission split for a zero-value Decision (e.g. a stub in tests).
func strategyLabel(d approval.Decision) string {
	if d.Strategy != "" {
		return string(d.Strategy)
	}
	if d.Permission == approval.PermissionAllow {
		return "allow"
	}
	return "deny"
}
