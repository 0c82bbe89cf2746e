package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sentineltrace/guardctl/internal/domain/policy"
	"github.com/sentineltrace/guardctl/internal/domain/review"
)

// Emitter sends a structured event to the interactive (chat) channel.
type Emitter func(eventName string, payload map[string]any)

// BotReplyFn sends a human-readable out-of-band text message on the bot
// channel.
type BotReplyFn func(text string)

// PhoneVerifyResult is what the phone-verifier collaborator resolves its
// future with.
type PhoneVerifyResult struct {
	Approved bool
	Reason   string
}

// PhoneVerifier is the outbound-call collaborator consulted for the pitl
// strategy.
type PhoneVerifier interface {
	Verify(ctx context.Context, toolName, argsSummary string) <-chan PhoneVerifyResult
}

// Bindings are the per-turn callbacks the owning transport installs via
// BindTurn before processing a turn, and clears via UnbindTurn at turn end.
type Bindings struct {
	Emit             Emitter
	BotReply         BotReplyFn
	ExecutionContext policy.Context
	PhoneVerifier    PhoneVerifier
}

// Interceptor is the HITL pre-tool-use coordinator: it resolves a policy
// strategy for every non-whitelisted tool call and converts it into a
// concrete allow/deny decision, racing whatever approval sources the
// current turn has bound.
type Interceptor struct {
	mu       sync.Mutex
	bindings Bindings

	engine  policy.Engine
	shield  review.Shield
	reviewer review.Reviewer
	pending *pendingTable

	defaultContext policy.Context
	model          string
	logger         *slog.Logger
}

// New builds an Interceptor bound to engine, with shield/reviewer optional
// (nil disables the corresponding strategy).
func New(engine policy.Engine, shield review.Shield, reviewer review.Reviewer, defaultContext policy.Context, model string, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		engine:         engine,
		shield:         shield,
		reviewer:       reviewer,
		pending:        newPendingTable(),
		defaultContext: defaultContext,
		model:          model,
		logger:         logger,
	}
}

// BindTurn installs this turn's approval callbacks.
func (i *Interceptor) BindTurn(b Bindings) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.bindings = b
}

// UnbindTurn clears the current turn's approval callbacks.
func (i *Interceptor) UnbindTurn() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.bindings = Bindings{}
}

// ResolveApproval completes a pending chat-channel approval. It returns
// true iff toolCallID was pending.
func (i *Interceptor) ResolveApproval(toolCallID string, approved bool) bool {
	return i.pending.ResolveApproval(toolCallID, approved)
}

// ResolveBotReply completes the single pending bot-channel approval. It
// returns true iff one was pending.
func (i *Interceptor) ResolveBotReply(text string) bool {
	return i.pending.ResolveBotReply(text)
}

// HasPendingApproval reports whether any approval is currently outstanding.
func (i *Interceptor) HasPendingApproval() bool {
	return i.pending.HasPendingApproval()
}

// OnPreToolUse is the pre-tool-use hook. It is invoked synchronously for
// every tool call inside a session, before the tool executes.
func (i *Interceptor) OnPreToolUse(ctx context.Context, req Request) Decision {
	if IsAlwaysApproved(req.ToolName) {
		return allow("whitelisted observability tool", policy.StrategyAllow)
	}

	i.mu.Lock()
	bindings := i.bindings
	i.mu.Unlock()

	execContext := i.defaultContext
	if bindings.ExecutionContext != "" {
		execContext = bindings.ExecutionContext
	}

	// Arguments that are not a JSON object leave the map nil.
	var arguments map[string]any
	_ = json.Unmarshal([]byte(req.ToolArgs), &arguments)

	resolved := i.engine.Resolve(policy.EvaluationContext{
		Tool:      req.ToolName,
		Mode:      execContext,
		Model:     i.model,
		MCPServer: req.MCPServer,
		Arguments: arguments,
	})

	// Global Prompt-Shield pre-check: runs regardless of the resolved
	// strategy and short-circuits every strategy below.
	if i.shield != nil && i.shield.Configured() {
		result := i.shield.Check(ctx, req.ToolArgs)
		if result.AttackDetected {
			i.emitToolDenied(bindings, req, result.Detail)
			d := deny("prompt shield: "+result.Detail, resolved.Channel, resolved.Strategy)
			i.emitApprovalResolved(bindings, req, d)
			return d
		}
	}

	var d Decision
	switch resolved.Strategy {
	case policy.StrategyAllow:
		d = allow("policy allow", resolved.Strategy)
	case policy.StrategyDeny:
		i.emitToolDenied(bindings, req, "policy deny")
		d = deny("policy deny", resolved.Channel, resolved.Strategy)
	case policy.StrategyFilter:
		d = i.dispatchFilter(ctx, bindings, req, resolved)
	case policy.StrategyAITL:
		d = i.dispatchAITL(ctx, req, execContext, resolved.Strategy)
	case policy.StrategyHITL:
		d = i.dispatchHITL(ctx, bindings, req, resolved)
	case policy.StrategyPITL:
		d = i.dispatchPITL(ctx, bindings, req, resolved.Strategy)
	default:
		d = deny("unrecognized strategy", resolved.Channel, resolved.Strategy)
	}

	i.emitApprovalResolved(bindings, req, d)
	return d
}

// dispatchFilter runs even though the global pre-check above already
// consulted the shield: a document can resolve the filter strategy for a
// tool the pre-check's fail-open policy let through, or when the shield was
// not configured at all. Unlike the pre-check, filter is fail-closed (spec
// §7, invariant 8): a shield error denies instead of allowing, because an
// operator who explicitly chose filter for this tool wants the shield's
// verdict to be load-bearing, not best-effort.
func (i *Interceptor) dispatchFilter(ctx context.Context, bindings Bindings, req Request, resolved policy.Decision) Decision {
	if i.shield == nil || !i.shield.Configured() {
		return allow("filter strategy with no shield configured", resolved.Strategy)
	}
	result := i.shield.Check(ctx, req.ToolArgs)
	if result.Failed {
		i.emitToolDenied(bindings, req, result.Detail)
		return deny("prompt shield unavailable: "+result.Detail, resolved.Channel, resolved.Strategy)
	}
	if result.AttackDetected {
		i.emitToolDenied(bindings, req, result.Detail)
		return deny("prompt shield: "+result.Detail, resolved.Channel, resolved.Strategy)
	}
	return allow("filter: no attack detected", resolved.Strategy)
}

func (i *Interceptor) dispatchAITL(ctx context.Context, req Request, execContext policy.Context, strategy policy.Strategy) Decision {
	if i.reviewer == nil {
		return deny("aitl: no reviewer configured", policy.ChannelNone, strategy)
	}
	reviewCtx, cancel := context.WithTimeout(ctx, ReviewTimeout)
	defer cancel()

	type outcome struct {
		result review.ReviewResult
	}
	resultCh := make(chan outcome, 1)
	go func() {
		resultCh <- outcome{i.reviewer.Review(reviewCtx, review.ReviewRequest{
			ToolName:  req.ToolName,
			Arguments: req.ToolArgs,
			Context:   string(execContext),
		})}
	}()

	select {
	case o := <-resultCh:
		if o.result.Approved {
			return allow(o.result.Reason, strategy)
		}
		return deny(o.result.Reason, policy.ChannelNone, strategy)
	case <-reviewCtx.Done():
		d := deny("Review timed out", policy.ChannelNone, strategy)
		d.TimedOut = true
		return d
	}
}

func (i *Interceptor) dispatchHITL(ctx context.Context, bindings Bindings, req Request, resolved policy.Decision) Decision {
	resultCh := make(chan waitResult, 2)
	sources := 0

	if bindings.Emit != nil {
		w := i.pending.registerChat(req.ToolCallID)
		defer func() {
			i.pending.removeChat(req.ToolCallID)
			w.cancel()
		}()
		bindings.Emit("approval_request", map[string]any{
			"toolCallId":   req.ToolCallID,
			"toolName":     req.ToolName,
			"args_preview": preview(req.ToolArgs),
		})
		sources++
		go func() {
			select {
			case r := <-w.result:
				resultCh <- r
			case <-w.done:
			}
		}()
	}

	if bindings.BotReply != nil {
		w := i.pending.registerBot()
		defer func() {
			i.pending.removeBot(w)
			w.cancel()
		}()
		bindings.BotReply(fmt.Sprintf("Approve %s? (yes/no)", req.ToolName))
		sources++
		go func() {
			select {
			case r := <-w.result:
				resultCh <- r
			case <-w.done:
			}
		}()
	}

	if sources == 0 {
		// No approval channel is bound: return deny immediately, never
		// hang on the 300s cap.
		return deny("hitl: no approval channel bound", resolved.Channel, resolved.Strategy)
	}

	timer := time.NewTimer(ChannelRaceTimeout)
	defer timer.Stop()

	select {
	case r := <-resultCh:
		if r.approved {
			return allow("hitl: approved", resolved.Strategy)
		}
		reason := r.reason
		if reason == "" {
			reason = "hitl: denied"
		}
		return deny(reason, resolved.Channel, resolved.Strategy)
	case <-timer.C:
		return deny("hitl: approval timed out", resolved.Channel, resolved.Strategy)
	case <-ctx.Done():
		return deny("hitl: session cancelled", resolved.Channel, resolved.Strategy)
	}
}

func (i *Interceptor) dispatchPITL(ctx context.Context, bindings Bindings, req Request, strategy policy.Strategy) Decision {
	if bindings.PhoneVerifier == nil {
		return deny("pitl: no phone verifier bound", policy.ChannelPhone, strategy)
	}
	verifyCtx, cancel := context.WithTimeout(ctx, ChannelRaceTimeout)
	defer cancel()

	ch := bindings.PhoneVerifier.Verify(verifyCtx, req.ToolName, preview(req.ToolArgs))
	select {
	case r := <-ch:
		if r.Approved {
			return allow("pitl: approved", strategy)
		}
		reason := r.Reason
		if reason == "" {
			reason = "pitl: denied"
		}
		return deny(reason, policy.ChannelPhone, strategy)
	case <-verifyCtx.Done():
		return deny("pitl: verification timed out", policy.ChannelPhone, strategy)
	}
}

func (i *Interceptor) emitToolDenied(bindings Bindings, req Request, detail string) {
	if bindings.Emit == nil {
		return
	}
	bindings.Emit("tool_denied", map[string]any{
		"toolCallId": req.ToolCallID,
		"toolName":   req.ToolName,
		"detail":     detail,
	})
}

func (i *Interceptor) emitApprovalResolved(bindings Bindings, req Request, d Decision) {
	if bindings.Emit == nil {
		return
	}
	bindings.Emit("approval_resolved", map[string]any{
		"toolCallId": req.ToolCallID,
		"toolName":   req.ToolName,
		"permission": d.Permission,
		"channel":    d.Channel,
	})
}

func preview(args string) string {
	const maxLen = 200
	trimmed := strings.TrimSpace(args)
	if len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen] + "…"
}
