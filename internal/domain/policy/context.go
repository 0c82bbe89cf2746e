package policy

import "context"

// EvaluationContext carries everything the engine needs to resolve a single
// tool invocation to a strategy. Every field is optional except Tool; Mode
// defaults to ContextInteractive when empty.
type EvaluationContext struct {
	// Tool is the tool identifier being invoked. Identifiers prefixed
	// "mcp:" denote MCP-scoped tools and are matched against MCPServer,
	// not against this field, by policy conditions that name an
	// mcp_servers list.
	Tool string
	// Mode is the execution context driving this call.
	Mode Context
	// Model is the model identifier in use, if known.
	Model string
	// MCPServer names the model-context-protocol server routing this
	// call, when the tool call is routed through one.
	MCPServer string
	// Arguments carries the tool call's arguments, exposed to a policy's
	// optional MatchExpression. It plays no role in the plain list-based
	// Condition.Matches conjunction.
	Arguments map[string]any
}

// normalizedMode returns ctx.Mode, defaulting to ContextInteractive.
func (ctx EvaluationContext) normalizedMode() Context {
	if ctx.Mode == "" {
		return ContextInteractive
	}
	return ctx.Mode
}

// Decision is the result of resolving an EvaluationContext: the strategy to
// apply plus the policy (if any) and channel that produced it.
type Decision struct {
	Strategy Strategy
	Channel  Channel
	PolicyID string
	Reason   string
}

// decisionKey is the context key type used to thread a Decision from the
// policy-resolution step to a downstream interceptor (the optional sandbox
// interceptor peer described for shell-class tools).
type decisionKey struct{}

// WithDecision stores a resolved Decision in ctx.
func WithDecision(ctx context.Context, d *Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFromContext retrieves a Decision previously stored with
// WithDecision. Returns nil if none is present.
func DecisionFromContext(ctx context.Context) *Decision {
	d, _ := ctx.Value(decisionKey{}).(*Decision)
	return d
}
