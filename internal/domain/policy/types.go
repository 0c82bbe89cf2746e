// Package policy holds the pure, in-memory policy document model and the
// deterministic engine that resolves a tool invocation to a strategy.
//
// Nothing in this package performs I/O. Compilation from user-facing
// configuration lives in internal/adapter/outbound/store; this package only
// represents a compiled document and evaluates it.
package policy

import "fmt"

// Strategy is the closed set of decision outcomes a policy can produce,
// ranked by restrictiveness (the rank is used only when merging a preset's
// strategies into an existing configuration).
type Strategy string

const (
	StrategyAllow  Strategy = "allow"
	StrategyFilter Strategy = "filter"
	StrategyAITL   Strategy = "aitl"
	StrategyHITL   Strategy = "hitl"
	StrategyPITL   Strategy = "pitl"
	StrategyDeny   Strategy = "deny"

	// strategyAsk is a legacy synonym for StrategyHITL. It is accepted by
	// ParseStrategy on read and never produced by the compiler -- it always
	// normalizes to StrategyHITL.
	strategyAsk Strategy = "ask"
)

// strategyRank ranks strategies by restrictiveness, least to most. "ask" is
// deliberately absent: it is normalized to hitl before anything ranks it, so
// it shares hitl's rank rather than carrying its own rank (see DESIGN.md).
var strategyRank = map[Strategy]int{
	StrategyAllow:  0,
	StrategyFilter: 1,
	StrategyAITL:   2,
	StrategyHITL:   3,
	StrategyPITL:   4,
	StrategyDeny:   5,
}

// Rank returns s's restrictiveness rank. Unknown strategies rank as hitl.
func (s Strategy) Rank() int {
	if r, ok := strategyRank[s]; ok {
		return r
	}
	return strategyRank[StrategyHITL]
}

// MoreRestrictive reports whether s is at least as restrictive as other.
func (s Strategy) MoreRestrictive(other Strategy) bool {
	return s.Rank() >= other.Rank()
}

// ParseStrategy validates a raw strategy string against the closed set,
// normalizing the legacy "ask" synonym to StrategyHITL.
func ParseStrategy(raw string) (Strategy, error) {
	s := Strategy(raw)
	if s == strategyAsk {
		return StrategyHITL, nil
	}
	switch s {
	case StrategyAllow, StrategyFilter, StrategyAITL, StrategyHITL, StrategyPITL, StrategyDeny:
		return s, nil
	default:
		return "", fmt.Errorf("policy: unknown strategy %q", raw)
	}
}

// Channel selects which HITL channel resolves an approval when a strategy
// fires without naming one explicitly.
type Channel string

const (
	ChannelChat  Channel = "chat"
	ChannelPhone Channel = "phone"
	ChannelNone  Channel = ""
)

// ParseChannel validates a raw channel string, defaulting an empty string to
// ChannelChat.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(raw) {
	case ChannelChat, ChannelNone:
		return ChannelChat, nil
	case ChannelPhone:
		return ChannelPhone, nil
	default:
		return "", fmt.Errorf("policy: unknown channel %q", raw)
	}
}

// Context identifies who is driving the agent for a given evaluation.
type Context string

const (
	ContextInteractive Context = "interactive"
	ContextBackground  Context = "background"
	ContextVoice       Context = "voice"
	ContextAPI         Context = "api"

	// Background-agent contexts. Each is first-class; absent a direct
	// policy, the engine falls back to ContextBackground through the
	// document's ContextFallbacks map.
	ContextScheduler       Context = "scheduler"
	ContextBotProcessor    Context = "bot_processor"
	ContextProactiveLoop   Context = "proactive_loop"
	ContextMemoryFormation Context = "memory_formation"
	ContextAITLReviewer    Context = "aitl_reviewer"
	ContextRealtime        Context = "realtime"
)

// BackgroundAgentContexts lists every background-agent context id, in the
// order the BackgroundAgents registry declares them.
var BackgroundAgentContexts = []Context{
	ContextScheduler,
	ContextBotProcessor,
	ContextProactiveLoop,
	ContextMemoryFormation,
	ContextAITLReviewer,
	ContextRealtime,
}

// DefaultContextFallbacks returns the fallback map every compiled document
// carries: every background-agent context, except background itself, falls
// back to ContextBackground.
func DefaultContextFallbacks() map[Context]Context {
	fallbacks := make(map[Context]Context, len(BackgroundAgentContexts))
	for _, id := range BackgroundAgentContexts {
		if id != ContextBackground {
			fallbacks[id] = ContextBackground
		}
	}
	return fallbacks
}
