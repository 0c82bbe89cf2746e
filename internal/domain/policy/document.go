package policy

import "sort"

// Priority bands reserved for each level of specificity during compilation.
// Bands are spaced 10 000 apart so that even thousands of policies in one
// band never bleed into the next; lower numbers win.
const (
	PriorityModelTool  = 10_000 // model + context + tool (most specific)
	PriorityCtxTool    = 20_000 // context + tool
	PriorityCtxDefault = 30_000 // context catch-all default
	PriorityRule       = 80_000 // legacy rules (least specific)
)

// Policy is a single entry in a compiled PolicyDocument.
type Policy struct {
	ID        string
	Name      string
	Priority  int
	Condition Condition
	Effect    Strategy
	Channel   Channel
	Enabled   bool
}

// PolicyDocument is the compiled, canonical in-memory policy set the engine
// evaluates. It is produced by internal/adapter/outbound/store and is
// immutable once built: a new configuration mutation produces a new
// document rather than mutating this one in place.
type PolicyDocument struct {
	// EffectDefault is returned when no policy matches.
	EffectDefault Strategy
	// ChannelDefault is used when a strategy fires without naming a
	// channel explicitly.
	ChannelDefault Channel
	// ContextFallbacks maps a context to the context consulted when no
	// direct policy for it matches.
	ContextFallbacks map[Context]Context
	// Policies is the full policy list, sorted ascending by Priority with
	// ties broken lexicographically by ID (see SortPolicies).
	Policies []Policy
}

// SortPolicies sorts a policy slice in the order Resolve expects: ascending
// priority (lower wins), ties broken by ID.
func SortPolicies(policies []Policy) {
	sort.SliceStable(policies, func(i, j int) bool {
		if policies[i].Priority != policies[j].Priority {
			return policies[i].Priority < policies[j].Priority
		}
		return policies[i].ID < policies[j].ID
	})
}

// NewDocument builds a PolicyDocument from its parts, sorting policies into
// Resolve's expected order. Disabled policies are dropped: they never
// participate in resolution.
func NewDocument(effectDefault Strategy, channelDefault Channel, fallbacks map[Context]Context, policies []Policy) PolicyDocument {
	enabled := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	SortPolicies(enabled)
	if fallbacks == nil {
		fallbacks = map[Context]Context{}
	}
	return PolicyDocument{
		EffectDefault:    effectDefault,
		ChannelDefault:   channelDefault,
		ContextFallbacks: fallbacks,
		Policies:         enabled,
	}
}
