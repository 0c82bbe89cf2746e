// Package store implements the Policy Store: the mutable configuration
// owner that compiles a config.GuardrailsConfig into a policy.PolicyDocument
// and keeps a compiled policy.Engine in sync with every mutation.
package store

import (
	"sort"
	"strings"

	"github.com/sentineltrace/guardctl/internal/config"
	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

// safeID makes a string safe for use as part of a policy id.
func safeID(value string) string {
	r := strings.NewReplacer(":", "-", "*", "x", " ", "-", "/", "-")
	return r.Replace(value)
}

// Compile converts a GuardrailsConfig into a policy.PolicyDocument,
// deterministically: the same config always compiles to the same document.
//
// Band cascade (spec §4.1, lower priority number wins): model-scoped tool
// policies > context-scoped tool policies > context-level defaults > legacy
// rules. When hitl_enabled is false, the document carries no policies
// and effect_default=allow, so every call resolves to allow regardless of
// default_action.
func Compile(cfg config.GuardrailsConfig) policy.PolicyDocument {
	if !cfg.HITLEnabled {
		return policy.NewDocument(policy.StrategyAllow, policy.ChannelChat, policy.DefaultContextFallbacks(), nil)
	}

	var policies []policy.Policy

	// 1. Model-scoped tool policies (highest priority).
	priority := policy.PriorityModelTool
	for _, model := range sortedKeys(cfg.ModelColumns) {
		ctxMap := cfg.ModelPolicies[model]
		for _, ctx := range sortedMapKeys(ctxMap) {
			toolMap := ctxMap[ctx]
			for _, tool := range sortedMapKeys(toolMap) {
				effect := toolMap[tool]
				strategy, err := policy.ParseStrategy(effect)
				if err != nil {
					continue
				}
				policies = append(policies, policy.Policy{
					ID:        "model-" + safeID(model) + "-" + ctx + "-" + safeID(tool),
					Priority:  priority,
					Condition: buildCondition([]string{ctx}, []string{tool}, []string{model}),
					Effect:    strategy,
					Enabled:   true,
				})
				priority++
			}
		}
	}

	// 2. Context-scoped tool policies.
	priority = policy.PriorityCtxTool
	for _, ctx := range sortedMapKeys(cfg.ToolPolicies) {
		toolMap := cfg.ToolPolicies[ctx]
		for _, tool := range sortedMapKeys(toolMap) {
			effect := toolMap[tool]
			strategy, err := policy.ParseStrategy(effect)
			if err != nil {
				continue
			}
			policies = append(policies, policy.Policy{
				ID:        "ctx-" + ctx + "-" + safeID(tool),
				Priority:  priority,
				Condition: buildCondition([]string{ctx}, []string{tool}, nil),
				Effect:    strategy,
				Enabled:   true,
			})
			priority++
		}
	}

	// 3. Legacy rules.
	priority = policy.PriorityRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		strategy, err := policy.ParseStrategy(rule.Action)
		if err != nil {
			continue
		}
		cond := policy.Condition{}
		if rule.Scope == "mcp" {
			cond.MCPServers = []string{rule.Pattern}
		} else {
			cond.Tools = []string{rule.Pattern}
		}
		if len(rule.Contexts) > 0 {
			cond.Modes = toContexts(rule.Contexts)
		}
		if len(rule.Models) > 0 {
			cond.Models = rule.Models
		}
		channel := policy.ChannelNone
		if rule.HITLChannel == "phone" {
			channel = policy.ChannelPhone
		}
		cond.MatchExpression = rule.MatchExpression
		policies = append(policies, policy.Policy{
			ID:        "rule-" + safeID(rule.ID),
			Name:      rule.Name,
			Priority:  priority,
			Condition: cond,
			Effect:    strategy,
			Channel:   channel,
			Enabled:   true,
		})
		priority++
	}

	// 4. Context-level defaults.
	priority = policy.PriorityCtxDefault
	for _, ctx := range sortedMapKeys(cfg.ContextDefaults) {
		effect := cfg.ContextDefaults[ctx]
		strategy, err := policy.ParseStrategy(effect)
		if err != nil {
			continue
		}
		policies = append(policies, policy.Policy{
			ID:        "ctx-default-" + ctx,
			Priority:  priority,
			Condition: policy.Condition{Modes: []policy.Context{policy.Context(ctx)}},
			Effect:    strategy,
			Enabled:   true,
		})
		priority++
	}

	defaultAction, err := policy.ParseStrategy(cfg.DefaultAction)
	if err != nil {
		defaultAction = policy.StrategyHITL
	}
	defaultChannel, err := policy.ParseChannel(cfg.DefaultChannel)
	if err != nil {
		defaultChannel = policy.ChannelChat
	}

	return policy.NewDocument(defaultAction, defaultChannel, policy.DefaultContextFallbacks(), policies)
}

// buildCondition builds a Condition, splitting "mcp:<x>" tool ids into
// MCPServers the way the original compiler's _build_condition did.
func buildCondition(modes, tools, models []string) policy.Condition {
	cond := policy.Condition{}
	if len(modes) > 0 {
		cond.Modes = toContexts(modes)
	}
	if len(models) > 0 {
		cond.Models = models
	}

	var toolList, mcpList []string
	for _, t := range tools {
		if strings.HasPrefix(t, "mcp:") {
			mcpList = append(mcpList, strings.TrimPrefix(t, "mcp:"))
		} else {
			toolList = append(toolList, t)
		}
	}
	if len(toolList) > 0 {
		cond.Tools = toolList
	}
	if len(mcpList) > 0 {
		cond.MCPServers = mcpList
	}
	return cond
}

func toContexts(modes []string) []policy.Context {
	out := make([]policy.Context, len(modes))
	for i, m := range modes {
		out[i] = policy.Context(m)
	}
	return out
}

func sortedKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}

func sortedMapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
