package store

import (
	"sort"

	"github.com/sentineltrace/guardctl/internal/config"
	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

// Decompile classifies a compiled PolicyDocument's policies back into
// GuardrailsConfig's nested shape, the inverse of Compile. It is used when a
// document was edited directly (e.g. through a hand-authored YAML companion
// file) and the mutation needs to be reflected back into the config object
// that SetPolicy/ApplyPreset continue to operate on.
//
// Classification mirrors the condition shape each compilation stage
// produces:
//   - model scoped:   models + (tools or mcp_servers) + modes
//   - context scoped:  (tools or mcp_servers) + modes, no models
//   - context default: modes only, no tools/mcp_servers/models
//   - legacy rule:     tools or mcp_servers, no modes
func Decompile(doc policy.PolicyDocument) config.GuardrailsConfig {
	cfg := config.GuardrailsConfig{
		DefaultAction:  string(doc.EffectDefault),
		DefaultChannel: string(doc.ChannelDefault),
	}

	contextDefaults := map[string]string{}
	toolPolicies := map[string]map[string]string{}
	modelColumns := map[string]struct{}{}
	modelPolicies := map[string]map[string]map[string]string{}
	var rules []config.RuleConfig

	for _, p := range doc.Policies {
		cond := p.Condition
		hasModel := len(cond.Models) > 0
		hasTool := len(cond.Tools) > 0
		hasMCP := len(cond.MCPServers) > 0
		hasMode := len(cond.Modes) > 0
		effect := string(p.Effect)

		switch {
		case hasModel && (hasTool || hasMCP) && hasMode:
			items := toolIDs(cond)
			for _, model := range cond.Models {
				modelColumns[model] = struct{}{}
				for _, mode := range cond.Modes {
					ctxMap, ok := modelPolicies[model]
					if !ok {
						ctxMap = map[string]map[string]string{}
						modelPolicies[model] = ctxMap
					}
					toolMap, ok := ctxMap[string(mode)]
					if !ok {
						toolMap = map[string]string{}
						ctxMap[string(mode)] = toolMap
					}
					for _, id := range items {
						toolMap[id] = effect
					}
				}
			}

		case (hasTool || hasMCP) && hasMode && !hasModel:
			items := toolIDs(cond)
			for _, mode := range cond.Modes {
				toolMap, ok := toolPolicies[string(mode)]
				if !ok {
					toolMap = map[string]string{}
					toolPolicies[string(mode)] = toolMap
				}
				for _, id := range items {
					toolMap[id] = effect
				}
			}

		case hasMode && !hasTool && !hasMCP && !hasModel:
			for _, mode := range cond.Modes {
				contextDefaults[string(mode)] = effect
			}

		case (hasTool || hasMCP) && !hasMode:
			rule := config.RuleConfig{
				ID:              p.ID,
				Name:            p.Name,
				Enabled:         p.Enabled,
				Action:          effect,
				HITLChannel:     string(p.Channel),
				MatchExpression: cond.MatchExpression,
			}
			if hasMCP {
				rule.Scope = "mcp"
				rule.Pattern = cond.MCPServers[0]
			} else {
				rule.Scope = "tool"
				rule.Pattern = cond.Tools[0]
			}
			if hasModel {
				rule.Models = append([]string(nil), cond.Models...)
			}
			rules = append(rules, rule)
		}
	}

	cfg.ContextDefaults = contextDefaults
	cfg.ToolPolicies = toolPolicies
	cfg.ModelColumns = sortedSet(modelColumns)
	cfg.ModelPolicies = modelPolicies
	cfg.Rules = rules
	return cfg
}

// toolIDs recombines a condition's Tools and MCPServers lists into the
// guardctl tool-id representation, prefixing MCP server names with "mcp:"
// the way config_to_yaml's inverse expects them.
func toolIDs(cond policy.Condition) []string {
	items := append([]string(nil), cond.Tools...)
	for _, server := range cond.MCPServers {
		items = append(items, "mcp:"+server)
	}
	return items
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
