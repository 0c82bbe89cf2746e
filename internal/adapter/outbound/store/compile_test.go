package store

import (
	"testing"

	"github.com/sentineltrace/guardctl/internal/config"
	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

func TestCompileDisabledGuardrailsAllowsEverything(t *testing.T) {
	cfg := config.GuardrailsConfig{HITLEnabled: false, DefaultAction: "deny"}
	doc := Compile(cfg)

	if doc.EffectDefault != policy.StrategyAllow {
		t.Errorf("expected effect_default allow when disabled, got %q", doc.EffectDefault)
	}
	if len(doc.Policies) != 0 {
		t.Errorf("expected no policies when disabled, got %d", len(doc.Policies))
	}
}

func TestCompileAssignsIncrementingPriorityWithinBand(t *testing.T) {
	cfg := config.GuardrailsConfig{
		HITLEnabled:   true,
		DefaultAction: "hitl",
		ToolPolicies: map[string]map[string]string{
			"interactive": {"run": "hitl", "create": "deny", "view": "allow"},
		},
	}
	doc := Compile(cfg)

	if len(doc.Policies) != 3 {
		t.Fatalf("expected 3 compiled policies, got %d", len(doc.Policies))
	}
	seen := map[int]bool{}
	for _, p := range doc.Policies {
		if p.Priority < policy.PriorityCtxTool || p.Priority >= policy.PriorityCtxDefault {
			t.Errorf("policy %s priority %d outside the context+tool band", p.ID, p.Priority)
		}
		if seen[p.Priority] {
			t.Errorf("priority %d assigned to more than one policy", p.Priority)
		}
		seen[p.Priority] = true
	}
}

func TestCompileModelScopedOutranksContextScoped(t *testing.T) {
	cfg := config.GuardrailsConfig{
		HITLEnabled:   true,
		DefaultAction: "hitl",
		ModelColumns:  []string{"gpt-4.1"},
		ModelPolicies: map[string]map[string]map[string]string{
			"gpt-4.1": {"interactive": {"run": "allow"}},
		},
		ToolPolicies: map[string]map[string]string{
			"interactive": {"run": "deny"},
		},
	}
	doc := Compile(cfg)
	engine := policy.NewEngine(doc)

	decision := engine.Resolve(policy.EvaluationContext{Mode: policy.ContextInteractive, Tool: "run", Model: "gpt-4.1"})
	if decision.Strategy != policy.StrategyAllow {
		t.Errorf("expected model-scoped allow to win, got %q (policy %s)", decision.Strategy, decision.PolicyID)
	}

	decisionOtherModel := engine.Resolve(policy.EvaluationContext{Mode: policy.ContextInteractive, Tool: "run", Model: "other-model"})
	if decisionOtherModel.Strategy != policy.StrategyDeny {
		t.Errorf("expected context-scoped deny for a model without an override, got %q", decisionOtherModel.Strategy)
	}
}

func TestCompileSplitsMCPPrefixedToolIDsIntoMCPServers(t *testing.T) {
	cfg := config.GuardrailsConfig{
		HITLEnabled:   true,
		DefaultAction: "hitl",
		ToolPolicies: map[string]map[string]string{
			"interactive": {"mcp:github-mcp-server": "hitl"},
		},
	}
	doc := Compile(cfg)

	if len(doc.Policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(doc.Policies))
	}
	cond := doc.Policies[0].Condition
	if len(cond.Tools) != 0 {
		t.Errorf("expected no bare tools, got %v", cond.Tools)
	}
	if len(cond.MCPServers) != 1 || cond.MCPServers[0] != "github-mcp-server" {
		t.Errorf("expected mcp_servers=[github-mcp-server], got %v", cond.MCPServers)
	}
}

func TestCompileKeepsSkillPrefixedToolIDsLiteral(t *testing.T) {
	cfg := config.GuardrailsConfig{
		HITLEnabled:   true,
		DefaultAction: "hitl",
		ToolPolicies: map[string]map[string]string{
			"interactive": {"skill:web-search": "filter"},
		},
	}
	doc := Compile(cfg)

	cond := doc.Policies[0].Condition
	if len(cond.Tools) != 1 || cond.Tools[0] != "skill:web-search" {
		t.Errorf("expected skill: tool id kept literal in Tools, got %v", cond.Tools)
	}
	if len(cond.MCPServers) != 0 {
		t.Errorf("expected no mcp_servers for a skill id, got %v", cond.MCPServers)
	}
}

func TestCompileLegacyRuleScopeMCP(t *testing.T) {
	cfg := config.GuardrailsConfig{
		HITLEnabled:   true,
		DefaultAction: "hitl",
		Rules: []config.RuleConfig{
			{ID: "r1", Pattern: "dangerous-server", Scope: "mcp", Action: "deny", Enabled: true, HITLChannel: "phone"},
		},
	}
	doc := Compile(cfg)

	if len(doc.Policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(doc.Policies))
	}
	p := doc.Policies[0]
	if len(p.Condition.MCPServers) != 1 || p.Condition.MCPServers[0] != "dangerous-server" {
		t.Errorf("expected mcp scope to populate MCPServers, got %v", p.Condition)
	}
	if p.Channel != policy.ChannelPhone {
		t.Errorf("expected phone channel, got %q", p.Channel)
	}
}

func TestCompileCarriesMatchExpressionOntoCondition(t *testing.T) {
	cfg := config.GuardrailsConfig{
		HITLEnabled:   true,
		DefaultAction: "hitl",
		Rules: []config.RuleConfig{
			{ID: "r1", Pattern: "http_get", Scope: "tool", Action: "deny", Enabled: true,
				MatchExpression: `arguments["url"].contains("internal")`},
		},
	}
	doc := Compile(cfg)
	if len(doc.Policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(doc.Policies))
	}
	if got := doc.Policies[0].Condition.MatchExpression; got != `arguments["url"].contains("internal")` {
		t.Errorf("expected MatchExpression to carry through, got %q", got)
	}
}

func TestCompileDisabledRuleIsDropped(t *testing.T) {
	cfg := config.GuardrailsConfig{
		HITLEnabled:   true,
		DefaultAction: "hitl",
		Rules: []config.RuleConfig{
			{ID: "r1", Pattern: "bash", Scope: "tool", Action: "deny", Enabled: false},
		},
	}
	doc := Compile(cfg)
	if len(doc.Policies) != 0 {
		t.Errorf("expected disabled rule to be dropped, got %d policies", len(doc.Policies))
	}
}

func TestCompileAsksNormalizeToHITL(t *testing.T) {
	cfg := config.GuardrailsConfig{
		HITLEnabled:     true,
		DefaultAction:   "hitl",
		ContextDefaults: map[string]string{"interactive": "ask"},
	}
	doc := Compile(cfg)
	if len(doc.Policies) != 1 || doc.Policies[0].Effect != policy.StrategyHITL {
		t.Errorf("expected legacy ask to normalize to hitl, got %+v", doc.Policies)
	}
}
