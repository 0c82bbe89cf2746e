package policy

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("equal inputs and document always resolve the same strategy", prop.ForAll(
		func(tool string, mode string) bool {
			doc := NewDocument(StrategyAllow, ChannelChat, DefaultContextFallbacks(), []Policy{
				{ID: "p1", Priority: PriorityCtxDefault, Condition: Condition{Modes: []Context{Context(mode)}}, Effect: StrategyDeny, Enabled: true},
			})
			engine := NewEngine(doc)
			evalCtx := EvaluationContext{Tool: tool, Mode: Context(mode)}
			first := engine.Resolve(evalCtx)
			second := engine.Resolve(evalCtx)
			return first.Strategy == second.Strategy
		},
		gen.AlphaString(),
		gen.OneConstOf("interactive", "background", "voice", "api"),
	))

	properties.TestingRun(t)
}

func TestDisabledMeansAllow(t *testing.T) {
	// hitl_enabled=false is represented at the document level as
	// effect_default=allow with no policies -- the compiler's
	// short-circuit, not a special case in Resolve itself.
	doc := NewDocument(StrategyAllow, ChannelChat, nil, nil)
	engine := NewEngine(doc)

	for _, mode := range []Context{ContextInteractive, ContextBackground, ContextScheduler, ContextRealtime} {
		got := engine.Resolve(EvaluationContext{Tool: "run", Mode: mode})
		assert.Equal(t, StrategyAllow, got.Strategy, "mode %s", mode)
	}
}

func TestPriorityCascade(t *testing.T) {
	modelPolicy := Policy{
		ID:       "model-gpt-4.1-interactive-run",
		Priority: PriorityModelTool,
		Condition: Condition{
			Modes:  []Context{ContextInteractive},
			Tools:  []string{"run"},
			Models: []string{"gpt-4.1"},
		},
		Effect:  StrategyAllow,
		Enabled: true,
	}
	ctxToolPolicy := Policy{
		ID:        "ctx-interactive-run",
		Priority:  PriorityCtxTool,
		Condition: Condition{Modes: []Context{ContextInteractive}, Tools: []string{"run"}},
		Effect:    StrategyFilter,
		Enabled:   true,
	}
	ctxDefault := Policy{
		ID:        "ctx-default-interactive",
		Priority:  PriorityCtxDefault,
		Condition: Condition{Modes: []Context{ContextInteractive}},
		Effect:    StrategyHITL,
		Enabled:   true,
	}
	req := EvaluationContext{Tool: "run", Mode: ContextInteractive, Model: "gpt-4.1"}

	full := NewDocument(StrategyDeny, ChannelChat, nil, []Policy{modelPolicy, ctxToolPolicy, ctxDefault})
	require.Equal(t, StrategyAllow, NewEngine(full).Resolve(req).Strategy)

	noModel := NewDocument(StrategyDeny, ChannelChat, nil, []Policy{ctxToolPolicy, ctxDefault})
	require.Equal(t, StrategyFilter, NewEngine(noModel).Resolve(req).Strategy)

	noCtxTool := NewDocument(StrategyDeny, ChannelChat, nil, []Policy{ctxDefault})
	require.Equal(t, StrategyHITL, NewEngine(noCtxTool).Resolve(req).Strategy)

	noDefault := NewDocument(StrategyDeny, ChannelChat, nil, nil)
	require.Equal(t, StrategyDeny, NewEngine(noDefault).Resolve(req).Strategy)
}

func TestBackgroundAgentFallback(t *testing.T) {
	doc := NewDocument(StrategyAllow, ChannelChat, DefaultContextFallbacks(), []Policy{
		{ID: "ctx-default-background", Priority: PriorityCtxDefault, Condition: Condition{Modes: []Context{ContextBackground}}, Effect: StrategyDeny, Enabled: true},
	})
	engine := NewEngine(doc)

	for _, agentCtx := range BackgroundAgentContexts {
		got := engine.Resolve(EvaluationContext{Tool: "anything", Mode: agentCtx})
		assert.Equal(t, StrategyDeny, got.Strategy, "agent context %s should fall back to background", agentCtx)
	}

	direct := NewDocument(StrategyAllow, ChannelChat, DefaultContextFallbacks(), []Policy{
		{ID: "ctx-default-background", Priority: PriorityCtxDefault, Condition: Condition{Modes: []Context{ContextBackground}}, Effect: StrategyDeny, Enabled: true},
		{ID: "ctx-default-scheduler", Priority: PriorityCtxDefault - 1, Condition: Condition{Modes: []Context{ContextScheduler}}, Effect: StrategyAllow, Enabled: true},
	})
	got := NewEngine(direct).Resolve(EvaluationContext{Tool: "anything", Mode: ContextScheduler})
	assert.Equal(t, StrategyAllow, got.Strategy, "direct scheduler policy should override the background fallback")
}

func TestScenarioS5RuleWithContextFilter(t *testing.T) {
	doc := NewDocument(StrategyAllow, ChannelChat, nil, []Policy{
		{
			ID:        "rule-1",
			Priority:  PriorityRule,
			Condition: Condition{Tools: []string{"my_custom_tool"}, Modes: []Context{ContextBackground}},
			Effect:    StrategyDeny,
			Enabled:   true,
		},
	})
	engine := NewEngine(doc)

	require.Equal(t, StrategyAllow, engine.Resolve(EvaluationContext{Tool: "my_custom_tool", Mode: ContextInteractive}).Strategy)
	require.Equal(t, StrategyDeny, engine.Resolve(EvaluationContext{Tool: "my_custom_tool", Mode: ContextBackground}).Strategy)
}

func TestParseStrategyNormalizesAsk(t *testing.T) {
	got, err := ParseStrategy("ask")
	require.NoError(t, err)
	assert.Equal(t, StrategyHITL, got)

	_, err = ParseStrategy("bogus")
	assert.Error(t, err)
}

func TestStrategyRank(t *testing.T) {
	assert.True(t, StrategyDeny.MoreRestrictive(StrategyAllow))
	assert.True(t, StrategyHITL.MoreRestrictive(StrategyFilter))
	assert.False(t, StrategyAllow.MoreRestrictive(StrategyDeny))
	// ask normalizes before ranking, so there is no separate "ask" rank to
	// assert against here -- see ParseStrategy.
}
