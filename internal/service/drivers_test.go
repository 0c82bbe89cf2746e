package service

import (
	"context"
	"testing"

	"github.com/sentineltrace/guardctl/internal/domain/approval"
	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

func engineWithBackgroundDefault(strategy policy.Strategy) policy.Engine {
	doc := policy.NewDocument(policy.StrategyDeny, policy.ChannelChat, policy.DefaultContextFallbacks(), []policy.Policy{
		{
			ID:        "background-default",
			Priority:  policy.PriorityCtxDefault,
			Condition: policy.Condition{Modes: []policy.Context{policy.ContextBackground}},
			Effect:    strategy,
			Enabled:   true,
		},
	})
	return policy.NewEngine(doc)
}

func TestDriversEachGetDistinctContext(t *testing.T) {
	engine := policy.NewEngine(policy.NewDocument(policy.StrategyAllow, policy.ChannelChat, nil, nil))
	d := NewDrivers(engine, nil, nil, "gpt-4.1", nil, nil, nil, nil, nil)

	services := map[string]*EvaluationService{
		"scheduler":        d.Scheduler(),
		"bot_processor":    d.BotProcessor(),
		"proactive_loop":   d.ProactiveLoop(),
		"memory_formation": d.MemoryFormation(),
		"aitl_reviewer":    d.AITLReviewer(),
		"realtime":         d.Realtime(),
	}

	for name, svc := range services {
		if svc == nil {
			t.Fatalf("%s: expected a non-nil EvaluationService", name)
		}
	}
	// Each call to For builds an independent interceptor instance, not a
	// shared singleton mutated per call.
	if d.Scheduler() == d.Scheduler() {
		t.Fatalf("expected For to build a fresh EvaluationService per call")
	}
}

// TestDriversInheritBackgroundFallback covers spec invariant 5 end-to-end
// through the driver factory: a background context with only a shared
// "background" default policy resolves every first-class background-agent
// context (except background itself) to that default via context_fallbacks.
func TestDriversInheritBackgroundFallback(t *testing.T) {
	engine := engineWithBackgroundDefault(policy.StrategyDeny)
	d := NewDrivers(engine, nil, nil, "gpt-4.1", nil, nil, nil, nil, nil)

	svc := d.Scheduler()
	decision := svc.Evaluate(context.Background(), approval.Request{ToolCallID: "1", ToolName: "run"})
	if decision.Permission != approval.PermissionDeny {
		t.Fatalf("expected scheduler to inherit the background default (deny), got %+v", decision)
	}
}

// TestDriversDirectContextPolicyOverridesFallback covers the second half of
// invariant 5: a direct policy for the background-agent context itself
// overrides the inherited "background" default.
func TestDriversDirectContextPolicyOverridesFallback(t *testing.T) {
	doc := policy.NewDocument(policy.StrategyDeny, policy.ChannelChat, policy.DefaultContextFallbacks(), []policy.Policy{
		{
			ID:        "background-default",
			Priority:  policy.PriorityCtxDefault,
			Condition: policy.Condition{Modes: []policy.Context{policy.ContextBackground}},
			Effect:    policy.StrategyDeny,
			Enabled:   true,
		},
		{
			ID:        "scheduler-direct",
			Priority:  policy.PriorityCtxTool,
			Condition: policy.Condition{Modes: []policy.Context{policy.ContextScheduler}},
			Effect:    policy.StrategyAllow,
			Enabled:   true,
		},
	})
	engine := policy.NewEngine(doc)
	d := NewDrivers(engine, nil, nil, "gpt-4.1", nil, nil, nil, nil, nil)

	svc := d.Scheduler()
	decision := svc.Evaluate(context.Background(), approval.Request{ToolCallID: "1", ToolName: "run"})
	if decision.Permission != approval.PermissionAllow {
		t.Fatalf("expected the direct scheduler policy to override the background fallback, got %+v", decision)
	}
}
