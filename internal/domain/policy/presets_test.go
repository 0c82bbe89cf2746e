package policy

import "testing"

func TestBuildPresetPoliciesCoversEveryToolID(t *testing.T) {
	for _, preset := range []Preset{PresetPermissive, PresetBalanced, PresetRestrictive} {
		built := BuildPresetPolicies(preset)
		for _, ctx := range []Context{ContextInteractive, ContextBackground} {
			for _, toolID := range AllPresetToolIDs {
				if _, ok := built.ToolPolicies[ctx][toolID]; !ok {
					t.Errorf("preset %s/%s missing tool policy for %q", preset, ctx, toolID)
				}
			}
			if _, ok := built.ContextDefaults[ctx]; !ok {
				t.Errorf("preset %s missing context default for %s", preset, ctx)
			}
		}
	}
}

func TestBuildPresetPoliciesBalancedBackgroundOverrides(t *testing.T) {
	built := BuildPresetPolicies(PresetBalanced)
	for _, toolID := range []string{"create", "edit", "run", "bash", "make_voice_call"} {
		if got := built.ToolPolicies[ContextBackground][toolID]; got != StrategyAITL {
			t.Errorf("balanced/background/%s = %s, want aitl", toolID, got)
		}
	}
}

func TestBuildPresetPoliciesRestrictiveIsStrictestForHighRiskBackground(t *testing.T) {
	built := BuildPresetPolicies(PresetRestrictive)
	if got := built.ToolPolicies[ContextBackground]["bash"]; got != StrategyDeny {
		t.Errorf("restrictive/background/bash = %s, want deny", got)
	}
}

func TestEffectivePresetForCrossReference(t *testing.T) {
	cases := []struct {
		selected Preset
		model    string
		want     Preset
	}{
		{PresetRestrictive, "claude-opus-4.6", PresetBalanced},
		{PresetRestrictive, "gpt-4.1", PresetRestrictive},
		{PresetPermissive, "gpt-4.1", PresetBalanced},
		{PresetBalanced, "claude-sonnet-4.6", PresetBalanced},
	}
	for _, tc := range cases {
		if got := EffectivePresetFor(tc.selected, tc.model); got != tc.want {
			t.Errorf("EffectivePresetFor(%s, %s) = %s, want %s", tc.selected, tc.model, got, tc.want)
		}
	}
}

func TestListPresetsRecommendsMatchingTier(t *testing.T) {
	for _, info := range ListPresets() {
		for _, model := range info.RecommendedFor {
			if GetModelTier(model) != info.Tier {
				t.Errorf("preset %s recommends %s but its tier doesn't match %s", info.ID, model, info.Tier)
			}
		}
	}
}

func TestMergeStrategyPicksMoreRestrictive(t *testing.T) {
	if got := MergeStrategy(StrategyAllow, StrategyDeny); got != StrategyDeny {
		t.Errorf("MergeStrategy(allow, deny) = %s, want deny", got)
	}
	if got := MergeStrategy(StrategyHITL, StrategyFilter); got != StrategyHITL {
		t.Errorf("MergeStrategy(hitl, filter) = %s, want hitl", got)
	}
}
