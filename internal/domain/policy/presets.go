package policy

import "sort"

// Preset is one of the three named policy bundles an admin can apply in
// one step.
type Preset string

const (
	PresetPermissive  Preset = "permissive"
	PresetBalanced    Preset = "balanced"
	PresetRestrictive Preset = "restrictive"
)

// tierToPreset is the recommended preset for a bare model tier, ignoring
// the (preset, tier) cross-reference used when refreshing model columns.
var tierToPreset = map[ModelTier]Preset{
	ModelTierStrong:   PresetPermissive,
	ModelTierStandard: PresetBalanced,
	ModelTierCautious: PresetRestrictive,
}

// PresetForModel returns the preset recommended for model's tier.
func PresetForModel(model string) Preset {
	if p, ok := tierToPreset[GetModelTier(model)]; ok {
		return p
	}
	return PresetRestrictive
}

// EffectiveModelPreset cross-references a selected preset against a model's
// tier to decide the preset that should actually populate that model's
// column. This is what lets "apply restrictive" leave a tier-1 model's
// column at balanced rather than flattening every model to the same row.
var EffectiveModelPreset = map[Preset]map[ModelTier]Preset{
	PresetPermissive: {
		ModelTierStrong:   PresetPermissive,
		ModelTierStandard: PresetPermissive,
		ModelTierCautious: PresetBalanced,
	},
	PresetBalanced: {
		ModelTierStrong:   PresetPermissive,
		ModelTierStandard: PresetBalanced,
		ModelTierCautious: PresetBalanced,
	},
	PresetRestrictive: {
		ModelTierStrong:   PresetBalanced,
		ModelTierStandard: PresetRestrictive,
		ModelTierCautious: PresetRestrictive,
	},
}

// EffectivePresetFor returns the preset that should populate a model's
// column when selected is applied, given the model's tier.
func EffectivePresetFor(selected Preset, model string) Preset {
	row, ok := EffectiveModelPreset[selected]
	if !ok {
		return selected
	}
	if effective, ok := row[GetModelTier(model)]; ok {
		return effective
	}
	return selected
}

// presetMatrix is the strategy lookup table: (preset, context, risk) ->
// strategy.
var presetMatrix = map[Preset]map[Context]map[Risk]Strategy{
	PresetPermissive: {
		ContextInteractive: {RiskLow: StrategyFilter, RiskMedium: StrategyFilter, RiskHigh: StrategyFilter},
		ContextBackground:  {RiskLow: StrategyFilter, RiskMedium: StrategyFilter, RiskHigh: StrategyHITL},
	},
	PresetBalanced: {
		ContextInteractive: {RiskLow: StrategyFilter, RiskMedium: StrategyFilter, RiskHigh: StrategyHITL},
		ContextBackground:  {RiskLow: StrategyFilter, RiskMedium: StrategyHITL, RiskHigh: StrategyDeny},
	},
	PresetRestrictive: {
		ContextInteractive: {RiskLow: StrategyFilter, RiskMedium: StrategyHITL, RiskHigh: StrategyHITL},
		ContextBackground:  {RiskLow: StrategyFilter, RiskMedium: StrategyDeny, RiskHigh: StrategyDeny},
	},
}

// presetOverrides rewrites specific tool_ids after the risk matrix has been
// applied, for presets where the matrix cell is too coarse.
var presetOverrides = map[Preset]map[Context]map[string]Strategy{
	PresetBalanced: {
		ContextBackground: {
			"create":          StrategyAITL,
			"edit":            StrategyAITL,
			"run":             StrategyAITL,
			"bash":            StrategyAITL,
			"make_voice_call": StrategyAITL,
		},
	},
}

// AllPresetToolIDs lists every tool/MCP/skill a preset populates explicitly.
var AllPresetToolIDs = []string{
	"create", "edit", "view", "grep", "glob", "run", "bash",
	"schedule_task", "cancel_task", "list_scheduled_tasks", "make_voice_call",
	"send_adaptive_card", "send_hero_card", "send_thumbnail_card", "send_card_carousel",
	"search_memories_tool",
	"mcp:microsoft-learn", "mcp:playwright", "mcp:github-mcp-server", "mcp:azure-mcp-server",
	"skill:web-search", "skill:summarize-url", "skill:note-taking", "skill:daily-briefing",
}

// PresetPolicies is the context_defaults + tool_policies output of applying
// a preset, in the shape internal/config.GuardrailsConfig stores them.
type PresetPolicies struct {
	ContextDefaults map[Context]Strategy
	ToolPolicies    map[Context]map[string]Strategy
}

// BuildPresetPolicies computes the context_defaults and tool_policies for
// preset, applying the risk matrix to every known tool id and then the
// preset's per-tool overrides.
func BuildPresetPolicies(preset Preset) PresetPolicies {
	matrix, ok := presetMatrix[preset]
	if !ok {
		matrix = presetMatrix[PresetRestrictive]
	}
	contexts := []Context{ContextInteractive, ContextBackground}

	toolPolicies := map[Context]map[string]Strategy{
		ContextInteractive: {},
		ContextBackground:  {},
	}
	for _, toolID := range AllPresetToolIDs {
		risk := RiskOf(toolID)
		for _, ctx := range contexts {
			toolPolicies[ctx][toolID] = matrix[ctx][risk]
		}
	}
	for ctx, overrides := range presetOverrides[preset] {
		for toolID, strategy := range overrides {
			toolPolicies[ctx][toolID] = strategy
		}
	}

	contextDefaults := map[Context]Strategy{}
	for _, ctx := range contexts {
		contextDefaults[ctx] = matrix[ctx][RiskMedium]
	}

	return PresetPolicies{ContextDefaults: contextDefaults, ToolPolicies: toolPolicies}
}

// PresetInfo is the admin/CLI-facing description of one preset.
type PresetInfo struct {
	ID             Preset
	Name           string
	Description    string
	Tier           ModelTier
	RecommendedFor []string
}

// ListPresets returns metadata for all three presets, including which
// known models are recommended for each.
func ListPresets() []PresetInfo {
	recommended := func(tier ModelTier) []string {
		var models []string
		for model, t := range modelTiers {
			if t == tier {
				models = append(models, model)
			}
		}
		sort.Strings(models)
		return models
	}
	return []PresetInfo{
		{
			ID:   PresetRestrictive,
			Name: "Restrictive",
			Description: "For smaller or older models. Read-only tools allowed; file edits and " +
				"browser require HITL in interactive; terminal, GitHub, Azure, and all MCP " +
				"denied in background.",
			Tier:           ModelTierCautious,
			RecommendedFor: recommended(ModelTierCautious),
		},
		{
			ID:   PresetBalanced,
			Name: "Balanced",
			Description: "For standard models. Low-risk tools allowed everywhere; terminal and " +
				"GitHub/Azure require HITL in interactive; file operations, terminal, and voice " +
				"calls use AITL in background; high-risk MCP denied in background.",
			Tier:           ModelTierStandard,
			RecommendedFor: recommended(ModelTierStandard),
		},
		{
			ID:   PresetPermissive,
			Name: "Permissive",
			Description: "For strong frontier models. All tools allowed in interactive. Terminal, " +
				"GitHub, Azure still require HITL in background. MS Learn, file operations, and " +
				"browser allowed everywhere.",
			Tier:           ModelTierStrong,
			RecommendedFor: recommended(ModelTierStrong),
		},
	}
}

// MergeStrategy returns whichever of a, b is more restrictive. The store's
// preset application uses it to merge a preset's context default or tool
// strategy with the value already stored for the same slot.
func MergeStrategy(a, b Strategy) Strategy {
	if a.MoreRestrictive(b) {
		return a
	}
	return b
}
