package policy

// Risk is the closed taxonomy every known tool/MCP/skill is classified
// into.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// ModelTier buckets a model by how much latitude it is trusted with.
// Tier 1 is the strongest/frontier bucket, tier 3 the most cautious.
type ModelTier int

const (
	ModelTierStrong   ModelTier = 1
	ModelTierStandard ModelTier = 2
	ModelTierCautious ModelTier = 3

	defaultModelTier = ModelTierCautious
)

// modelTierLabels gives each tier a human-readable name for admin surfaces.
var modelTierLabels = map[ModelTier]string{
	ModelTierStrong:   "Strong",
	ModelTierStandard: "Standard",
	ModelTierCautious: "Cautious",
}

// TierLabel returns t's human-readable label, or "Unknown" for an
// unrecognized tier.
func (t ModelTier) TierLabel() string {
	if label, ok := modelTierLabels[t]; ok {
		return label
	}
	return "Unknown"
}

// modelTiers is the default model-tier classification table. Callers may
// override or extend it via configuration; this table is the fallback used
// when a model has no explicit override.
var modelTiers = map[string]ModelTier{
	"gpt-5.3-codex":         ModelTierStrong,
	"claude-opus-4.6":       ModelTierStrong,
	"claude-opus-4.6-fast":  ModelTierStrong,
	"claude-sonnet-4.6":     ModelTierStandard,
	"gpt-5.2":               ModelTierStandard,
	"gemini-3-pro-preview":  ModelTierStandard,
	"gpt-5-mini":            ModelTierCautious,
	"gpt-4.1":               ModelTierCautious,
}

// GetModelTier returns the configured tier for model, defaulting unknown
// models to the most restrictive tier.
func GetModelTier(model string) ModelTier {
	if tier, ok := modelTiers[model]; ok {
		return tier
	}
	return defaultModelTier
}

// ListModelTiers returns every known model with its tier, label, and
// recommended preset, sorted by tier then model name.
func ListModelTiers() []ModelTierInfo {
	out := make([]ModelTierInfo, 0, len(modelTiers))
	for model, tier := range modelTiers {
		out = append(out, ModelTierInfo{
			Model:     model,
			Tier:      tier,
			TierLabel: tier.TierLabel(),
			Preset:    PresetForModel(model),
		})
	}
	sortModelTierInfos(out)
	return out
}

// ModelTierInfo is the admin/CLI-facing view of a single model's
// classification.
type ModelTierInfo struct {
	Model     string
	Tier      ModelTier
	TierLabel string
	Preset    Preset
}

func sortModelTierInfos(infos []ModelTierInfo) {
	for i := 1; i < len(infos); i++ {
		for j := i; j > 0; j-- {
			a, b := infos[j-1], infos[j]
			if a.Tier > b.Tier || (a.Tier == b.Tier && a.Model > b.Model) {
				infos[j-1], infos[j] = infos[j], infos[j-1]
			} else {
				break
			}
		}
	}
}

// mcpRisk classifies known MCP servers (tool ids of the form "mcp:<x>").
var mcpRisk = map[string]Risk{
	"mcp:microsoft-learn":    RiskLow,
	"mcp:playwright":         RiskMedium,
	"mcp:github-mcp-server":  RiskHigh,
	"mcp:azure-mcp-server":   RiskHigh,
}

// skillRisk classifies known built-in skills (tool ids of the form
// "skill:<x>").
var skillRisk = map[string]Risk{
	"skill:daily-briefing":         RiskLow,
	"skill:wiki-search":            RiskLow,
	"skill:wiki-summary":           RiskLow,
	"skill:wiki-deep-dive":         RiskLow,
	"skill:gh-status-check":        RiskLow,
	"skill:gh-incidents":           RiskLow,
	"skill:gh-maintenance":         RiskLow,
	"skill:web-search":             RiskMedium,
	"skill:summarize-url":          RiskMedium,
	"skill:note-taking":            RiskMedium,
	"skill:daily-rollover":         RiskMedium,
	"skill:end-day":                RiskMedium,
	"skill:weekly-review":          RiskMedium,
	"skill:monthly-review":         RiskMedium,
	"skill:setup-foundry":          RiskHigh,
	"skill:foundry-agent-chat":     RiskHigh,
	"skill:foundry-code-interpreter": RiskHigh,
	"skill:setup-workiq":           RiskMedium,
	"skill:setup-wikipedia":        RiskLow,
}

// customToolRisk classifies non-SDK custom tools by plain id.
var customToolRisk = map[string]Risk{
	"schedule_task":         RiskMedium,
	"cancel_task":           RiskMedium,
	"list_scheduled_tasks":  RiskLow,
	"make_voice_call":       RiskHigh,
	"search_memories_tool":  RiskLow,
	"send_adaptive_card":    RiskLow,
	"send_hero_card":        RiskLow,
	"send_thumbnail_card":   RiskLow,
	"send_card_carousel":    RiskLow,
}

// sdkLowRisk, sdkMediumRisk, sdkHighRisk classify the base agent-SDK tools.
var (
	sdkLowRisk    = map[string]bool{"view": true, "grep": true, "glob": true}
	sdkMediumRisk = map[string]bool{"create": true, "edit": true}
	sdkHighRisk   = map[string]bool{"run": true, "bash": true}
)

// RiskOf returns the risk classification for any tool/MCP/skill id,
// defaulting unknown mcp:/skill: ids to high and unknown plain tools to
// medium.
func RiskOf(toolID string) Risk {
	if r, ok := mcpRisk[toolID]; ok {
		return r
	}
	if r, ok := skillRisk[toolID]; ok {
		return r
	}
	if r, ok := customToolRisk[toolID]; ok {
		return r
	}
	if sdkLowRisk[toolID] {
		return RiskLow
	}
	if sdkMediumRisk[toolID] {
		return RiskMedium
	}
	if sdkHighRisk[toolID] {
		return RiskHigh
	}
	if hasPrefix(toolID, "mcp:") || hasPrefix(toolID, "skill:") {
		return RiskHigh
	}
	return RiskMedium
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
